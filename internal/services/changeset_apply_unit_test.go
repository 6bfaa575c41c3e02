package services

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
)

func TestMentionEntityRef(t *testing.T) {
	t.Parallel()

	t.Run("placeholder", func(t *testing.T) {
		t.Parallel()
		ref, err := mentionEntityRef(datatypes.JSONMap{domain.PlaceholderKey: "Alice"})
		if err != nil {
			t.Fatalf("mentionEntityRef: %v", err)
		}
		if ref.pending != "Alice" {
			t.Fatalf("pending = %q", ref.pending)
		}
	})

	t.Run("concrete id", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		ref, err := mentionEntityRef(datatypes.JSONMap{"entity_id": id.String()})
		if err != nil {
			t.Fatalf("mentionEntityRef: %v", err)
		}
		if ref.id != id || ref.pending != "" {
			t.Fatalf("unexpected ref: %+v", ref)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()
		_, err := mentionEntityRef(datatypes.JSONMap{"entity_id": "nope"})
		if !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Fatalf("want invalid_state, got %v", err)
		}
	})

	t.Run("neither", func(t *testing.T) {
		t.Parallel()
		_, err := mentionEntityRef(datatypes.JSONMap{})
		if !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Fatalf("want invalid_state, got %v", err)
		}
	})
}

func TestEntityRefResolve(t *testing.T) {
	t.Parallel()

	aliceID := uuid.New()
	created := map[string]uuid.UUID{"Alice": aliceID}

	t.Run("already concrete", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		got, err := entityRef{id: id}.resolve(created)
		if err != nil || got != id {
			t.Fatalf("resolve = %v, %v", got, err)
		}
	})

	t.Run("pending resolved from pass", func(t *testing.T) {
		t.Parallel()
		got, err := entityRef{pending: "Alice"}.resolve(created)
		if err != nil || got != aliceID {
			t.Fatalf("resolve = %v, %v", got, err)
		}
	})

	t.Run("pending unresolved", func(t *testing.T) {
		t.Parallel()
		_, err := entityRef{pending: "Carol"}.resolve(created)
		if !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Fatalf("want invalid_state, got %v", err)
		}
	})
}

func TestStringSlice(t *testing.T) {
	t.Parallel()

	got := stringSlice([]interface{}{"a", 3, "b", nil})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("stringSlice = %v", got)
	}
	if stringSlice("not a slice") != nil {
		t.Fatal("non-slice should yield nil")
	}
	if stringSlice(nil) != nil {
		t.Fatal("nil should yield nil")
	}
}

func TestEntityValues(t *testing.T) {
	t.Parallel()

	payload := datatypes.JSONMap{
		"canonical_name":     "Alice",
		"entity_type":        "character",
		"first_mention_text": "Alice",
		"aliases":            []interface{}{"Ally"},
	}
	values := entityValues(payload)
	if values["canonical_name"] != "Alice" || values["entity_type"] != "character" {
		t.Fatalf("entityValues = %v", values)
	}
	if _, ok := values["description"]; ok {
		t.Fatal("absent description should not appear")
	}
	if _, ok := values["first_mention_text"]; ok {
		t.Fatal("non-column keys should not appear")
	}
}
