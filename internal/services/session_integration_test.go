package services

import (
	"context"
	"testing"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
)

func TestOpenSessionConflictAndReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")

	input := OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   node.ID,
		CreatedBy:  "annotator-a",
	}
	first, err := f.sessions.Open(ctx, nil, input)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if first.State != domain.SessionStateActive {
		t.Fatalf("state = %q", first.State)
	}
	if first.LockScope != domain.LockScopeNode {
		t.Fatalf("default lock scope = %q", first.LockScope)
	}

	input.CreatedBy = "annotator-b"
	if _, err := f.sessions.Open(ctx, nil, input); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("second open: want conflict, got %v", err)
	}

	closed, err := f.sessions.Close(ctx, nil, first.ID, "done")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.State != domain.SessionStateClosed || closed.ClosedAt == nil {
		t.Fatalf("close left state %q, closed_at %v", closed.State, closed.ClosedAt)
	}

	reopened, err := f.sessions.Open(ctx, nil, input)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	if reopened.ID == first.ID {
		t.Fatal("reopen must be a new session row")
	}
}

func TestOpenSessionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "text")

	_, err := f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: "galaxy",
		TargetID:   node.ID,
		CreatedBy:  "a",
	})
	if !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("bad target type: want invalid_state, got %v", err)
	}

	_, err = f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   node.ID,
	})
	if !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("missing created_by: want invalid_state, got %v", err)
	}
}

func TestAdvanceSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "text")

	session, err := f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   node.ID,
		CreatedBy:  "a",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	advanced, err := f.sessions.Advance(ctx, nil, session.ID, domain.SessionStateHasDraft, "draft ready")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if advanced.State != domain.SessionStateHasDraft || advanced.StateReason != "draft ready" {
		t.Fatalf("advanced to %q (%q)", advanced.State, advanced.StateReason)
	}

	if _, err := f.sessions.Advance(ctx, nil, session.ID, "flying", ""); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("unknown state: want invalid_state, got %v", err)
	}

	// has_draft still holds the lock.
	_, err = f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   node.ID,
		CreatedBy:  "b",
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("has_draft target: want conflict, got %v", err)
	}
}

func TestAdvanceToClosedStampsClosedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "text")

	session, err := f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   node.ID,
		CreatedBy:  "a",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	closed, err := f.sessions.Advance(ctx, nil, session.ID, domain.SessionStateClosed, "done via advance")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if closed.State != domain.SessionStateClosed {
		t.Fatalf("state = %q", closed.State)
	}
	if closed.ClosedAt == nil {
		t.Fatal("advance to closed must stamp closed_at")
	}
}

func TestCloseForcesClosedFromAnyState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "text")

	session, err := f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   node.ID,
		CreatedBy:  "a",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.sessions.Advance(ctx, nil, session.ID, domain.SessionStateCommitted, "committed"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	closed, err := f.sessions.Close(ctx, nil, session.ID, "archiving")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.State != domain.SessionStateClosed || closed.ClosedAt == nil {
		t.Fatalf("close on committed session left state %q, closed_at %v", closed.State, closed.ClosedAt)
	}

	// Closing again keeps the original timestamp.
	stamp := *closed.ClosedAt
	again, err := f.sessions.Close(ctx, nil, session.ID, "again")
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if again.ClosedAt == nil || !again.ClosedAt.Equal(stamp) {
		t.Fatalf("second close moved closed_at: %v vs %v", again.ClosedAt, stamp)
	}
}

func TestListActiveSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	nodeA := f.seedNode(t, edition.ID, nil, 0, "a")
	nodeB := f.seedNode(t, edition.ID, nil, 1, "b")

	a, err := f.sessions.Open(ctx, nil, OpenSessionInput{EditionID: edition.ID, TargetType: domain.TargetTypeNode, TargetID: nodeA.ID, CreatedBy: "alice"})
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	if _, err := f.sessions.Open(ctx, nil, OpenSessionInput{EditionID: edition.ID, TargetType: domain.TargetTypeNode, TargetID: nodeB.ID, CreatedBy: "bob"}); err != nil {
		t.Fatalf("open b: %v", err)
	}

	all, err := f.sessions.ListActive(ctx, nil, &edition.ID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}

	mine, err := f.sessions.ListActive(ctx, nil, &edition.ID, "alice")
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("filtered list = %v", mine)
	}

	if _, err := f.sessions.Close(ctx, nil, a.ID, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	remaining, err := f.sessions.ListActive(ctx, nil, &edition.ID, "")
	if err != nil {
		t.Fatalf("list after close: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("closed session still listed: %v", remaining)
	}
}

func TestPrepareContextForNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	parent := f.seedNode(t, edition.ID, nil, 0, "")
	before := f.seedNode(t, edition.ID, &parent.ID, 0, "An earlier paragraph.")
	target := f.seedNode(t, edition.ID, &parent.ID, 1, "Alice met Bob.")

	session, err := f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   target.ID,
		CreatedBy:  "a",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	tc, err := f.sessions.PrepareContext(ctx, nil, session.ID, 1)
	if err != nil {
		t.Fatalf("prepare context: %v", err)
	}
	if tc.Text != target.RawText {
		t.Fatalf("text = %q", tc.Text)
	}
	if tc.ContextText != before.RawText {
		t.Fatalf("context text = %q", tc.ContextText)
	}
	if len(tc.Entities) != 0 {
		t.Fatalf("no entities seeded, got %v", tc.Entities)
	}
}
