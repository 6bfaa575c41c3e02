package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
)

// seedApprovedNewEntityBatch builds a batch holding one approved new-entity
// item anchored to a span in the node text.
func seedApprovedNewEntityBatch(t *testing.T, f *fixture, editionID, nodeID uuid.UUID) (*domain.AnnotationBatch, *domain.AnnotationItem) {
	t.Helper()
	ctx := context.Background()

	batch, err := f.annotations.CreateBatch(ctx, nil, CreateBatchInput{
		EditionID: editionID,
		BatchType: domain.BatchTypeLLMSuggestion,
		Source:    "mock",
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	items, err := f.annotations.IngestProposals(ctx, nil, batch.ID, nodeID, []EntityProposal{
		{CanonicalName: "Alice", EntityType: "character", FirstMentionText: "Alice", Aliases: []string{"Ally"}},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	item, err := f.annotations.SetItemStatus(ctx, nil, items[0].ID, domain.ItemStatusApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return batch, item
}

func TestFromApprovedBatchRequiresApprovals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)

	batch, err := f.annotations.CreateBatch(ctx, nil, CreateBatchInput{
		EditionID: edition.ID,
		BatchType: domain.BatchTypeHumanDraft,
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}

	_, err = f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("want invalid_state, got %v", err)
	}

	sets, err := f.changesets.List(ctx, nil, &edition.ID, nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sets) != 0 {
		t.Fatalf("failed generation must create nothing, got %d sets", len(sets))
	}
}

func TestFromApprovedBatchNewEntityProducesOrderedPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, annItem := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if changeset.Status != domain.ChangeSetStatusPending {
		t.Fatalf("status = %q", changeset.Status)
	}
	if changeset.Source != domain.ChangeSetSourceCollaborationCommit {
		t.Fatalf("source = %q", changeset.Source)
	}

	items, err := f.changesets.Items(ctx, nil, changeset.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2 (insert + mention)", len(items))
	}

	insert, mention := items[0], items[1]
	if insert.SeqNo != 0 || mention.SeqNo != 1 {
		t.Fatalf("seq order broken: %d, %d", insert.SeqNo, mention.SeqNo)
	}
	if insert.TargetTable != domain.ChangeTableEntities || insert.Operation != domain.ChangeOpInsert {
		t.Fatalf("first item %s/%s", insert.TargetTable, insert.Operation)
	}
	if insert.TargetID != nil {
		t.Fatal("insert target id must stay empty until apply")
	}
	if mention.TargetTable != domain.ChangeTableEntityMentions || mention.Operation != domain.ChangeOpInsert {
		t.Fatalf("second item %s/%s", mention.TargetTable, mention.Operation)
	}
	if placeholder, _ := mention.NewValue[domain.PlaceholderKey].(string); placeholder != "Alice" {
		t.Fatalf("placeholder = %q", placeholder)
	}
	if mention.SpanID == nil || annItem.SpanID == nil || *mention.SpanID != *annItem.SpanID {
		t.Fatal("mention must reference the annotation's span")
	}
}

func TestFromApprovedBatchExistingEntityProducesUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	entity := f.seedEntity(t, edition.ID, "Alice", "character")

	batch, err := f.annotations.CreateBatch(ctx, nil, CreateBatchInput{
		EditionID: edition.ID,
		BatchType: domain.BatchTypeHumanDraft,
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	item, err := f.annotations.CreateItem(ctx, nil, CreateItemInput{
		BatchID:    batch.ID,
		TargetType: domain.TargetTypeEntity,
		TargetID:   &entity.ID,
		Payload:    datatypes.JSONMap{"canonical_name": "Alice Liddell", "description": "the protagonist"},
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := f.annotations.SetItemStatus(ctx, nil, item.ID, domain.ItemStatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	items, err := f.changesets.Items(ctx, nil, changeset.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}

	update := items[0]
	if update.Operation != domain.ChangeOpUpdate || update.TargetID == nil || *update.TargetID != entity.ID {
		t.Fatalf("update item = %+v", update)
	}
	if old, _ := update.OldValue["canonical_name"].(string); old != "Alice" {
		t.Fatalf("old canonical_name = %q", old)
	}
	if old, _ := update.OldValue["entity_type"].(string); old != "character" {
		t.Fatalf("old entity_type = %q", old)
	}
	if newName, _ := update.NewValue["canonical_name"].(string); newName != "Alice Liddell" {
		t.Fatalf("new canonical_name = %q", newName)
	}
	if _, ok := update.NewValue["entity_type"]; ok {
		t.Fatal("unproposed columns must not appear in new values")
	}
}

func TestApplyCreatesEntityAndMention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, _ := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	applied, err := f.changesets.Apply(ctx, changeset.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.Status != domain.ChangeSetStatusApplied || applied.AppliedAt == nil {
		t.Fatalf("applied = %q, at %v", applied.Status, applied.AppliedAt)
	}

	entities, err := f.entityRepo.FindByName(ctx, nil, &edition.ID, "Alice")
	if err != nil {
		t.Fatalf("find entity: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("len(entities) = %d, want exactly 1", len(entities))
	}
	entity := entities[0]
	if entity.EntityType != "character" || entity.Status != domain.EntityStatusDraft {
		t.Fatalf("entity = %+v", entity)
	}

	aliases, err := f.aliasRepo.ListByEntityID(ctx, nil, entity.ID)
	if err != nil {
		t.Fatalf("aliases: %v", err)
	}
	if len(aliases) != 1 || aliases[0].Alias != "Ally" {
		t.Fatalf("aliases = %v", aliases)
	}

	mentions, err := f.mentionRepo.ListByEntityID(ctx, nil, entity.ID)
	if err != nil {
		t.Fatalf("mentions: %v", err)
	}
	if len(mentions) != 1 {
		t.Fatalf("len(mentions) = %d, want exactly 1", len(mentions))
	}

	// The audit trail records where the rows went.
	items, err := f.changesets.Items(ctx, nil, changeset.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if items[0].TargetID == nil || *items[0].TargetID != entity.ID {
		t.Fatal("insert item must record the created entity id")
	}

	// A second apply must fail without touching the store.
	if _, err := f.changesets.Apply(ctx, changeset.ID); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("re-apply: want invalid_state, got %v", err)
	}
	mentions, err = f.mentionRepo.ListByEntityID(ctx, nil, entity.ID)
	if err != nil {
		t.Fatalf("mentions after re-apply: %v", err)
	}
	if len(mentions) != 1 {
		t.Fatalf("re-apply duplicated mentions: %d", len(mentions))
	}
}

func TestApplyExistingEntityUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	entity := f.seedEntity(t, edition.ID, "Alice", "character")

	changeset, err := f.changesets.Create(ctx, nil, CreateChangeSetInput{
		EditionID: &edition.ID,
		Source:    domain.ChangeSetSourceManual,
		Reason:    "rename",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.ciRepo.Create(ctx, nil, &domain.ChangeItem{
		ID:          uuid.New(),
		ChangeSetID: changeset.ID,
		SeqNo:       0,
		TargetTable: domain.ChangeTableEntities,
		TargetID:    &entity.ID,
		Operation:   domain.ChangeOpUpdate,
		NewValue:    datatypes.JSONMap{"canonical_name": "Alice Liddell", "description": "renamed"},
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	if _, err := f.changesets.Apply(ctx, changeset.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}

	updated, err := f.entityRepo.GetByID(ctx, nil, entity.ID)
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if updated.CanonicalName != "Alice Liddell" || updated.Description != "renamed" {
		t.Fatalf("updated entity = %+v", updated)
	}
	if updated.EntityType != "character" {
		t.Fatal("untouched column changed")
	}
}

func TestApplyFailureRollsBackAndRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, _ := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// Poison the set with an unresolvable mention after the valid pair.
	if _, err := f.ciRepo.Create(ctx, nil, &domain.ChangeItem{
		ID:          uuid.New(),
		ChangeSetID: changeset.ID,
		SeqNo:       99,
		TargetTable: domain.ChangeTableEntityMentions,
		Operation:   domain.ChangeOpInsert,
		NewValue:    datatypes.JSONMap{domain.PlaceholderKey: "Nobody", "span_id": uuid.New().String()},
	}); err != nil {
		t.Fatalf("poison item: %v", err)
	}

	_, err = f.changesets.Apply(ctx, changeset.ID)
	if !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("want invalid_state, got %v", err)
	}

	failed, err := f.changesets.Get(ctx, nil, changeset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if failed.Status != domain.ChangeSetStatusFailed {
		t.Fatalf("status = %q, want failed", failed.Status)
	}
	if failed.ErrorMessage == "" {
		t.Fatal("failure must record an error message")
	}
	if failed.AppliedAt != nil {
		t.Fatal("failed set must not carry an applied timestamp")
	}

	// The earlier valid entity insert must have rolled back.
	entities, err := f.entityRepo.FindByName(ctx, nil, &edition.ID, "Alice")
	if err != nil {
		t.Fatalf("find entity: %v", err)
	}
	if len(entities) != 0 {
		t.Fatalf("partial write survived: %v", entities)
	}
}
