package services

import (
	"context"
	"testing"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
)

func TestApproveWithAutoApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, _ := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	task, err := f.reviews.CreateTask(ctx, nil, changeset.ID, "reviewer")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	decided, err := f.reviews.Approve(ctx, task.ID, "looks right", true)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decided.Status != domain.ReviewStatusApproved || decided.Decision != domain.ReviewDecisionApprove {
		t.Fatalf("task = %+v", decided)
	}
	if decided.DecidedAt == nil || decided.Comments != "looks right" {
		t.Fatalf("decision metadata missing: %+v", decided)
	}

	applied, err := f.changesets.Get(ctx, nil, changeset.ID)
	if err != nil {
		t.Fatalf("get change set: %v", err)
	}
	if applied.Status != domain.ChangeSetStatusApplied {
		t.Fatalf("change set = %q, want applied", applied.Status)
	}

	entities, err := f.entityRepo.FindByName(ctx, nil, &edition.ID, "Alice")
	if err != nil || len(entities) != 1 {
		t.Fatalf("entity after auto-apply: %v, %v", entities, err)
	}
}

func TestApproveWithoutAutoApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, _ := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	task, err := f.reviews.CreateTask(ctx, nil, changeset.ID, "reviewer")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := f.reviews.Approve(ctx, task.ID, "", false); err != nil {
		t.Fatalf("approve: %v", err)
	}
	still, err := f.changesets.Get(ctx, nil, changeset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if still.Status != domain.ChangeSetStatusPending {
		t.Fatalf("change set = %q, want still pending", still.Status)
	}
}

func TestRejectFailsChangeSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, _ := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	task, err := f.reviews.CreateTask(ctx, nil, changeset.ID, "reviewer")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	decided, err := f.reviews.Reject(ctx, task.ID, "wrong entity type")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.Status != domain.ReviewStatusRejected || decided.Decision != domain.ReviewDecisionReject {
		t.Fatalf("task = %+v", decided)
	}

	failed, err := f.changesets.Get(ctx, nil, changeset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if failed.Status != domain.ChangeSetStatusFailed {
		t.Fatalf("change set = %q, want failed", failed.Status)
	}
	if failed.ErrorMessage == "" {
		t.Fatal("rejection must record a message")
	}

	// A rejected set can never be applied.
	if _, err := f.changesets.Apply(ctx, changeset.ID); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("apply after reject: want invalid_state, got %v", err)
	}
	entities, err := f.entityRepo.FindByName(ctx, nil, &edition.ID, "Alice")
	if err != nil || len(entities) != 0 {
		t.Fatalf("rejected set must create nothing: %v, %v", entities, err)
	}
}

func TestDecideTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, _ := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	task, err := f.reviews.CreateTask(ctx, nil, changeset.ID, "reviewer")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := f.reviews.Approve(ctx, task.ID, "", false); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := f.reviews.Approve(ctx, task.ID, "", false); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("second approve: want invalid_state, got %v", err)
	}
	if _, err := f.reviews.Reject(ctx, task.ID, ""); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("reject after approve: want invalid_state, got %v", err)
	}
}

func TestCreateTaskRequiresPendingChangeSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, _ := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.changesets.Apply(ctx, changeset.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := f.reviews.CreateTask(ctx, nil, changeset.ID, "reviewer"); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("task on applied set: want invalid_state, got %v", err)
	}
}

func TestPendingTasksFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")
	batch, _ := seedApprovedNewEntityBatch(t, f, edition.ID, node.ID)

	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, nil, "committer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.reviews.CreateTask(ctx, nil, changeset.ID, "carol"); err != nil {
		t.Fatalf("create task: %v", err)
	}

	mine, err := f.reviews.Pending(ctx, nil, "carol")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("len(mine) = %d", len(mine))
	}
	other, err := f.reviews.Pending(ctx, nil, "dave")
	if err != nil {
		t.Fatalf("pending other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("len(other) = %d", len(other))
	}
}
