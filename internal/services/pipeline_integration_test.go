package services

import (
	"context"
	"testing"

	"github.com/sailing-innocent/SailZen/internal/data/repos/testutil"
	"github.com/sailing-innocent/SailZen/internal/domain"
)

// Full pass through the pipeline: open a session on a paragraph, extract
// suggestions with the mock client, approve everything, commit, review with
// auto-apply and check the graph afterwards.
func TestAnnotationPipelineEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	edition := f.seedEdition(t)
	node := f.seedNode(t, edition.ID, nil, 0, "Alice met Bob.")

	session, err := f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   node.ID,
		CreatedBy:  "annotator",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Suggestion pass.
	targetCtx, err := f.sessions.PrepareContext(ctx, nil, session.ID, 1)
	if err != nil {
		t.Fatalf("prepare context: %v", err)
	}
	extractor := NewMockExtractionClient(testutil.Logger(t))
	proposals, err := extractor.Extract(ctx, targetCtx.Text, targetCtx.ContextText)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	batch, err := f.annotations.CreateBatch(ctx, nil, CreateBatchInput{
		EditionID: edition.ID,
		SessionID: &session.ID,
		BatchType: domain.BatchTypeLLMSuggestion,
		Source:    extractor.Model(),
		CreatedBy: "annotator",
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	items, err := f.annotations.IngestProposals(ctx, nil, batch.ID, node.ID, proposals)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(items) < 2 {
		t.Fatalf("expected at least Alice and Bob, got %d items", len(items))
	}
	if _, err := f.sessions.Advance(ctx, nil, session.ID, domain.SessionStateHasDraft, "suggestions generated"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Human approval pass.
	for _, item := range items {
		if _, err := f.annotations.SetItemStatus(ctx, nil, item.ID, domain.ItemStatusApproved); err != nil {
			t.Fatalf("approve item: %v", err)
		}
	}

	// Commit.
	changeset, err := f.changesets.FromApprovedBatch(ctx, nil, batch.ID, &session.ID, "annotator")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := f.annotations.UpdateBatchStatus(ctx, nil, batch.ID, domain.BatchStatusCommitted); err != nil {
		t.Fatalf("mark batch: %v", err)
	}
	if _, err := f.sessions.Advance(ctx, nil, session.ID, domain.SessionStateCommitted, "batch committed"); err != nil {
		t.Fatalf("advance committed: %v", err)
	}

	// Review gate with auto-apply.
	task, err := f.reviews.CreateTask(ctx, nil, changeset.ID, "reviewer")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := f.reviews.Approve(ctx, task.ID, "", true); err != nil {
		t.Fatalf("review approve: %v", err)
	}

	// The graph now holds both characters with one mention each.
	for _, name := range []string{"Alice", "Bob"} {
		entities, err := f.entityRepo.FindByName(ctx, nil, &edition.ID, name)
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		if len(entities) != 1 {
			t.Fatalf("%s: %d entities, want exactly 1", name, len(entities))
		}
		mentions, err := f.entityRead.Mentions(ctx, nil, entities[0].ID)
		if err != nil {
			t.Fatalf("%s mentions: %v", name, err)
		}
		if len(mentions) != 1 {
			t.Fatalf("%s: %d mentions, want exactly 1", name, len(mentions))
		}
		span, err := f.spanRepo.GetByID(ctx, nil, mentions[0].SpanID)
		if err != nil || span == nil {
			t.Fatalf("%s span: %v, %v", name, span, err)
		}
		if span.NodeID != node.ID {
			t.Fatalf("%s mention anchored to wrong node", name)
		}
	}

	applied, err := f.changesets.Get(ctx, nil, changeset.ID)
	if err != nil {
		t.Fatalf("get change set: %v", err)
	}
	if applied.Status != domain.ChangeSetStatusApplied {
		t.Fatalf("change set = %q, want applied", applied.Status)
	}

	// The target lock is released; a new session can open.
	if _, err := f.sessions.Open(ctx, nil, OpenSessionInput{
		EditionID:  edition.ID,
		TargetType: domain.TargetTypeNode,
		TargetID:   node.ID,
		CreatedBy:  "annotator-2",
	}); err != nil {
		t.Fatalf("reopen after commit: %v", err)
	}
}
