package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ChangeSetSourceManual              = "manual"
	ChangeSetSourceLLMAuto             = "llm_auto"
	ChangeSetSourceCollaborationCommit = "collaboration_commit"

	ChangeSetStatusPending    = "pending"
	ChangeSetStatusApplied    = "applied"
	ChangeSetStatusRolledBack = "rolled_back"
	ChangeSetStatusFailed     = "failed"

	ChangeOpInsert = "insert"
	ChangeOpUpdate = "update"
	ChangeOpDelete = "delete"

	ChangeTableEntities       = "entities"
	ChangeTableEntityMentions = "entity_mentions"
)

// PlaceholderKey is the payload key a mention-insert change item carries when
// its entity does not exist yet; the value is the entity's canonical name and
// is resolved to a real identifier during apply, never ahead of it.
const PlaceholderKey = "entity_placeholder"

// ChangeSet is one atomic, auditable unit of graph mutation derived from
// approved annotation items. A session references its change sets but does
// not own them; an applied change set outlives its session.
type ChangeSet struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EditionID    *uuid.UUID     `gorm:"type:uuid;index" json:"edition_id,omitempty"`
	SessionID    *uuid.UUID     `gorm:"type:uuid;index" json:"session_id,omitempty"`
	Session      *CollabSession `gorm:"constraint:OnDelete:SET NULL;foreignKey:SessionID;references:ID" json:"session,omitempty"`
	Source       string         `gorm:"column:source;not null" json:"source"`
	Reason       string         `gorm:"column:reason;type:text" json:"reason"`
	Status       string         `gorm:"column:status;not null;default:'pending'" json:"status"`
	CreatedBy    string         `gorm:"column:created_by" json:"created_by"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	AppliedAt    *time.Time     `gorm:"column:applied_at" json:"applied_at,omitempty"`
	RolledBackAt *time.Time     `gorm:"column:rolled_back_at" json:"rolled_back_at,omitempty"`
	ErrorMessage string         `gorm:"column:error_message;type:text" json:"error_message"`
}

func (ChangeSet) TableName() string { return "change_sets" }

// ChangeItem is one row-level mutation inside a change set. Old/new value
// snapshots make a failed or applied set inspectable after the fact. SeqNo
// preserves generation order; apply processes items in this order, which is a
// correctness requirement for placeholder resolution.
type ChangeItem struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ChangeSetID uuid.UUID         `gorm:"type:uuid;not null;index" json:"change_set_id"`
	ChangeSet   *ChangeSet        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChangeSetID;references:ID" json:"change_set,omitempty"`
	SeqNo       int               `gorm:"column:seq_no;not null" json:"seq_no"`
	TargetTable string            `gorm:"column:target_table;not null" json:"target_table"`
	TargetID    *uuid.UUID        `gorm:"type:uuid" json:"target_id,omitempty"`
	Operation   string            `gorm:"column:operation;not null" json:"operation"`
	ColumnName  string            `gorm:"column:column_name" json:"column_name,omitempty"`
	OldValue    datatypes.JSONMap `gorm:"column:old_value;type:jsonb" json:"old_value"`
	NewValue    datatypes.JSONMap `gorm:"column:new_value;type:jsonb" json:"new_value"`
	SpanID      *uuid.UUID        `gorm:"type:uuid" json:"span_id,omitempty"`
	Notes       string            `gorm:"column:notes;type:text" json:"notes"`
}

func (ChangeItem) TableName() string { return "change_items" }
