package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	BatchTypeLLMSuggestion = "llm_suggestion"
	BatchTypeHumanDraft    = "human_draft"
	BatchTypeMerged        = "merged"

	BatchStatusDraft     = "draft"
	BatchStatusPending   = "pending"
	BatchStatusApproved  = "approved"
	BatchStatusRejected  = "rejected"
	BatchStatusCommitted = "committed"

	ItemStatusPending  = "pending"
	ItemStatusApproved = "approved"
	ItemStatusRejected = "rejected"
)

// AnnotationBatch groups the proposals produced by one suggestion run or one
// human drafting pass. Items are owned exclusively and cascade on delete.
type AnnotationBatch struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	EditionID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"edition_id"`
	Edition    *Edition          `gorm:"constraint:OnDelete:CASCADE;foreignKey:EditionID;references:ID" json:"edition,omitempty"`
	SessionID  *uuid.UUID        `gorm:"type:uuid;index" json:"session_id,omitempty"`
	Session    *CollabSession    `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"session,omitempty"`
	BatchType  string            `gorm:"column:batch_type;not null" json:"batch_type"`
	Source     string            `gorm:"column:source;not null" json:"source"`
	Status     string            `gorm:"column:status;not null;default:'draft'" json:"status"`
	Confidence datatypes.JSONMap `gorm:"column:confidence;type:jsonb" json:"confidence"`
	Notes      string            `gorm:"column:notes;type:text" json:"notes"`
	CreatedBy  string            `gorm:"column:created_by" json:"created_by"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null" json:"updated_at"`
}

func (AnnotationBatch) TableName() string { return "annotation_batches" }

// AnnotationItem is one proposed graph mutation awaiting approval. The payload
// is immutable after creation; only the status moves.
type AnnotationItem struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"batch_id"`
	Batch      *AnnotationBatch  `gorm:"constraint:OnDelete:CASCADE;foreignKey:BatchID;references:ID" json:"batch,omitempty"`
	TargetType string            `gorm:"column:target_type;not null" json:"target_type"`
	TargetID   *uuid.UUID        `gorm:"type:uuid" json:"target_id,omitempty"`
	SpanID     *uuid.UUID        `gorm:"type:uuid" json:"span_id,omitempty"`
	Span       *TextSpan         `gorm:"constraint:OnDelete:SET NULL;foreignKey:SpanID;references:ID" json:"span,omitempty"`
	Payload    datatypes.JSONMap `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Confidence *float64          `gorm:"column:confidence" json:"confidence,omitempty"`
	Status     string            `gorm:"column:status;not null;default:'pending'" json:"status"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (AnnotationItem) TableName() string { return "annotation_items" }
