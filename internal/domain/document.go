package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocumentNode is one unit of segmented text (chapter, paragraph, ...).
// Ingestion and segmentation live outside this service; nodes are read-only
// context for sessions and span anchoring.
type DocumentNode struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EditionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"edition_id"`
	Edition   *Edition   `gorm:"constraint:OnDelete:CASCADE;foreignKey:EditionID;references:ID" json:"edition,omitempty"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	NodeType  string     `gorm:"column:node_type;not null" json:"node_type"`
	SortIndex int        `gorm:"column:sort_index;not null" json:"sort_index"`
	Depth     int        `gorm:"column:depth;not null" json:"depth"`
	Label     string     `gorm:"column:label" json:"label"`
	Title     string     `gorm:"column:title" json:"title"`
	RawText   string     `gorm:"column:raw_text;type:text" json:"raw_text"`
	Path      string     `gorm:"column:path;not null" json:"path"`
	Status    string     `gorm:"column:status;not null;default:'active'" json:"status"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (DocumentNode) TableName() string { return "document_nodes" }

const (
	SpanTypeExplicit     = "explicit"
	SpanTypeInferred     = "inferred"
	SpanTypeAutoSentence = "auto_sentence"
)

// TextSpan is a [StartChar,EndChar) character range inside one node's raw
// text. Unique per (node, start, end) so identical mentions share a span.
type TextSpan struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	NodeID      uuid.UUID     `gorm:"type:uuid;not null;index;uniqueIndex:ux_text_spans_node_range" json:"node_id"`
	Node        *DocumentNode `gorm:"constraint:OnDelete:CASCADE;foreignKey:NodeID;references:ID" json:"node,omitempty"`
	SpanType    string        `gorm:"column:span_type;not null;default:'explicit'" json:"span_type"`
	StartChar   int           `gorm:"column:start_char;not null;uniqueIndex:ux_text_spans_node_range" json:"start_char"`
	EndChar     int           `gorm:"column:end_char;not null;uniqueIndex:ux_text_spans_node_range" json:"end_char"`
	TextSnippet string        `gorm:"column:text_snippet;type:text" json:"text_snippet"`
	CreatedBy   string        `gorm:"column:created_by;not null;default:'system'" json:"created_by"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
}

func (TextSpan) TableName() string { return "text_spans" }
