package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EntityScopeEdition = "edition"
	EntityScopeWork    = "work"
	EntityScopeGlobal  = "global"

	EntityStatusDraft      = "draft"
	EntityStatusVerified   = "verified"
	EntityStatusDeprecated = "deprecated"
)

// Entity is one node of the knowledge graph (character, location, item,
// organization, concept).
type Entity struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EditionID     *uuid.UUID `gorm:"type:uuid;index" json:"edition_id,omitempty"`
	EntityType    string     `gorm:"column:entity_type;not null" json:"entity_type"`
	CanonicalName string     `gorm:"column:canonical_name;not null;index" json:"canonical_name"`
	Description   string     `gorm:"column:description;type:text" json:"description"`
	OriginSpanID  *uuid.UUID `gorm:"type:uuid" json:"origin_span_id,omitempty"`
	Scope         string     `gorm:"column:scope;not null;default:'edition'" json:"scope"`
	Status        string     `gorm:"column:status;not null;default:'draft'" json:"status"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`

	Aliases []EntityAlias `gorm:"foreignKey:EntityID;references:ID" json:"aliases,omitempty"`
}

func (Entity) TableName() string { return "entities" }

type EntityAlias struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EntityID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_entity_aliases_entity_alias" json:"entity_id"`
	Entity    *Entity   `gorm:"constraint:OnDelete:CASCADE;foreignKey:EntityID;references:ID" json:"entity,omitempty"`
	Alias     string    `gorm:"column:alias;not null;uniqueIndex:ux_entity_aliases_entity_alias" json:"alias"`
	AliasType string    `gorm:"column:alias_type;not null;default:'nickname'" json:"alias_type"`
}

func (EntityAlias) TableName() string { return "entity_aliases" }

const (
	MentionTypeExplicit = "explicit"
	MentionTypeImplicit = "implicit"
)

// EntityMention ties an entity to the span where the text mentions it.
// Unique per (entity, span) so re-applying annotations cannot duplicate it.
type EntityMention struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EntityID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_entity_mentions_entity_span" json:"entity_id"`
	Entity      *Entity   `gorm:"constraint:OnDelete:CASCADE;foreignKey:EntityID;references:ID" json:"entity,omitempty"`
	SpanID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_entity_mentions_entity_span" json:"span_id"`
	Span        *TextSpan `gorm:"constraint:OnDelete:CASCADE;foreignKey:SpanID;references:ID" json:"span,omitempty"`
	MentionType string    `gorm:"column:mention_type;not null;default:'explicit'" json:"mention_type"`
	Confidence  *float64  `gorm:"column:confidence" json:"confidence,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (EntityMention) TableName() string { return "entity_mentions" }
