package domain

import (
	"time"

	"github.com/google/uuid"
)

// Edition is the scope anchor every collaborative artifact hangs off.
// Works/universes management lives outside this service; an edition row is
// all the pipeline needs to reference.
type Edition struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkID    *uuid.UUID `gorm:"type:uuid;index" json:"work_id,omitempty"`
	Label     string     `gorm:"column:label;not null" json:"label"`
	Language  string     `gorm:"column:language" json:"language"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Edition) TableName() string { return "editions" }
