package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SessionStateActive     = "active"
	SessionStateHasDraft   = "has_draft"
	SessionStateCommitted  = "committed"
	SessionStateClosed     = "closed"
	SessionStateNeedsMerge = "needs_merge"

	TargetTypeNode     = "node"
	TargetTypeEntity   = "entity"
	TargetTypeRelation = "relation"
	TargetTypeEvent    = "event"
	TargetTypeSpan     = "span"

	LockScopeNode    = "node"
	LockScopeEntity  = "entity"
	LockScopeSpan    = "span"
	LockScopeEdition = "edition"
)

// LiveSessionStates are the states in which a session still holds its
// exclusive lock on the target.
var LiveSessionStates = []string{SessionStateActive, SessionStateHasDraft}

// CollabSession is one exclusive editing intent over a single target within
// an edition. At most one live session may exist per (target_type, target_id);
// the storage layer backs this with a partial unique index. Closing is a state
// change, never a row deletion.
type CollabSession struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	EditionID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"edition_id"`
	Edition     *Edition          `gorm:"constraint:OnDelete:CASCADE;foreignKey:EditionID;references:ID" json:"edition,omitempty"`
	TargetType  string            `gorm:"column:target_type;not null;index:idx_collab_sessions_target" json:"target_type"`
	TargetID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_collab_sessions_target" json:"target_id"`
	LockScope   string            `gorm:"column:lock_scope;not null;default:'node'" json:"lock_scope"`
	State       string            `gorm:"column:state;not null;default:'active'" json:"state"`
	StateReason string            `gorm:"column:state_reason;type:text" json:"state_reason"`
	Metadata    datatypes.JSONMap `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedBy   string            `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
	ClosedAt    *time.Time        `gorm:"column:closed_at" json:"closed_at,omitempty"`
}

func (CollabSession) TableName() string { return "collab_sessions" }

// Live reports whether the session still holds its edit lock.
func (s *CollabSession) Live() bool {
	return s.State == SessionStateActive || s.State == SessionStateHasDraft
}
