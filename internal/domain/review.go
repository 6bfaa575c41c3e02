package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReviewStatusPending   = "pending"
	ReviewStatusApproved  = "approved"
	ReviewStatusRejected  = "rejected"
	ReviewStatusCancelled = "cancelled"

	ReviewDecisionApprove = "approve"
	ReviewDecisionReject  = "reject"
)

// ReviewTask is a human gate on a change set. A change set may accumulate
// several tasks over reassignments; keeping only one actionable at a time is
// an operational convention, not a structural constraint.
type ReviewTask struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ChangeSetID uuid.UUID  `gorm:"type:uuid;not null;index" json:"change_set_id"`
	ChangeSet   *ChangeSet `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChangeSetID;references:ID" json:"change_set,omitempty"`
	Reviewer    string     `gorm:"column:reviewer;not null;index" json:"reviewer"`
	Status      string     `gorm:"column:status;not null;default:'pending'" json:"status"`
	Decision    string     `gorm:"column:decision" json:"decision,omitempty"`
	DecidedAt   *time.Time `gorm:"column:decided_at" json:"decided_at,omitempty"`
	Comments    string     `gorm:"column:comments;type:text" json:"comments"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
}

func (ReviewTask) TableName() string { return "review_tasks" }
