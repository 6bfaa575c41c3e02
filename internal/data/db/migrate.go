package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
)

// AutoMigrateAll migrates every persisted model and installs the constraints
// AutoMigrate cannot express.
func AutoMigrateAll(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&domain.Edition{},
		&domain.DocumentNode{},
		&domain.TextSpan{},

		&domain.Entity{},
		&domain.EntityAlias{},
		&domain.EntityMention{},

		&domain.CollabSession{},
		&domain.AnnotationBatch{},
		&domain.AnnotationItem{},
		&domain.ChangeSet{},
		&domain.ChangeItem{},
		&domain.ReviewTask{},
	); err != nil {
		return err
	}

	// One live session per target. The open path still runs a query-then-insert
	// check for a friendly conflict error; this index closes the race between
	// two concurrent opens.
	if err := gdb.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS ux_collab_sessions_live_target
		ON collab_sessions (target_type, target_id)
		WHERE state IN ('active', 'has_draft')
	`).Error; err != nil {
		return fmt.Errorf("failed to create live-session unique index: %w", err)
	}

	return nil
}
