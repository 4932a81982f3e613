package db

import (
	"fmt"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureIndexes creates the partial unique indexes gorm tags cannot express.
// SQLite supports the same WHERE clause, so this runs on both dialects.
func EnsureIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "uq_source_set_live_video",
			sql:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_source_set_live_video ON source_set(video_id) WHERE deleted_at IS NULL;`,
		},
		{
			name: "uq_quiz_attempt_open",
			sql:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_quiz_attempt_open ON quiz_attempt(user_uuid, education_id) WHERE submitted_at IS NULL AND deleted_at IS NULL;`,
		},
		{
			name: "idx_script_scene_order",
			sql:  `CREATE INDEX IF NOT EXISTS idx_script_scene_order ON script_scene(script_id, chapter_id, scene_index);`,
		},
		{
			name: "idx_dispatch_task_dead",
			sql:  `CREATE INDEX IF NOT EXISTS idx_dispatch_task_dead ON dispatch_task(status, updated_at);`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
