package db

import (
	"github.com/crewboard/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Agent{},
		&domain.Task{},
		&domain.AgentOutput{},
	); err != nil {
		return err
	}

	// Outputs are replayed per task in emission order; AutoMigrate only
	// creates the single-column indexes.
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_agent_outputs_task_seq
		ON agent_outputs (task_id, seq)
		WHERE deleted_at IS NULL
	`).Error
}
