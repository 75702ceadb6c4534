package db

import (
	"context"

	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/domain"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type outputRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutputRepository(db *gorm.DB, log *logger.Logger) ports.OutputRepository {
	return &outputRepository{db: db, log: log}
}

func (r *outputRepository) Create(ctx context.Context, output *domain.AgentOutput) error {
	if err := r.db.WithContext(ctx).Create(output).Error; err != nil {
		r.log.Errorw("output_repo_create_failed", "task_id", output.TaskID, "agent_id", output.AgentID, "error", err)
		return err
	}
	return nil
}

func (r *outputRepository) GetByTaskID(ctx context.Context, taskID string) ([]domain.AgentOutput, error) {
	var outputs []domain.AgentOutput
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("seq asc").
		Find(&outputs).Error
	if err != nil {
		r.log.Errorw("output_repo_get_by_task_failed", "task_id", taskID, "error", err)
		return nil, err
	}
	return outputs, nil
}

func (r *outputRepository) GetByAgentID(ctx context.Context, agentID uint) ([]domain.AgentOutput, error) {
	var outputs []domain.AgentOutput
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at asc").
		Find(&outputs).Error
	if err != nil {
		r.log.Errorw("output_repo_get_by_agent_failed", "agent_id", agentID, "error", err)
		return nil, err
	}
	return outputs, nil
}
