package db

import (
	"context"

	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/domain"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type agentRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepository(db *gorm.DB, log *logger.Logger) ports.AgentRepository {
	return &agentRepository{db: db, log: log}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		r.log.Errorw("agent_repo_create_failed", "name", agent.Name, "error", err)
		return err
	}
	r.log.Infow("agent_repo_create_ok", "id", agent.ID, "name", agent.Name)
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id uint) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).First(&agent, id).Error; err != nil {
		r.log.Errorw("agent_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) GetAll(ctx context.Context) ([]domain.Agent, error) {
	var agents []domain.Agent
	if err := r.db.WithContext(ctx).Order("id asc").Find(&agents).Error; err != nil {
		r.log.Errorw("agent_repo_list_failed", "error", err)
		return nil, err
	}
	return agents, nil
}

func (r *agentRepository) UpdateStatus(ctx context.Context, id uint, status domain.AgentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Agent{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		r.log.Errorw("agent_repo_update_status_failed", "id", id, "status", status, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *agentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Agent{}).Count(&count).Error; err != nil {
		r.log.Errorw("agent_repo_count_failed", "error", err)
		return 0, err
	}
	return count, nil
}
