package ports

import (
	"context"

	"github.com/crewboard/backend/internal/domain"
)

type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id uint) (*domain.Agent, error)
	GetAll(ctx context.Context) ([]domain.Agent, error)
	UpdateStatus(ctx context.Context, id uint, status domain.AgentStatus) error
	Count(ctx context.Context) (int64, error)
}

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByTaskID(ctx context.Context, taskID string) (*domain.Task, error)
	GetAll(ctx context.Context) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus) error
}

type OutputRepository interface {
	Create(ctx context.Context, output *domain.AgentOutput) error
	GetByTaskID(ctx context.Context, taskID string) ([]domain.AgentOutput, error)
	GetByAgentID(ctx context.Context, agentID uint) ([]domain.AgentOutput, error)
}
