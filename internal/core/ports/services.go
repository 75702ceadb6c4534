package ports

import (
	"context"

	"github.com/crewboard/backend/internal/domain"
	"github.com/crewboard/backend/pkg/wire"
)

// Broadcaster fans an event out to every connected viewer. Implemented by
// the websocket hub; injected into services so they never touch transport
// state directly.
type Broadcaster interface {
	Broadcast(msg wire.Message)
}

type CrewService interface {
	// Submit creates a task for content and starts the agent pipeline
	// asynchronously. requestedID, when valid and unused, becomes the
	// task's correlation id; resubmitting a known id returns the existing
	// task without starting new work.
	Submit(ctx context.Context, content, requestedID string) (*domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	GetOutputs(ctx context.Context, taskID string) ([]domain.AgentOutput, error)

	GetAgents(ctx context.Context) ([]domain.Agent, error)
	GetAgentByID(ctx context.Context, id uint) (*domain.Agent, error)
	CreateAgent(ctx context.Context, input CreateAgentInput) (*domain.Agent, error)
	EnsureDefaultAgents(ctx context.Context) error

	Metrics() []domain.AgentMetrics
}

type CreateAgentInput struct {
	Name   string
	Role   string
	Icon   string
	Color  string
	Status domain.AgentStatus
}
