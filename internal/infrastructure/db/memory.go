package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/domain"
	"gorm.io/gorm"
)

// In-memory repository implementations. The core contract needs no state to
// survive a restart, so these are a full substitute for the Postgres repos;
// they also back the tests. IDs are monotonic per store, like the database
// serials they stand in for.

type memoryAgentRepository struct {
	mu     sync.RWMutex
	agents map[uint]*domain.Agent
	nextID uint
}

func NewMemoryAgentRepository() ports.AgentRepository {
	return &memoryAgentRepository{agents: make(map[uint]*domain.Agent), nextID: 1}
}

func (r *memoryAgentRepository) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent.ID = r.nextID
	r.nextID++
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = agent.CreatedAt
	stored := *agent
	r.agents[agent.ID] = &stored
	return nil
}

func (r *memoryAgentRepository) GetByID(_ context.Context, id uint) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *agent
	return &copied, nil
}

func (r *memoryAgentRepository) GetAll(_ context.Context) ([]domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := make([]domain.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, *a)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents, nil
}

func (r *memoryAgentRepository) UpdateStatus(_ context.Context, id uint, status domain.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	agent.Status = status
	agent.UpdatedAt = time.Now()
	return nil
}

func (r *memoryAgentRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.agents)), nil
}

type memoryTaskRepository struct {
	mu     sync.RWMutex
	tasks  map[string]*domain.Task
	nextID uint
}

func NewMemoryTaskRepository() ports.TaskRepository {
	return &memoryTaskRepository{tasks: make(map[string]*domain.Task), nextID: 1}
}

func (r *memoryTaskRepository) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[task.TaskID]; exists {
		return gorm.ErrDuplicatedKey
	}
	task.ID = r.nextID
	r.nextID++
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	stored := *task
	r.tasks[task.TaskID] = &stored
	return nil
}

func (r *memoryTaskRepository) GetByTaskID(_ context.Context, taskID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (r *memoryTaskRepository) GetAll(_ context.Context) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tasks := make([]domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (r *memoryTaskRepository) UpdateStatus(_ context.Context, taskID string, status domain.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	task.Status = status
	task.UpdatedAt = time.Now()
	return nil
}

type memoryOutputRepository struct {
	mu      sync.RWMutex
	outputs []*domain.AgentOutput
	nextID  uint
}

func NewMemoryOutputRepository() ports.OutputRepository {
	return &memoryOutputRepository{nextID: 1}
}

func (r *memoryOutputRepository) Create(_ context.Context, output *domain.AgentOutput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	output.ID = r.nextID
	r.nextID++
	output.CreatedAt = time.Now()
	output.UpdatedAt = output.CreatedAt
	stored := *output
	r.outputs = append(r.outputs, &stored)
	return nil
}

func (r *memoryOutputRepository) GetByTaskID(_ context.Context, taskID string) ([]domain.AgentOutput, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var outputs []domain.AgentOutput
	for _, o := range r.outputs {
		if o.TaskID == taskID {
			outputs = append(outputs, *o)
		}
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Seq < outputs[j].Seq })
	return outputs, nil
}

func (r *memoryOutputRepository) GetByAgentID(_ context.Context, agentID uint) ([]domain.AgentOutput, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var outputs []domain.AgentOutput
	for _, o := range r.outputs {
		if o.AgentID == agentID {
			outputs = append(outputs, *o)
		}
	}
	return outputs, nil
}
