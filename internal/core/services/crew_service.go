package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/crewboard/backend/internal/config"
	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/domain"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	"github.com/crewboard/backend/pkg/wire"
	"github.com/google/uuid"
)

// Client-supplied correlation ids are accepted only in this shape; anything
// else gets a server-assigned uuid instead.
var taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

type CrewServiceConfig struct {
	AgentRepo   ports.AgentRepository
	TaskRepo    ports.TaskRepository
	OutputRepo  ports.OutputRepository
	Broadcaster ports.Broadcaster
	Logger      *logger.Logger
	Timing      config.CrewConfig
}

// CrewService owns the task lifecycle: it assigns correlation ids, drives the
// staged agent pipeline and publishes every resulting event through the
// injected broadcaster. Task records are owned exclusively here; everything
// else reads them through the repositories.
type CrewService struct {
	agents      ports.AgentRepository
	tasks       ports.TaskRepository
	outputs     ports.OutputRepository
	broadcaster ports.Broadcaster
	log         *logger.Logger
	timing      config.CrewConfig
	stages      []stageDef

	mu      sync.Mutex
	metrics map[uint]*domain.AgentMetrics

	pipelines sync.WaitGroup
}

func NewCrewService(cfg CrewServiceConfig) *CrewService {
	return &CrewService{
		agents:      cfg.AgentRepo,
		tasks:       cfg.TaskRepo,
		outputs:     cfg.OutputRepo,
		broadcaster: cfg.Broadcaster,
		log:         cfg.Logger,
		timing:      cfg.Timing,
		stages:      stageDefs,
		metrics:     make(map[uint]*domain.AgentMetrics),
	}
}

// Wait blocks until every in-flight pipeline has finished. Called on
// graceful shutdown and by tests.
func (s *CrewService) Wait() {
	s.pipelines.Wait()
}

// ==================== Task Submission ====================

func (s *CrewService) Submit(ctx context.Context, content, requestedID string) (*domain.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyTask
	}

	taskID := requestedID
	if !taskIDPattern.MatchString(taskID) {
		taskID = uuid.New().String()
	}

	// A resubmitted id (client retry or reconnect replay) must not start a
	// second pipeline.
	if existing, err := s.tasks.GetByTaskID(ctx, taskID); err != nil {
		return nil, err
	} else if existing != nil {
		s.log.Infow("task_submit_replay", "task_id", taskID, "status", existing.Status)
		return existing, nil
	}

	task := &domain.Task{
		TaskID:  taskID,
		Content: content,
		Status:  domain.TaskStatusPending,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.log.Errorw("task_submit_create_failed", "task_id", taskID, "error", err)
		return nil, err
	}

	s.broadcaster.Broadcast(wire.NewSystemMessage("New task received: " + content))
	s.broadcaster.Broadcast(wire.NewTaskStatusMessage(taskID, string(domain.TaskStatusPending)))
	s.log.Infow("task_submit_ok", "task_id", taskID)

	agents, err := s.agents.GetAll(ctx)
	if err != nil {
		s.log.Errorw("task_submit_agents_failed", "task_id", taskID, "error", err)
		agents = nil
	}
	s.addTotalTasks(agents)

	s.pipelines.Add(1)
	go s.run(task, agents)

	return task, nil
}

// run drives the staged pipeline for one task. Stages start at staggered
// offsets and settle independently; the task completes once the last one is
// done, regardless of per-stage failures.
func (s *CrewService) run(task *domain.Task, agents []domain.Agent) {
	defer s.pipelines.Done()

	ctx := context.Background()
	start := time.Now()

	n := len(s.stages)
	if len(agents) < n {
		s.log.Warnw("crew_pipeline_short", "task_id", task.TaskID, "agents", len(agents), "stages", n)
		n = len(agents)
	}

	seq := &seqCounter{}
	var processing sync.Once
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(offset time.Duration, agent domain.Agent, def stageDef) {
			defer wg.Done()
			time.Sleep(offset)
			s.runStage(ctx, task, agent, def, seq, &processing)
		}(time.Duration(i)*s.timing.StageInterval, agents[i], s.stages[i])
	}
	wg.Wait()

	s.transitionTask(ctx, task, domain.TaskStatusCompleted)
	s.completeMetrics(agents[:n], int(time.Since(start).Seconds()))
	s.log.Infow("crew_pipeline_done", "task_id", task.TaskID, "stages", n)
}

func (s *CrewService) runStage(ctx context.Context, task *domain.Task, agent domain.Agent, def stageDef, seq *seqCounter, processing *sync.Once) {
	// A failing producer must never abort the other stages or leave its
	// agent stuck in "working".
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("crew_stage_panic", "stage", def.name, "task_id", task.TaskID, "agent_id", agent.ID, "panic", r)
			s.setAgentStatus(ctx, agent.ID, def.rest)
		}
	}()

	s.setAgentStatus(ctx, agent.ID, domain.AgentStatusWorking)

	for i, content := range def.produce(task.Content) {
		if i > 0 {
			time.Sleep(s.timing.FollowupDelay)
		}
		processing.Do(func() {
			s.transitionTask(ctx, task, domain.TaskStatusProcessing)
		})
		s.emitOutput(ctx, task, agent, seq.next(), content)
	}

	time.Sleep(s.timing.SettleDelay)
	s.setAgentStatus(ctx, agent.ID, def.rest)
}

func (s *CrewService) emitOutput(ctx context.Context, task *domain.Task, agent domain.Agent, seq int, content string) {
	output := &domain.AgentOutput{
		AgentID: agent.ID,
		TaskID:  task.TaskID,
		Seq:     seq,
		Content: content,
	}
	if err := s.outputs.Create(ctx, output); err != nil {
		// Storage trouble should not stop live delivery.
		s.log.Errorw("crew_output_store_failed", "task_id", task.TaskID, "agent_id", agent.ID, "error", err)
	}

	s.broadcaster.Broadcast(&wire.AgentOutputMessage{
		Type:       wire.KindAgentOutput,
		AgentID:    agent.ID,
		AgentName:  agent.Name,
		AgentIcon:  agent.Icon,
		AgentColor: agent.Color,
		Content:    content,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		TaskID:     task.TaskID,
		Seq:        seq,
	})
}

func (s *CrewService) setAgentStatus(ctx context.Context, agentID uint, status domain.AgentStatus) {
	if err := s.agents.UpdateStatus(ctx, agentID, status); err != nil {
		s.log.Errorw("agent_status_update_failed", "agent_id", agentID, "status", status, "error", err)
	}
	s.broadcaster.Broadcast(wire.NewAgentStatusMessage(agentID, string(status)))
}

func (s *CrewService) transitionTask(ctx context.Context, task *domain.Task, next domain.TaskStatus) {
	s.mu.Lock()
	if !task.Status.CanTransitionTo(next) {
		s.mu.Unlock()
		s.log.Warnw("task_transition_rejected", "task_id", task.TaskID, "from", task.Status, "to", next)
		return
	}
	task.Status = next
	s.mu.Unlock()

	if err := s.tasks.UpdateStatus(ctx, task.TaskID, next); err != nil {
		s.log.Errorw("task_status_update_failed", "task_id", task.TaskID, "status", next, "error", err)
	}
	s.broadcaster.Broadcast(wire.NewTaskStatusMessage(task.TaskID, string(next)))
}

// ==================== Task / Output Queries ====================

func (s *CrewService) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *CrewService) GetOutputs(ctx context.Context, taskID string) ([]domain.AgentOutput, error) {
	return s.outputs.GetByTaskID(ctx, taskID)
}

// ==================== Agent Management ====================

func (s *CrewService) GetAgents(ctx context.Context) ([]domain.Agent, error) {
	return s.agents.GetAll(ctx)
}

func (s *CrewService) GetAgentByID(ctx context.Context, id uint) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAgentNotFound
	}
	return agent, nil
}

func (s *CrewService) CreateAgent(ctx context.Context, input ports.CreateAgentInput) (*domain.Agent, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Role) == "" {
		return nil, ErrAgentInvalidInput
	}
	status := input.Status
	if status == "" {
		status = domain.AgentStatusIdle
	}
	if !status.Valid() {
		return nil, ErrAgentInvalidInput
	}

	agent := &domain.Agent{
		Name:   input.Name,
		Role:   input.Role,
		Icon:   input.Icon,
		Status: status,
		Color:  input.Color,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}
	s.ensureMetrics(agent.ID)
	return agent, nil
}

// EnsureDefaultAgents seeds the fixed four-agent crew when storage is empty.
func (s *CrewService) EnsureDefaultAgents(ctx context.Context) error {
	count, err := s.agents.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		for _, a := range defaultAgents {
			agent := &domain.Agent{
				Name:   a.Name,
				Role:   a.Role,
				Icon:   a.Icon,
				Status: domain.AgentStatusIdle,
				Color:  a.Color,
			}
			if err := s.agents.Create(ctx, agent); err != nil {
				return err
			}
		}
		s.log.Infow("default_agents_seeded", "count", len(defaultAgents))
	}

	agents, err := s.agents.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, a := range agents {
		s.ensureMetrics(a.ID)
	}
	return nil
}

// ==================== Metrics ====================

func (s *CrewService) ensureMetrics(agentID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metrics[agentID]; !ok {
		s.metrics[agentID] = &domain.AgentMetrics{AgentID: agentID}
	}
}

func (s *CrewService) addTotalTasks(agents []domain.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range agents {
		m, ok := s.metrics[a.ID]
		if !ok {
			m = &domain.AgentMetrics{AgentID: a.ID}
			s.metrics[a.ID] = m
		}
		m.TotalTasks++
	}
}

func (s *CrewService) completeMetrics(agents []domain.Agent, elapsedSeconds int) {
	s.mu.Lock()
	var msgs []*wire.AgentMetricsMessage
	for _, a := range agents {
		m, ok := s.metrics[a.ID]
		if !ok {
			m = &domain.AgentMetrics{AgentID: a.ID, TotalTasks: 1}
			s.metrics[a.ID] = m
		}
		m.TasksCompleted++
		m.ProcessingTime += elapsedSeconds
		msgs = append(msgs, &wire.AgentMetricsMessage{
			Type:           wire.KindAgentMetrics,
			AgentID:        m.AgentID,
			TasksCompleted: m.TasksCompleted,
			TotalTasks:     m.TotalTasks,
			ProcessingTime: m.ProcessingTime,
		})
	}
	s.mu.Unlock()

	for _, msg := range msgs {
		s.broadcaster.Broadcast(msg)
	}
}

// Metrics returns a snapshot of the latest-wins per-agent counters.
func (s *CrewService) Metrics() []domain.AgentMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AgentMetrics, 0, len(s.metrics))
	for _, m := range s.metrics {
		out = append(out, *m)
	}
	return out
}

type seqCounter struct {
	mu sync.Mutex
	n  int
}

func (c *seqCounter) next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}
