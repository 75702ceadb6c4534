package dto

import (
	"strings"
	"time"

	"github.com/crewboard/backend/internal/domain"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type CreateTaskRequest struct {
	Content string `json:"content" validate:"required"`
	TaskID  string `json:"taskId,omitempty"`
}

func (r *CreateTaskRequest) Validate() []string {
	var errors []string
	if strings.TrimSpace(r.Content) == "" {
		errors = append(errors, "content is required")
	}
	return errors
}

type TaskResponse struct {
	ID        uint              `json:"id"`
	TaskID    string            `json:"task_id"`
	Content   string            `json:"content"`
	Status    domain.TaskStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

func TaskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:        task.ID,
		TaskID:    task.TaskID,
		Content:   task.Content,
		Status:    task.Status,
		CreatedAt: task.CreatedAt,
	}
}

type CreateAgentRequest struct {
	Name   string `json:"name" validate:"required"`
	Role   string `json:"role" validate:"required"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
	Status string `json:"status"`
}

func (r *CreateAgentRequest) Validate() []string {
	var errors []string
	if strings.TrimSpace(r.Name) == "" {
		errors = append(errors, "name is required")
	}
	if strings.TrimSpace(r.Role) == "" {
		errors = append(errors, "role is required")
	}
	if r.Status != "" && !domain.AgentStatus(r.Status).Valid() {
		errors = append(errors, "status must be one of: idle, working, standby, active")
	}
	return errors
}

type AgentResponse struct {
	ID        uint               `json:"id"`
	Name      string             `json:"name"`
	Role      string             `json:"role"`
	Icon      string             `json:"icon"`
	Status    domain.AgentStatus `json:"status"`
	Color     string             `json:"color"`
	CreatedAt time.Time          `json:"created_at"`
}

func AgentToResponse(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:        agent.ID,
		Name:      agent.Name,
		Role:      agent.Role,
		Icon:      agent.Icon,
		Status:    agent.Status,
		Color:     agent.Color,
		CreatedAt: agent.CreatedAt,
	}
}

func AgentsToResponse(agents []domain.Agent) []AgentResponse {
	out := make([]AgentResponse, 0, len(agents))
	for i := range agents {
		out = append(out, AgentToResponse(&agents[i]))
	}
	return out
}

type OutputResponse struct {
	ID        uint      `json:"id"`
	AgentID   uint      `json:"agent_id"`
	TaskID    string    `json:"task_id"`
	Seq       int       `json:"seq"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func OutputsToResponse(outputs []domain.AgentOutput) []OutputResponse {
	out := make([]OutputResponse, 0, len(outputs))
	for _, o := range outputs {
		out = append(out, OutputResponse{
			ID:        o.ID,
			AgentID:   o.AgentID,
			TaskID:    o.TaskID,
			Seq:       o.Seq,
			Content:   o.Content,
			Timestamp: o.CreatedAt,
		})
	}
	return out
}
