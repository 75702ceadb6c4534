package domain

import (
	"time"

	"gorm.io/gorm"
)

// ==================== ENUMS ====================

type AgentStatus string

const (
	AgentStatusIdle    AgentStatus = "idle"
	AgentStatusWorking AgentStatus = "working"
	AgentStatusStandby AgentStatus = "standby"
	AgentStatusActive  AgentStatus = "active"
)

func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusWorking, AgentStatusStandby, AgentStatusActive:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
)

// rank orders task statuses so transitions can be kept monotonic:
// pending -> processing -> completed, never backwards.
func (s TaskStatus) rank() int {
	switch s {
	case TaskStatusPending:
		return 0
	case TaskStatusProcessing:
		return 1
	case TaskStatusCompleted:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next advances the
// lifecycle. Equal statuses are allowed (idempotent updates).
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	return next.rank() >= s.rank() && next.rank() >= 0
}

// ==================== ENTITIES ====================

type Agent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name   string      `gorm:"size:255;not null" json:"name"`
	Role   string      `gorm:"type:text;not null" json:"role"`
	Icon   string      `gorm:"size:100;not null" json:"icon"`
	Status AgentStatus `gorm:"size:20;not null;default:'idle'" json:"status"`
	Color  string      `gorm:"size:20;not null" json:"color"`
}

type Task struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// TaskID is the externally visible correlation id linking the task to
	// every event produced while processing it.
	TaskID  string     `gorm:"size:64;uniqueIndex;not null" json:"task_id"`
	Content string     `gorm:"type:text;not null" json:"content"`
	Status  TaskStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
}

type AgentOutput struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	AgentID uint   `gorm:"not null;index" json:"agent_id"`
	TaskID  string `gorm:"size:64;not null;index" json:"task_id"`
	// Seq is the position of this output within its task, assigned by the
	// orchestrator. (TaskID, AgentID, Seq) identifies the output for
	// duplicate suppression.
	Seq     int    `gorm:"not null" json:"seq"`
	Content string `gorm:"type:text;not null" json:"content"`
}

// AgentMetrics is latest-wins state per agent, not an append log. It is kept
// in memory and broadcast as agent_metrics; multiple updates for the same
// agent overwrite.
type AgentMetrics struct {
	AgentID        uint `json:"agent_id"`
	TasksCompleted int  `json:"tasks_completed"`
	TotalTasks     int  `json:"total_tasks"`
	ProcessingTime int  `json:"processing_time"`
}
