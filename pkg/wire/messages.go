// Package wire defines the closed set of JSON message kinds exchanged
// between the server and its viewers, one message per websocket frame.
// Anything that does not decode into one of these kinds is rejected at the
// boundary and never reaches business logic.
package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	KindAgentStatus   = "agent_status"
	KindAgentOutput   = "agent_output"
	KindSystemMessage = "system_message"
	KindTaskSubmit    = "task_submit"
	KindTaskStatus    = "task_status"
	KindAgentMetrics  = "agent_metrics"
)

// ErrMalformed reports an inbound frame that does not parse into a known
// message kind. The frame is dropped; the connection stays open.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("wire: malformed message: %s", e.Reason)
}

// Message is one frame of the protocol. DedupeKey returns the idempotency
// key for the message and whether it has one; keyless messages (system
// messages) are never suppressed.
type Message interface {
	Kind() string
	DedupeKey() (string, bool)
}

type AgentStatusMessage struct {
	Type    string `json:"type"`
	AgentID uint   `json:"agentId"`
	Status  string `json:"status"`
}

func (m *AgentStatusMessage) Kind() string { return KindAgentStatus }

// Agent status is a latest-wins signal; repeating it is harmless, so it
// carries no dedupe key.
func (m *AgentStatusMessage) DedupeKey() (string, bool) { return "", false }

type AgentOutputMessage struct {
	Type       string `json:"type"`
	AgentID    uint   `json:"agentId"`
	AgentName  string `json:"agentName"`
	AgentIcon  string `json:"agentIcon"`
	AgentColor string `json:"agentColor"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	TaskID     string `json:"taskId"`
	Seq        int    `json:"seq"`
}

func (m *AgentOutputMessage) Kind() string { return KindAgentOutput }

// The task correlation id alone would collapse all outputs of one task into
// a single "seen" entry, so the key includes the agent and the per-task
// sequence number.
func (m *AgentOutputMessage) DedupeKey() (string, bool) {
	return fmt.Sprintf("%s:%d:%d", m.TaskID, m.AgentID, m.Seq), true
}

type SystemMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func (m *SystemMessage) Kind() string { return KindSystemMessage }

// System messages have no natural idempotency key; delivery is best-effort
// at-most-once and never suppressed.
func (m *SystemMessage) DedupeKey() (string, bool) { return "", false }

type TaskSubmitMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	TaskID  string `json:"taskId,omitempty"`
}

func (m *TaskSubmitMessage) Kind() string { return KindTaskSubmit }

func (m *TaskSubmitMessage) DedupeKey() (string, bool) {
	if m.TaskID == "" {
		return "", false
	}
	return m.TaskID, true
}

type TaskStatusMessage struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

func (m *TaskStatusMessage) Kind() string { return KindTaskStatus }

func (m *TaskStatusMessage) DedupeKey() (string, bool) {
	return fmt.Sprintf("%s:%s", m.TaskID, m.Status), true
}

type AgentMetricsMessage struct {
	Type           string `json:"type"`
	AgentID        uint   `json:"agentId"`
	TasksCompleted int    `json:"tasksCompleted"`
	TotalTasks     int    `json:"totalTasks"`
	ProcessingTime int    `json:"processingTime"`
}

func (m *AgentMetricsMessage) Kind() string { return KindAgentMetrics }

// Metrics are latest-wins state; re-delivery just re-applies the same value.
func (m *AgentMetricsMessage) DedupeKey() (string, bool) { return "", false }

// NewSystemMessage stamps the current time in RFC3339.
func NewSystemMessage(content string) *SystemMessage {
	return &SystemMessage{
		Type:      KindSystemMessage,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func NewTaskStatusMessage(taskID, status string) *TaskStatusMessage {
	return &TaskStatusMessage{Type: KindTaskStatus, TaskID: taskID, Status: status}
}

func NewAgentStatusMessage(agentID uint, status string) *AgentStatusMessage {
	return &AgentStatusMessage{Type: KindAgentStatus, AgentID: agentID, Status: status}
}

type envelope struct {
	Type string `json:"type"`
}

// Decode parses a frame into its concrete message type. It enforces the
// closed kind set and the per-kind required fields.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ErrMalformed{Reason: "not a JSON object"}
	}

	switch env.Type {
	case KindAgentStatus:
		var m AgentStatusMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &ErrMalformed{Reason: "bad agent_status payload"}
		}
		return &m, nil
	case KindAgentOutput:
		var m AgentOutputMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &ErrMalformed{Reason: "bad agent_output payload"}
		}
		if m.TaskID == "" {
			return nil, &ErrMalformed{Reason: "agent_output missing taskId"}
		}
		return &m, nil
	case KindSystemMessage:
		var m SystemMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &ErrMalformed{Reason: "bad system_message payload"}
		}
		return &m, nil
	case KindTaskSubmit:
		var m TaskSubmitMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &ErrMalformed{Reason: "bad task_submit payload"}
		}
		return &m, nil
	case KindTaskStatus:
		var m TaskStatusMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &ErrMalformed{Reason: "bad task_status payload"}
		}
		if m.TaskID == "" {
			return nil, &ErrMalformed{Reason: "task_status missing taskId"}
		}
		return &m, nil
	case KindAgentMetrics:
		var m AgentMetricsMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &ErrMalformed{Reason: "bad agent_metrics payload"}
		}
		return &m, nil
	case "":
		return nil, &ErrMalformed{Reason: "missing type field"}
	default:
		return nil, &ErrMalformed{Reason: fmt.Sprintf("unknown type %q", env.Type)}
	}
}
