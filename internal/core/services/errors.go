package services

import "errors"

// Task errors
var (
	ErrEmptyTask     = errors.New("task: empty content")
	ErrTaskNotFound  = errors.New("task: not found")
	ErrTaskIDInvalid = errors.New("task: invalid task id")
)

// Agent errors
var (
	ErrAgentNotFound     = errors.New("agent: not found")
	ErrAgentInvalidInput = errors.New("agent: invalid input")
	ErrNoAgents          = errors.New("agent: no agents available")
)
