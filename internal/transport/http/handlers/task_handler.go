package handlers

import (
	"errors"

	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/core/services"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	"github.com/crewboard/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type TaskHandler struct {
	crew   ports.CrewService
	logger *logger.Logger
}

func NewTaskHandler(crew ports.CrewService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{crew: crew, logger: logger}
}

func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("task_create_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("task_create_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	task, err := h.crew.Submit(c.Context(), req.Content, req.TaskID)
	if err != nil {
		if errors.Is(err, services.ErrEmptyTask) {
			h.logger.Warnw("task_create_rejected")
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("task_create_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	h.logger.Infow("task_create_success", "task_id", task.TaskID)
	return c.Status(fiber.StatusCreated).JSON(dto.TaskToResponse(task))
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	task, err := h.crew.GetTask(c.Context(), taskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "task not found",
			})
		}
		h.logger.Errorw("task_get_failed", "task_id", taskID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.TaskToResponse(task))
}

func (h *TaskHandler) GetOutputs(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	outputs, err := h.crew.GetOutputs(c.Context(), taskID)
	if err != nil {
		h.logger.Errorw("outputs_list_failed", "task_id", taskID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to fetch outputs",
		})
	}
	return c.JSON(dto.OutputsToResponse(outputs))
}
