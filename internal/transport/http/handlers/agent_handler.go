package handlers

import (
	"strconv"

	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/domain"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	"github.com/crewboard/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type AgentHandler struct {
	crew   ports.CrewService
	logger *logger.Logger
}

func NewAgentHandler(crew ports.CrewService, logger *logger.Logger) *AgentHandler {
	return &AgentHandler{crew: crew, logger: logger}
}

func (h *AgentHandler) GetAgents(c *fiber.Ctx) error {
	agents, err := h.crew.GetAgents(c.Context())
	if err != nil {
		h.logger.Errorw("agents_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to fetch agents",
		})
	}
	return c.JSON(dto.AgentsToResponse(agents))
}

func (h *AgentHandler) GetAgent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		h.logger.Warnw("agent_get_invalid_id", "id", c.Params("id"))
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid agent id",
		})
	}

	agent, err := h.crew.GetAgentByID(c.Context(), uint(id))
	if err != nil {
		h.logger.Warnw("agent_get_not_found", "id", id)
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "agent not found",
		})
	}
	return c.JSON(dto.AgentToResponse(agent))
}

func (h *AgentHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("agent_create_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("agent_create_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	agent, err := h.crew.CreateAgent(c.Context(), ports.CreateAgentInput{
		Name:   req.Name,
		Role:   req.Role,
		Icon:   req.Icon,
		Color:  req.Color,
		Status: domain.AgentStatus(req.Status),
	})
	if err != nil {
		h.logger.Errorw("agent_create_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	h.logger.Infow("agent_create_success", "id", agent.ID, "name", agent.Name)
	return c.Status(fiber.StatusCreated).JSON(dto.AgentToResponse(agent))
}
