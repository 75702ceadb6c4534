package http

import (
	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	"github.com/crewboard/backend/internal/transport/http/handlers"
	"github.com/crewboard/backend/internal/transport/ws"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type RouterConfig struct {
	Crew   ports.CrewService
	Hub    *ws.Hub
	Logger *logger.Logger
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	agentHandler := handlers.NewAgentHandler(cfg.Crew, cfg.Logger)
	taskHandler := handlers.NewTaskHandler(cfg.Crew, cfg.Logger)
	sessionHandler := ws.NewSessionHandler(cfg.Crew, cfg.Hub, cfg.Logger)

	// Streaming endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(sessionHandler.Handle))

	// REST API
	api := app.Group("/api")

	agents := api.Group("/agents")
	agents.Get("/", agentHandler.GetAgents)
	agents.Post("/", agentHandler.CreateAgent)
	agents.Get("/:id", agentHandler.GetAgent)

	tasks := api.Group("/tasks")
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Get("/:taskId", taskHandler.GetTask)

	api.Get("/outputs/:taskId", taskHandler.GetOutputs)
}
