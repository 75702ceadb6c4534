package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/crewboard/backend/internal/config"
	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/core/services"
	"github.com/crewboard/backend/internal/infrastructure/db"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	transporthttp "github.com/crewboard/backend/internal/transport/http"
	"github.com/crewboard/backend/internal/transport/ws"
)

func main() {
	configPath := "config/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = ""
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	agentRepo, taskRepo, outputRepo, database := buildRepositories(cfg, log)

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, HEAD, PUT, DELETE, PATCH",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	hub := ws.NewHub(log)
	crew := services.NewCrewService(services.CrewServiceConfig{
		AgentRepo:   agentRepo,
		TaskRepo:    taskRepo,
		OutputRepo:  outputRepo,
		Broadcaster: hub,
		Logger:      log,
		Timing:      cfg.Crew,
	})

	if err := crew.EnsureDefaultAgents(context.Background()); err != nil {
		log.Fatalf("failed to seed agents: %v", err)
	}

	transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		Crew:   crew,
		Hub:    hub,
		Logger: log,
	})

	go func() {
		if err := app.Listen(cfg.Server.Address()); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()
	log.Infof("server started on %s", cfg.Server.Address())

	gracefulShutdown(app, crew, database, log)
}

// buildRepositories connects to Postgres when one is reachable and falls
// back to the in-memory stores otherwise; the core contract does not depend
// on durable storage.
func buildRepositories(cfg *config.Config, log *logger.Logger) (ports.AgentRepository, ports.TaskRepository, ports.OutputRepository, *gorm.DB) {
	database, err := db.NewPostgresConnection(cfg.Database)
	if err != nil {
		log.Warnf("database unavailable, using in-memory storage: %v", err)
		return db.NewMemoryAgentRepository(), db.NewMemoryTaskRepository(), db.NewMemoryOutputRepository(), nil
	}

	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Info("database connection established")

	return db.NewAgentRepository(database, log),
		db.NewTaskRepository(database, log),
		db.NewOutputRepository(database, log),
		database
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code == fiber.StatusNotFound || code == fiber.StatusRequestTimeout {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func gracefulShutdown(app *fiber.App, crew *services.CrewService, database *gorm.DB, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	// Let in-flight pipelines finish so no agent is left "working".
	crew.Wait()

	if database != nil {
		if err := db.Close(database); err != nil {
			log.Errorf("failed to close database connection: %v", err)
		}
	}

	log.Info("server exited gracefully")
}
