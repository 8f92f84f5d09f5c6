package bootstrap

import (
	"log"

	"github.com/aidoc/backend-go/internal/config"
	"github.com/aidoc/backend-go/internal/database"
	"github.com/aidoc/backend-go/internal/di"
	"github.com/aidoc/backend-go/internal/kafka"
	"github.com/aidoc/backend-go/internal/logger"
	"github.com/aidoc/backend-go/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
}

// Init bootstraps configuration, logger, database connections, Kafka and the
// dependency injection container shared by the server and worker processes.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	app := &App{}

	// Initialize database.
	if _, err := database.InitDB(); err != nil {
		return nil, err
	}
	app.addCleanup(database.CloseDB)

	// Initialize Redis (task status store).
	if _, err := database.InitRedis(); err != nil {
		logger.Warn("Redis unavailable, task status reporting disabled", zap.Error(err))
	} else {
		app.addCleanup(database.CloseRedis)
	}

	// Initialize Kafka producer (task dispatcher enqueue side).
	cfg := config.AppConfig
	if cfg.Kafka.Enabled {
		if err := kafka.InitProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			return nil, err
		}
		app.addCleanup(func() error { return kafka.GetProducer().Close() })
	}

	// Assemble services through the DI container.
	di.InitContainer()
	if err := di.RegisterProviders(cfg); err != nil {
		return nil, err
	}

	logger.Info("Application bootstrap complete",
		zap.String("env", cfg.Server.Env),
		zap.Bool("kafka", cfg.Kafka.Enabled))

	return app, nil
}

// StartWorker attaches the ingestion pipeline to the Kafka consumer group.
// Call only from the worker process.
func (a *App) StartWorker() error {
	cfg := config.AppConfig

	return di.Invoke(func(ingest *services.IngestService, producer *kafka.Producer) error {
		if err := kafka.InitConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, ingest.HandleTask, producer, cfg.Kafka.MaxAttempts); err != nil {
			return err
		}
		a.addCleanup(func() error { return kafka.GetConsumer().Close() })
		return nil
	})
}

func (a *App) addCleanup(task func() error) {
	a.cleanupTasks = append(a.cleanupTasks, task)
}

// Shutdown runs cleanup tasks in reverse registration order.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			logger.Warn("Cleanup task failed", zap.Error(err))
		}
	}
	logger.Sync()
}
