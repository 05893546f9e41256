package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ragdesk/internal/ai"
	"ragdesk/internal/config"
	"ragdesk/internal/model"
	"ragdesk/internal/pkg/tokenizer"
	postgresClient "ragdesk/internal/platform/postgres"
	rabbitmqClient "ragdesk/internal/platform/rabbitmq"
	redisClient "ragdesk/internal/platform/redis"
	"ragdesk/internal/repository"
	"ragdesk/internal/worker"
)

// App holds the long-lived process resources: one database pool, one
// Redis client, one broker connection, one tokenizer, all acquired at
// start and injected into the services that need them.
type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	Postgres      *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Publisher     *rabbitmqClient.MessagePublisher
	AIClient      *ai.Client
	Encoding      tokenizer.Encoding
	MessageWorker *worker.MessagePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	db, err := postgresClient.New(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.DocumentChunk{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	enc, err := tokenizer.ForModel(cfg.LLM.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	publisher, err := rabbitmqClient.NewMessagePublisher(mqConn, cfg.RabbitMQ.MessagePersistQueue)
	if err != nil {
		return nil, err
	}

	messageRepo := repository.NewMessageRepository(db)
	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue, logger)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		Postgres:      db,
		Redis:         redisCli,
		MQConn:        mqConn,
		Publisher:     publisher,
		AIClient:      ai.NewClient(),
		Encoding:      enc,
		MessageWorker: messageWorker,
		StartedAt:     time.Now(),
	}, nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" || env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Postgres != nil {
		sqlDB, err := a.Postgres.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
