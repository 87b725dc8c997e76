package bootstrap

import (
	"context"
	"fmt"
	"time"

	"voicetask/internal/config"
	"voicetask/internal/controller"
	"voicetask/internal/handler"
	"voicetask/internal/model"
	"voicetask/internal/pkg/logger"
	"voicetask/internal/repository/contract"
	"voicetask/internal/repository/implementation"
	"voicetask/internal/repository/memory"
	"voicetask/internal/service"
	"voicetask/internal/websocket"
	"voicetask/pkg/database"
	"voicetask/pkg/events"
	"voicetask/pkg/extraction"
	"voicetask/pkg/llm/factory"
	pktNats "voicetask/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreNats     = "nats"
	StorePostgres = "postgres"
)

type Container struct {
	// Controllers
	TaskController       controller.ITaskController
	NoteController       controller.INoteController
	ExtractionController controller.IExtractionController

	// Services (exposed for the CLI)
	TaskService     service.ITaskService
	NoteService     service.INoteService
	PipelineService service.IPipelineService

	// Background services, run by main.go
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	VoiceHandler *handler.VoiceHandler

	// Set when NATS is configured and reachable.
	NatsConn *pktNats.Conn

	Logger logger.ILogger

	blockingBus bool
	closers     []func()
}

// Close releases the connections opened by NewContainer, newest first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

type Option func(*Container)

// WithLogger replaces the default console+file logger.
func WithLogger(l logger.ILogger) Option {
	return func(c *Container) {
		c.Logger = l
	}
}

// WithBlockingBus makes publishers on the in-process bus wait until the
// consumer has handled the message. One-shot commands use it so the outcome
// event leaves before the process exits.
func WithBlockingBus() Option {
	return func(c *Container) {
		c.blockingBus = true
	}
}

func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	c := &Container{}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	}
	sysLogger := c.Logger

	// 1. Event bus (in process)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: c.blockingBus,
		},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 2. Infrastructure
	rdb, err := connectRedis(ctx, cfg, sysLogger)
	if err != nil {
		c.Close()
		return nil, err
	}
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var eventPublisher events.Publisher
	if cfg.App.NatsURL != "" {
		conn, err := pktNats.Connect(cfg.App.NatsURL)
		if err != nil {
			if cfg.Store.Driver == StoreNats {
				c.Close()
				return nil, fmt.Errorf("bootstrap: nats store: %w", err)
			}
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS, external events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			c.NatsConn = conn
			c.closers = append(c.closers, conn.Close)

			natsPub, err := pktNats.NewPublisher(ctx, conn)
			if err != nil {
				sysLogger.Warn("Bootstrap", "Failed to set up NATS stream", map[string]interface{}{"error": err.Error()})
			} else {
				eventPublisher = natsPub
			}
		}
	}

	store, err := c.newKVStore(ctx, cfg, rdb)
	if err != nil {
		c.Close()
		return nil, err
	}

	// 3. Repositories
	taskRepo := implementation.NewTaskRepository(store, cfg.Store.MaxRetries)
	noteRepo := implementation.NewNoteRepository(store, cfg.Store.MaxRetries)

	// 4. Extraction client
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		GeminiAPIKey:  cfg.Keys.GoogleGemini,
		GeminiBaseURL: cfg.Ai.GeminiBaseURL,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("bootstrap: llm provider: %w", err)
	}
	sampling := extraction.DefaultSampling()
	sampling.Temperature = cfg.Ai.Temperature
	sampling.TopP = cfg.Ai.TopP
	sampling.TopK = cfg.Ai.TopK
	sampling.MaxOutputTokens = cfg.Ai.MaxOutputTokens
	extractor := extraction.NewClient(
		llmProvider,
		sysLogger,
		extraction.WithSampling(sampling),
		extraction.WithRateLimit(cfg.Ai.RatePerMinute),
	)
	sysLogger.Info("Bootstrap", "LLM provider ready", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})

	// 5. Services
	publisherService := service.NewPublisherService(pubSub)
	c.TaskService = service.NewTaskService(taskRepo, publisherService, eventPublisher, sysLogger)
	c.NoteService = service.NewNoteService(noteRepo, eventPublisher, sysLogger)
	c.PipelineService = service.NewPipelineService(extractor, c.TaskService, publisherService, sysLogger)

	// 6. Realtime
	c.WebSocketHub = websocket.NewHub(rdb, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, c.WebSocketHub, eventPublisher, sysLogger)
	c.VoiceHandler = handler.NewVoiceHandler(c.WebSocketHub, websocket.VoiceConfig{
		Pipeline: c.PipelineService,
		Locale:   cfg.Voice.Locale,
		Cooldown: cfg.Voice.GateCooldown,
		Logger:   logger.NewIsolatedLogger(cfg.Voice.LogFilePath),
	}, cfg.App.JwtSecret, sysLogger)

	// 7. Controllers
	c.TaskController = controller.NewTaskController(c.TaskService)
	c.NoteController = controller.NewNoteController(c.NoteService)
	c.ExtractionController = controller.NewExtractionController(c.PipelineService)

	return c, nil
}

// connectRedis returns nil when no Redis URL is configured. An unreachable
// Redis is only fatal when it backs the store.
func connectRedis(ctx context.Context, cfg *config.Config, log logger.ILogger) (*redis.Client, error) {
	if cfg.App.RedisURL == "" {
		if cfg.Store.Driver == StoreRedis {
			return nil, fmt.Errorf("bootstrap: redis store requires REDIS_URL")
		}
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		if cfg.Store.Driver == StoreRedis {
			_ = rdb.Close()
			return nil, fmt.Errorf("bootstrap: redis store: %w", err)
		}
		log.Warn("Bootstrap", "Failed to connect to Redis, cluster fan-out disabled", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil, nil
	}
	return rdb, nil
}

func (c *Container) newKVStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (contract.KVStore, error) {
	switch cfg.Store.Driver {
	case StoreMemory, "":
		c.Logger.Warn("Bootstrap", "Using in-memory store, data is lost on restart", nil)
		return memory.NewKVStore(), nil

	case StoreRedis:
		return implementation.NewRedisKVStore(rdb, "voicetask:"), nil

	case StoreNats:
		if c.NatsConn == nil {
			return nil, fmt.Errorf("bootstrap: nats store requires NATS_URL")
		}
		kv, err := c.NatsConn.KeyValue(ctx, cfg.Store.NatsKVBucket)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: nats kv bucket: %w", err)
		}
		return implementation.NewNatsKVStore(kv), nil

	case StorePostgres:
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction(), &model.KVEntry{})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: postgres store: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			c.closers = append(c.closers, func() { _ = sqlDB.Close() })
		}
		return implementation.NewGormKVStore(db), nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
}
