package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/config"
	"github.com/Dots-Uzbekistan/Lexora/internal/controller"
	"github.com/Dots-Uzbekistan/Lexora/internal/metrics"
	"github.com/Dots-Uzbekistan/Lexora/internal/model"
	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/serverutils"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/implementation"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/memory"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/redisstore"
	"github.com/Dots-Uzbekistan/Lexora/internal/service"
	"github.com/Dots-Uzbekistan/Lexora/internal/websocket"
	"github.com/Dots-Uzbekistan/Lexora/pkg/consultation"
	"github.com/Dots-Uzbekistan/Lexora/pkg/database"
	"github.com/Dots-Uzbekistan/Lexora/pkg/llm"
	"github.com/Dots-Uzbekistan/Lexora/pkg/llm/factory"
	pktNats "github.com/Dots-Uzbekistan/Lexora/pkg/nats"
	"github.com/Dots-Uzbekistan/Lexora/pkg/parser"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/events"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/executor"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/session"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/stage"
	"github.com/Dots-Uzbekistan/Lexora/pkg/search/brave"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	moduleName = "BOOTSTRAP"

	// EventsTopic carries research workflow events on the in-process bus
	EventsTopic = "research.events"
)

type Container struct {
	Logger      *logger.ZapLogger
	AuditLogger *logger.ZapLogger
	Metrics     *metrics.Metrics

	// Controllers
	SystemController       controller.ISystemController
	ConsultationController controller.IConsultationController
	ResearchController     controller.IResearchController

	// Services, exposed for the CLI and for main.go to run
	ResearchService     service.IResearchService
	ConsultationService service.IConsultationService
	ConsumerService     service.IConsumerService

	WebSocketHub *websocket.Hub

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	rdb     *redis.Client
	db      *gorm.DB
}

// NewContainer builds the whole object graph. Optional infrastructure (NATS,
// Redis, the model) degrades with a warning; a broken session store is fatal.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{
		Logger:      logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production"),
		AuditLogger: logger.NewIsolatedLogger(cfg.App.AuditLogFilePath),
		Metrics:     metrics.New(),
	}

	// 1. Infrastructure
	c.rdb = connectRedis(cfg.App.RedisURL, c.Logger)

	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, c.Logger)
		if err != nil {
			c.Logger.Warn(moduleName, "NATS unavailable, events stay in process", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			c.natsPub = natsPub
		}
	}

	researchRepo, consultationRepo, err := c.sessionRepositories(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	// 2. Event bus
	c.pubSub = gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	publisherService := service.NewPublisherService(EventsTopic, c.pubSub)

	c.WebSocketHub = websocket.NewHub(c.rdb, c.Logger)

	// an untyped nil keeps the consumer from calling a nil *Publisher
	var forwarder service.EventForwarder
	if c.natsPub != nil {
		forwarder = c.natsPub
	}
	c.ConsumerService = service.NewConsumerService(c.pubSub, EventsTopic, c.WebSocketHub, forwarder, c.Logger)

	// 3. Collaborators
	searcher := brave.NewBraveProvider(cfg.Keys.Brave, cfg.Research.MaxSearchResults, cfg.Research.SearchRatePerSecond)
	docParser := parser.NewLexParser(cfg.Research.ParseTimeout)

	answerModel, err := newModel(cfg, cfg.Ai.LLMModel, cfg.Ai.Temperature)
	if err != nil {
		c.Close()
		return nil, err
	}
	analysisModel := answerModel
	if cfg.Ai.LLMProvider == "openai" && cfg.Ai.ReasoningModel != "" {
		// reasoning models only accept the default temperature
		analysisModel, err = newModel(cfg, cfg.Ai.ReasoningModel, 0)
		if err != nil {
			c.Close()
			return nil, err
		}
	}
	c.Logger.Info(moduleName, "LLM provider configured", map[string]interface{}{
		"provider":        cfg.Ai.LLMProvider,
		"model":           cfg.Ai.LLMModel,
		"reasoning_model": cfg.Ai.ReasoningModel,
		"enabled":         answerModel != nil,
	})

	// Redis sessions may be shared by several replicas, so turns are
	// serialized with a Redis lease instead of an in-process mutex
	var (
		researchOpts     []session.Option
		consultationOpts []consultation.Option
	)
	if cfg.Session.Store == "redis" {
		researchOpts = append(researchOpts, session.WithLocker(redisstore.NewLocker(c.rdb, store.ServiceResearch, cfg.Session.LockTTL)))
		consultationOpts = append(consultationOpts, consultation.WithLocker(redisstore.NewLocker(c.rdb, store.ServiceConsultation, cfg.Session.LockTTL)))
	}

	// 4. Research workflow
	composer := stage.NewComposer(analysisModel, cfg.Research.LLMTimeout, c.AuditLogger)
	stages := stage.NewController(searcher, docParser, composer, stage.Config{
		SearchTimeout:     cfg.Research.SearchTimeout,
		ParseTimeout:      cfg.Research.ParseTimeout,
		SearchConcurrency: cfg.Research.SearchConcurrency,
	}, c.AuditLogger)
	exec := executor.New(stages, c.AuditLogger,
		executor.WithStepBudget(cfg.Research.StepBudget),
		executor.WithRecorder(c.Metrics),
	)
	orchestrator := session.NewOrchestrator(
		researchRepo,
		stages,
		exec,
		events.NewBusPublisher(publisherService, c.Logger),
		c.AuditLogger,
		researchOpts...,
	)

	// 5. Consultation
	engine := consultation.NewEngine(consultationRepo, searcher, docParser, answerModel, consultation.Config{
		MaxResults:    cfg.Research.MaxSearchResults,
		SearchTimeout: cfg.Research.SearchTimeout,
		ParseTimeout:  cfg.Research.ParseTimeout,
		LLMTimeout:    cfg.Research.LLMTimeout,
	}, c.Logger, consultationOpts...)

	c.ResearchService = service.NewResearchService(orchestrator, c.Metrics)
	c.ConsultationService = service.NewConsultationService(engine, c.Metrics)

	// 6. Controllers
	auth := serverutils.NewJwtMiddleware(cfg.Auth.JwtSecret)
	c.SystemController = controller.NewSystemController(c.Metrics.Handler())
	c.ConsultationController = controller.NewConsultationController(c.ConsultationService, auth)
	c.ResearchController = controller.NewResearchController(c.ResearchService, c.WebSocketHub, auth)

	return c, nil
}

// newModel returns a nil provider when the model is disabled.
func newModel(cfg *config.Config, model string, temperature float64) (llm.LLMProvider, error) {
	baseURL := cfg.Ai.OpenAIBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	provider, err := factory.NewLLMProvider(factory.Config{
		Provider:    cfg.Ai.LLMProvider,
		Model:       model,
		APIKey:      cfg.Keys.OpenAI,
		BaseURL:     baseURL,
		Temperature: temperature,
		MaxTokens:   cfg.Ai.MaxTokens,
		Timeout:     cfg.Research.LLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	return provider, nil
}

// sessionRepositories returns one store per service so the same session id
// never crosses from research into consultation.
func (c *Container) sessionRepositories(cfg *config.Config) (contract.SessionRepository, contract.SessionRepository, error) {
	var research, consult contract.SessionRepository
	switch cfg.Session.Store {
	case "", "memory":
		research = memory.NewSessionRepository(cfg.Session.TTL)
		consult = memory.NewSessionRepository(cfg.Session.TTL)

	case "redis":
		if c.rdb == nil {
			return nil, nil, errors.New("SESSION_STORE=redis requires a reachable REDIS_URL")
		}
		research = redisstore.NewSessionRepository(c.rdb, store.ServiceResearch, cfg.Session.TTL)
		consult = redisstore.NewSessionRepository(c.rdb, store.ServiceConsultation, cfg.Session.TTL)

	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			return nil, nil, fmt.Errorf("connect session database: %w", err)
		}
		if err := db.AutoMigrate(&model.ChatSession{}); err != nil {
			return nil, nil, fmt.Errorf("migrate session table: %w", err)
		}
		c.db = db
		research = implementation.NewSessionRepository(db, store.ServiceResearch)
		consult = implementation.NewSessionRepository(db, store.ServiceConsultation)

	default:
		return nil, nil, fmt.Errorf("unsupported SESSION_STORE: %s", cfg.Session.Store)
	}

	c.Logger.Info(moduleName, "Session store configured", map[string]interface{}{
		"store": cfg.Session.Store,
		"ttl":   cfg.Session.TTL.String(),
	})
	return research, consult, nil
}

// connectRedis returns nil when Redis is not configured or not reachable.
func connectRedis(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(moduleName, "Failed to parse Redis URL, using it as an address", map[string]interface{}{
			"error": err.Error(),
		})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(moduleName, "Redis unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// Close releases the infrastructure connections.
func (c *Container) Close() {
	if c.pubSub != nil {
		_ = c.pubSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = c.AuditLogger.Sync()
	_ = c.Logger.Sync()
}
