package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/felixniemeyer/ai-mediator/internal/config"
	"github.com/felixniemeyer/ai-mediator/internal/controller"
	"github.com/felixniemeyer/ai-mediator/internal/notify"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/ident"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/logger"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/mailer"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/sms"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
	"github.com/felixniemeyer/ai-mediator/internal/repository/implementation"
	"github.com/felixniemeyer/ai-mediator/internal/repository/memory"
	"github.com/felixniemeyer/ai-mediator/internal/service"
	"github.com/felixniemeyer/ai-mediator/internal/websocket"
	"github.com/felixniemeyer/ai-mediator/pkg/database"
	"github.com/felixniemeyer/ai-mediator/pkg/llm/factory"
	pktNats "github.com/felixniemeyer/ai-mediator/pkg/nats"
)

type Container struct {
	// Controllers
	SessionController       controller.ISessionController
	ParticipationController controller.IParticipationController

	// Background Services (Exposed for main.go to run)
	DispatchService service.IDispatchService

	// WebSockets
	WebSocketHub *websocket.Hub

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Redis is used by the redis store backend and the websocket hub.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// 2. Blob Store
	var store contract.BlobStore
	switch cfg.Store.Backend {
	case "redis":
		if rdb == nil {
			log.Fatalf("[FATAL] STORE_BACKEND=redis requires REDIS_URL")
		}
		store = implementation.NewRedisBlobStore(rdb, "mediator")
		log.Printf("[INFO] Using Blob Store: REDIS")
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Store.Postgres)
		if err != nil {
			log.Fatalf("[FATAL] Unable to connect to GORM DB: %v", err)
		}
		store, err = implementation.NewGormBlobStore(db)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize Postgres blob store: %v", err)
		}
		log.Printf("[INFO] Using Blob Store: POSTGRES")
	default:
		fileStore, err := implementation.NewFileBlobStore(cfg.Store.DataDir)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize file blob store: %v", err)
		}
		store = fileStore
		log.Printf("[INFO] Using Blob Store: FILE (%s)", cfg.Store.DataDir)
	}

	repo := implementation.NewMediationRepository(store)
	sessionLocks := memory.NewSessionLocks()
	idGen := ident.NewGenerator()

	// 3. Notification Sinks
	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)
	smsService := sms.NewTwilioService(
		cfg.SMS.TwilioAccountSID,
		cfg.SMS.TwilioAuthToken,
		cfg.SMS.FromNumber,
	)
	sink := notify.NewRouter(emailService, smsService)

	// 4. Event Bus (in-process dispatch hand-off)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	publisherService := service.NewPublisherService(cfg.App.DispatchTopic, pubSub)

	// NATS lifecycle events (optional)
	var eventPub service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPub = natsPub
		}
	}

	// 5. LLM Provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 6. WebSocket Hub (live answer feed)
	wsLogger := logger.NewIsolatedLogger("logs/feed.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 7. Services
	mediationService := service.NewMediationService(
		repo,
		idGen,
		sink,
		sessionLocks,
		publisherService,
		eventPub,
		sysLogger,
		cfg.App.ClientURL,
	)
	dispatchService := service.NewDispatchService(
		pubSub,
		cfg.App.DispatchTopic,
		repo,
		llmProvider,
		cfg.Ai.LLMTimeout,
		eventPub,
		wsHub,
		sysLogger,
	)
	participationService := service.NewParticipationService(repo)

	// 8. Controllers
	return &Container{
		SessionController:       controller.NewSessionController(mediationService),
		ParticipationController: controller.NewParticipationController(participationService, wsHub),

		DispatchService: dispatchService,
		WebSocketHub:    wsHub,
		Logger:          sysLogger,
	}
}
