package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"freelanceos/internal/config"
	"freelanceos/internal/handler"
	"freelanceos/internal/httpserver"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/assistant"
	"freelanceos/internal/service/auth"
	"freelanceos/internal/service/entity"
	"freelanceos/internal/service/inbox"
	"freelanceos/internal/service/report"
	"freelanceos/internal/service/task"
	"freelanceos/internal/service/upload"
	"freelanceos/internal/service/wizard"
	"freelanceos/pkg/db"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/mq"
	"freelanceos/pkg/otel"
	"freelanceos/pkg/outbox"
	redisclient "freelanceos/pkg/redis"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    "freelanceos-api",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("OpenTelemetry init failed", zap.Error(err))
	}
	defer shutdownTracing()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init Redis
	rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	// Init MQ Publisher (outbox relay)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	inv, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal("LLM init failed", zap.Error(err))
	}

	// Repositories
	stores := repository.NewPostgresStores(dbConn, log)
	userRepo := repository.NewUserRepository(dbConn)
	outboxRepo := outbox.NewRepository(dbConn)

	// Services
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.TTL, log)
	wizardService := wizard.NewService(wizard.NewRedisDraftStore(rdb), stores.Projects, stores.Events, inv, log)
	taskService := task.NewService(stores.Tasks, inv, log)
	inboxService := inbox.NewService(stores.Messages, stores.Clients, stores.Projects, inv, log)
	reportService := report.NewService(stores, log)
	assistantService := assistant.NewService(stores.Conversations, assistant.NewRedisBroker(rdb, log), inv, assistant.Config{
		DefaultAgent:   cfg.Assistant.DefaultAgent,
		WhatsAppNumber: cfg.Assistant.WhatsAppNumber,
	}, log)
	uploadService := upload.NewService(cfg.Upload.Dir, cfg.Upload.BaseURL, cfg.Upload.MaxBytes, log)
	replayService := outbox.NewReplayService(outboxRepo, publisher, log)

	// Handlers
	handlers := httpserver.Handlers{
		Auth:        handler.NewAuthHandler(authService, log),
		Entity:      handler.NewEntityHandler(entity.Resources(stores), log),
		Wizard:      handler.NewWizardHandler(wizardService, log),
		Task:        handler.NewTaskHandler(taskService, log),
		Inbox:       handler.NewInboxHandler(inboxService, log),
		Report:      handler.NewReportHandler(reportService, log),
		Assistant:   handler.NewAssistantHandler(assistantService, log),
		Integration: handler.NewIntegrationHandler(inv, uploadService, log),
		Admin:       handler.NewAdminHandler(replayService, log),
	}

	// Outbox Dispatcher
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.Worker.OutboxInterval).
		WithBatchSize(cfg.Worker.OutboxBatchSize).
		WithMaxRetries(cfg.Worker.OutboxMaxRetries)
	go dispatcher.Start(ctx)

	router := httpserver.NewRouter(handlers, httpserver.Options{
		JWTSecret: cfg.JWT.Secret,
		UploadDir: cfg.Upload.Dir,
		Logger:    log,
		Ready: map[string]httpserver.ReadinessCheck{
			"db": dbConn.Ping,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
	})

	log.Info("Starting API", zap.String("port", cfg.Server.Port), zap.String("llm_provider", cfg.LLM.Provider))
	if err := router.Run(ctx, cfg.Server.Port, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
	log.Info("API shutdown complete")
}
