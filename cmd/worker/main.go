package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"freelanceos/internal/config"
	"freelanceos/internal/mqhandler"
	"freelanceos/internal/repository"
	"freelanceos/internal/runner"
	"freelanceos/internal/service/inbox"
	"freelanceos/pkg/db"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/mq"
	"freelanceos/pkg/otel"
	redisclient "freelanceos/pkg/redis"
	"freelanceos/pkg/util"
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

	log.Info("Starting worker...")

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    "freelanceos-worker",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("OpenTelemetry init failed", zap.Error(err))
	}
	defer shutdownTracing()

	// Redis
	rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	// DLQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	inv, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal("LLM init failed", zap.Error(err))
	}

	stores := repository.NewPostgresStores(dbConn, log)
	inboxService := inbox.NewService(stores.Messages, stores.Clients, stores.Projects, inv, log)

	// handlers
	analyzeHandler := mqhandler.NewMessageReceivedHandler(inboxService, deduper, retryCounter, log)
	bulkHandler := mqhandler.NewTaskBulkCreatedHandler(stores.Tasks, retryCounter, log)

	consumers := []struct {
		queue, routingKey string
		handle            mq.MessageHandler
	}{
		{"message.received.analyze.q", mq.RoutingMessageReceived, analyzeHandler.Handle},
		{"task.bulk_created.create.q", mq.RoutingTaskBulkCreated, bulkHandler.Handle},
	}
	for _, cs := range consumers {
		log.Info("Init consumer", zap.String("queue", cs.queue))
		consumer, err := mq.NewConsumer(cfg.MQ.URL, cs.queue, cs.routingKey, log)
		if err != nil {
			log.Fatal("Consumer init failed", zap.String("queue", cs.queue), zap.Error(err))
		}
		consumer.SetHandler(cs.handle)
		consumer.SetDeadLetter(publisher)
		defer consumer.Close()

		go func(queue string) {
			if err := consumer.StartConsuming(); err != nil {
				log.Error("Consumer crashed", zap.String("queue", queue), zap.Error(err))
				stop()
			}
		}(cs.queue)
		go func() {
			<-ctx.Done()
			consumer.Stop()
		}()
	}

	// Invoice runner
	orchestrator := runner.NewOrchestrator(stores.Invoices, log)
	go orchestrator.Run(ctx, cfg.Worker.InvoiceCheckInterval)

	log.Info("Worker running")
	<-ctx.Done()
	log.Info("Worker shutting down")
}
