package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dividi/internal/amqp"
	"dividi/internal/classify"
	"dividi/internal/config"
	"dividi/internal/log"
	"dividi/internal/storage"
	"dividi/internal/worker"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.LevelFromEnv(cfg.LogLevel),
		Component: log.ComponentWorker,
		Format:    cfg.LogFormat,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var classifier classify.Classifier
	if cfg.GeminiAPIKey != "" {
		gemini, err := classify.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.Error("failed to initialize Gemini classifier", log.FieldError, err)
			os.Exit(1)
		}
		defer gemini.Close()
		classifier = gemini
		logger.Info("using Gemini classifier", "model", cfg.GeminiModel)
	} else {
		classifier = classify.KeywordClassifier{}
		logger.Info("no GEMINI_API_KEY set, using keyword classifier")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	categorizeWorker := worker.NewCategorizeWorker(repo, classifier, logger)

	logger.Info("starting dividi-worker", log.FieldOperation, log.OpStartup, "queue", cfg.AMQPQueue)
	for {
		err := categorizeWorker.Run(ctx, amqpClient)
		if errors.Is(err, context.Canceled) {
			break
		}
		logger.Error("consumer stopped, reconnecting", log.FieldError, err)
		if err := amqpClient.Reconnect(ctx); err != nil {
			break
		}
	}
	logger.Info("worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
