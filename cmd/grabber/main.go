package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"media_grabber/internal/classifier"
	"media_grabber/internal/config"
	"media_grabber/internal/fetcher"
	"media_grabber/internal/materializer"
	"media_grabber/internal/progress"
	"media_grabber/internal/publisher"
	"media_grabber/internal/report"
	"media_grabber/internal/scheduler"
	"media_grabber/internal/service"
	"media_grabber/internal/source/partition"
	"media_grabber/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("grabber failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	printer := progress.New(os.Stdout, cfg.Output.NoColor)

	if err := os.MkdirAll(cfg.Output.Dir, os.ModePerm); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	deps := service.Deps{
		Source: partition.New(partition.Config{
			Dir:         cfg.Source.Dir,
			FilePattern: cfg.Source.FilePattern,
			First:       cfg.Source.FirstPartition,
			Count:       cfg.Source.PartitionCount,
		}, logger),
		Classifier: classifier.New(classifier.Policy(cfg.Classify.OnMalformed), logger),
		Materializer: materializer.New(materializer.Config{
			OutputDir: cfg.Output.Dir,
			Location:  cfg.Location(),
		}, fetcher.New(fetcher.Config{
			Timeout:   cfg.Download.Timeout,
			UserAgent: cfg.Download.UserAgent,
		}), printer, logger),
		Reports: report.New(report.Config{
			Dir:             cfg.Output.Dir,
			MultiTitlesFile: cfg.Output.MultiTitlesFile,
			VideoListFile:   cfg.Output.VideoListFile,
			Location:        cfg.Location(),
		}, printer),
		Logger: logger,
	}

	if cfg.Database.Enabled() {
		db, err := postgres.Open(ctx, cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)

		deps.Catalog = postgres.NewCatalogStore(db)
		deps.Runs = postgres.NewRunStore(db)
		deps.TxManager = postgres.NewTransactionManager(db)
	}

	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()

		deps.Publisher = rabbitMQ
	}

	pipeline := service.NewPipeline(deps, service.Consumers{
		Posts:       cfg.Consumers.Posts,
		MultiTitles: cfg.Consumers.MultiTitles,
		VideoList:   cfg.Consumers.VideoList,
	})

	if cfg.Schedule.Interval > 0 {
		return scheduler.NewScheduler(pipeline, cfg.Schedule.Interval, logger).Start(ctx)
	}

	if _, err := pipeline.Run(ctx); err != nil {
		printer.Problem(err)
		return err
	}
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}
