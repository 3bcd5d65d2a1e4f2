package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tour-booking/cmd"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/usecase"
	"tour-booking/internal/wire"
	"tour-booking/pkg/cache"
	"tour-booking/pkg/database"
	"tour-booking/pkg/outbox"
	"tour-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using production logger.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	var store cache.Cache
	if config.Redis.Addr != "" {
		client := cache.NewRedisClient(config.Redis)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err), zap.String("addr", config.Redis.Addr))
		}
		store = cache.NewRedisCache(client)
	} else {
		logger.Warn("REDIS_ADDR not set, using process-local cache")
		store = cache.NewMemoryCache()
	}

	repos := repository.NewRepository(db, logger)
	tx := repository.NewTransactor(db, logger, repository.TxConfig{
		MaxRetries:  config.Tx.MaxRetries,
		LockTimeout: config.Tx.LockTimeout,
	})

	service := usecase.NewService(usecase.Deps{
		Repo:   repos,
		Tx:     tx,
		Cache:  store,
		Config: config,
		Log:    logger,
	})

	if len(config.Kafka.Brokers) > 0 {
		writer := outbox.NewKafkaWriter(config.Kafka.Brokers)
		defer writer.Close()

		hostname, _ := os.Hostname()
		relay := outbox.NewRelay(logger, repos.Outbox,
			outbox.NewDispatcher(logger, writer, config.Kafka.Topic),
			hostname,
			outbox.WithBatchSize(config.Kafka.BatchSize),
			outbox.WithInterval(config.Kafka.PollInterval),
		)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("Outbox relay stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("KAFKA_BROKERS not set, domain events stay in the outbox table")
	}

	app := wire.Wiring(wire.Deps{
		Service: service,
		Cache:   store,
		Pinger:  db,
		Config:  config,
		Log:     logger,
	})

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
