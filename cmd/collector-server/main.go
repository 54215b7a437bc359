package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"deposit-collector/internal/chain/ethereum"
	"deposit-collector/internal/handler"
	"deposit-collector/internal/model"
	"deposit-collector/internal/repository"
	"deposit-collector/internal/server"
	"deposit-collector/internal/service"
	"deposit-collector/internal/service/address"
	"deposit-collector/internal/service/collection"
	"deposit-collector/internal/service/deposit"
	"deposit-collector/internal/service/mq"
	"deposit-collector/internal/worker"
	"deposit-collector/pkg/cache"
	"deposit-collector/pkg/config"
	"deposit-collector/pkg/database"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/utils/lock"

	_ "deposit-collector/docs/swagger"
)

// @title Deposit Collector API
// @version 1.0
// @description Deposit address provisioning and collection control

// @host localhost:8080
// @BasePath /api/v1
func main() {
	config.Init()

	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	cfg := config.Global
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.ConnectPostgres(cfg.DB.PostgresDSN(), cfg.App.Env == "development")
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if cfg.App.Env == "development" {
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("auto migrate failed", zap.Error(err))
		}
		logger.Info("schema auto-migrated (development)")
	}

	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}

	// configuration is read once; restart to pick up catalog changes
	catalog, err := repository.LoadCatalog(ctx, db)
	if err != nil {
		logger.Fatal("load catalog failed", zap.Error(err))
	}

	registry, err := ethereum.NewRegistry(ctx, catalog, ethereum.Options{
		OpenTimeout: cfg.Collector.RPCOpenTimeout,
		ReadTimeout: cfg.Collector.RPCReadTimeout,
		IdleTimeout: cfg.Collector.RPCIdleTimeout,
	})
	if err != nil {
		logger.Fatal("dial blockchain nodes failed", zap.Error(err))
	}

	locker := lock.NewRedisLock(rdb)
	addresses := repository.NewAddressRepository(db)
	chains := repository.NewBlockchainRepository(db)

	// collection
	gateways := collection.FromRegistry(registry)
	policy := collection.NewPolicy(gateways)
	machine := collection.NewStateMachine(addresses, catalog,
		collection.NewCollector(policy, gateways),
		collection.NewRefueler(policy, gateways, locker, cfg.Collector.FeeLockTTL),
		cfg.Collector.CollectCooldown,
	)
	runner := collection.NewRunner(addresses, catalog, policy, machine)

	workerServer := worker.NewServer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Collector.WorkerConcurrency, runner)
	workerServer.Start()
	workerClient := worker.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Collector.CollectCooldown)

	scheduler := service.NewScheduler(service.SchedulerConfig{
		ScheduleSpec: cfg.Collector.ScheduleSpec,
		GasCheckSpec: cfg.Collector.GasCheckSpec,
		Cooldown:     cfg.Collector.CollectCooldown,
		BatchSize:    cfg.Collector.BatchSize,
	}, locker, chains, addresses, workerClient, service.NewGasPriceChecker(chains, gateways))
	if err := scheduler.Start(); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	// messaging
	var producer mq.Producer
	var consumer mq.Consumer
	if cfg.Redis.MQType == "kafka" {
		logger.Info("using Kafka as message bus", zap.Strings("brokers", cfg.Kafka.Brokers))
		producer = mq.NewKafkaProducer(cfg.Kafka.Brokers)
		consumer = mq.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	} else {
		logger.Info("using Redis Streams as message bus")
		producer = mq.NewRedisProducer(rdb)
		consumer = mq.NewRedisConsumer(rdb, cfg.Kafka.GroupID, cfg.Collector.ConsumerName)
	}

	go service.NewRelayService(repository.NewOutboxRepository(db), producer).Start(ctx)

	processor := deposit.NewProcessor(repository.NewDepositRepository(db), catalog)
	go func() {
		if err := consumer.Subscribe(ctx, cfg.Collector.DepositTopic, processor.Handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("deposit consumer stopped", zap.Error(err))
		}
	}()

	// management boundary
	addressService := address.NewService(catalog,
		repository.NewMemberRepository(db),
		addresses,
		address.FromRegistry(registry),
		locker,
		cache.NewMultiLevelCache(cache.NewMemoryCache(10*time.Minute, 15*time.Minute), cache.NewRedisCache(rdb)),
	)

	r := server.NewHTTPRouter(server.Handlers{
		Address:    handler.NewAddressHandler(addressService),
		Collection: handler.NewCollectionHandler(addresses, workerClient),
	})

	app, err := server.New(server.Config{
		HttpPort: cfg.App.HttpPort,
		GrpcPort: cfg.App.GrpcPort,
	}, r)
	if err != nil {
		logger.Fatal("server start failed", zap.Error(err))
	}

	app.Run(func(context.Context) {
		scheduler.Stop()
		workerServer.Stop()
		cancel()

		if err := consumer.Close(); err != nil {
			logger.Warn("close consumer", zap.Error(err))
		}
		if err := producer.Close(); err != nil {
			logger.Warn("close producer", zap.Error(err))
		}
		if err := workerClient.Close(); err != nil {
			logger.Warn("close worker client", zap.Error(err))
		}
		registry.Close()
	})

	logger.Info("closing database connections...")
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = rdb.Close()
}
