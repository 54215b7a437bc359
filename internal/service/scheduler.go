package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"deposit-collector/internal/service/collection"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/utils/lock"
)

const (
	scheduleLockKey = "cron:lock:schedule_collections"
	gasGuardLockKey = "cron:lock:gas_price_guard"
)

type SchedulerConfig struct {
	ScheduleSpec string        // e.g. "@every 1m"
	GasCheckSpec string        // e.g. "@every 30s"
	Cooldown     time.Duration // minimum time between two jobs of one address
	BatchSize    int           // addresses per blockchain per run
}

// Scheduler is the cron side of collection: it picks addresses and enqueues jobs.
// Only the instance holding the Redis lock runs a given tick.
type Scheduler struct {
	cron      *cron.Cron
	cfg       SchedulerConfig
	locker    lock.DistributedLock
	chains    ChainStore
	addresses SchedulableAddresses
	enqueuer  CollectionEnqueuer
	checker   *GasPriceChecker
	now       func() time.Time
}

func NewScheduler(cfg SchedulerConfig, locker lock.DistributedLock, chains ChainStore, addresses SchedulableAddresses, enqueuer CollectionEnqueuer, checker *GasPriceChecker) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		cfg:       cfg,
		locker:    locker,
		chains:    chains,
		addresses: addresses,
		enqueuer:  enqueuer,
		checker:   checker,
		now:       time.Now,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ScheduleSpec, s.ScheduleCollections); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.GasCheckSpec, s.CheckGasPrices); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("collection scheduler started",
		zap.String("schedule", s.cfg.ScheduleSpec),
		zap.String("gas_check", s.cfg.GasCheckSpec),
	)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("collection scheduler stopped")
}

// ScheduleCollections is the cron entry.
func (s *Scheduler) ScheduleCollections() {
	ctx := context.Background()
	s.locked(ctx, scheduleLockKey, func() {
		n, err := s.scheduleCollections(ctx)
		if err != nil {
			logger.Error("schedule collections failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("collection jobs enqueued", zap.Int("count", n))
		}
	})
}

// CheckGasPrices is the cron entry of the gas price guard.
func (s *Scheduler) CheckGasPrices() {
	ctx := context.Background()
	s.locked(ctx, gasGuardLockKey, func() {
		if err := s.checker.CheckAll(ctx); err != nil {
			logger.Error("gas price guard failed", zap.Error(err))
		}
	})
}

func (s *Scheduler) locked(ctx context.Context, key string, fn func()) {
	locked, err := s.locker.Acquire(ctx, key, time.Minute)
	if err != nil || !locked {
		logger.Debug("scheduler lock held elsewhere", zap.String("key", key), zap.Error(err))
		return
	}
	defer func() {
		if err := s.locker.Release(ctx, key); err != nil {
			logger.Warn("release scheduler lock failed", zap.String("key", key), zap.Error(err))
		}
	}()
	fn()
}

func (s *Scheduler) scheduleCollections(ctx context.Context) (int, error) {
	chains, err := s.chains.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	before := s.now().Add(-s.cfg.Cooldown)
	for _, chain := range chains {
		if chain.GasGuardActive() {
			logger.Info("skip collections while gas price is high", zap.String("blockchain", chain.Key))
			continue
		}
		addrs, err := s.addresses.ListSchedulable(ctx, chain.ID, before, s.cfg.BatchSize)
		if err != nil {
			return enqueued, err
		}
		for _, a := range addrs {
			if err := s.enqueuer.EnqueueCollection(ctx, a.ID, collection.ActionAuto); err != nil {
				logger.Warn("enqueue collection failed", zap.Uint64("address_id", a.ID), zap.Error(err))
				continue
			}
			enqueued++
		}
	}
	return enqueued, nil
}
