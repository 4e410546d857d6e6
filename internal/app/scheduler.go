package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const limiterPruneInterval = time.Minute

// SessionSweeper отменяет просроченные сессии
type SessionSweeper interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// Pruner освобождает память, занятую неактивными ключами ограничителя
type Pruner interface {
	Prune() int
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper       SessionSweeper
	sweepInterval time.Duration
	pruner        Pruner
	logger        *zap.Logger
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewScheduler создаёт новый планировщик. sweepInterval 0 отключает периодическую очистку сессий,
// nil pruner отключает очистку ограничителя.
func NewScheduler(sweeper SessionSweeper, sweepInterval time.Duration, pruner Pruner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:       sweeper,
		sweepInterval: sweepInterval,
		pruner:        pruner,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("sweep_interval", s.sweepInterval),
		zap.Bool("prune_limiter", s.pruner != nil),
	)

	if s.sweeper != nil && s.sweepInterval > 0 {
		s.run(ctx, "session sweep", s.sweepInterval, s.sweepSessions)
	}
	if s.pruner != nil {
		s.run(ctx, "limiter prune", limiterPruneInterval, s.pruneLimiter)
	}
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, name string, interval time.Duration, task func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Первый запуск сразу при старте
		task(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				task(ctx)
			case <-s.stopChan:
				s.logger.Info("Background task stopped", zap.String("task", name))
				return
			case <-ctx.Done():
				s.logger.Info("Background task cancelled", zap.String("task", name))
				return
			}
		}
	}()
}

// sweepSessions отменяет сессии, время начала которых прошло без подтверждения или старта
func (s *Scheduler) sweepSessions(ctx context.Context) {
	n, err := s.sweeper.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("Failed to expire stale sessions", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Session sweep completed", zap.Int64("cancelled", n))
	}
}

func (s *Scheduler) pruneLimiter(context.Context) {
	if n := s.pruner.Prune(); n > 0 {
		s.logger.Debug("Rate limiter pruned", zap.Int("keys", n))
	}
}
