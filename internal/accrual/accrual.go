package accrual

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/metrics"
)

//go:generate mockgen -source=accrual.go -destination=mock_accrual.go -package=accrual

const defaultBatch = 1000

// Processor is the investment side of an accrual run. The listing methods
// page by id: they return up to limit ids greater than after, in id order.
type Processor interface {
	ActiveInvestments(ctx context.Context, after string, limit int) ([]string, error)
	UnsettledInvestments(ctx context.Context, after string, limit int) ([]string, error)
	Accrue(ctx context.Context, id string, now time.Time) (domain.AccrualStep, error)
	Settle(ctx context.Context, id string, now time.Time) (bool, error)
}

type Service struct {
	processor Processor
	workers   int
	batch     int
	schedule  string

	// runs are serialized; cron ticks and HTTP triggers never overlap
	mu sync.Mutex
}

func New(cfg *config.Config, processor Processor) *Service {
	batch := cfg.AccrualBatch
	if batch <= 0 {
		batch = defaultBatch
	}
	return &Service{
		processor: processor,
		workers:   cfg.AccrualWorkers,
		batch:     batch,
		schedule:  cfg.AccrualSchedule,
	}
}

// Start schedules Run when a schedule is configured. The scheduler stops
// with ctx.
func (s *Service) Start(ctx context.Context) error {
	if s.schedule == "" {
		zap.L().Info("accrual schedule is not set, waiting for external triggers")
		return nil
	}
	logger := cron.PrintfLogger(zap.NewStdLog(zap.L()))
	c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Run(ctx, time.Now()); err != nil {
			zap.L().Error("scheduled accrual run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid accrual schedule %q: %w", s.schedule, err)
	}
	c.Start()
	zap.L().Info("accrual scheduler started", zap.String("schedule", s.schedule))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		zap.L().Info("accrual scheduler stopped")
	}()
	return nil
}

// Run executes the accrual pass and then the settlement pass. A failure on
// one investment is counted and never stops the others.
func (s *Service) Run(ctx context.Context, now time.Time) (domain.AccrualReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		mu     sync.Mutex
		report domain.AccrualReport
	)
	count := func(f func(r *domain.AccrualReport)) {
		mu.Lock()
		f(&report)
		mu.Unlock()
	}

	err := s.sweep(ctx, s.processor.ActiveInvestments, func(ctx context.Context, id string) {
		step, err := s.processor.Accrue(ctx, id, now)
		switch {
		case err != nil:
			zap.L().Error("accrual failed", zap.String("investment", id), zap.Error(err))
			metrics.AccrualInvestments.WithLabelValues("failed").Inc()
			count(func(r *domain.AccrualReport) { r.Failed++ })
			return
		case step.Skipped:
			metrics.AccrualInvestments.WithLabelValues("skipped").Inc()
			count(func(r *domain.AccrualReport) { r.Skipped++ })
		default:
			metrics.AccrualInvestments.WithLabelValues("processed").Inc()
			count(func(r *domain.AccrualReport) { r.Processed++ })
		}
		if step.Matured {
			metrics.AccrualInvestments.WithLabelValues("completed").Inc()
			count(func(r *domain.AccrualReport) { r.Completed++ })
		}
	})
	if err != nil {
		zap.L().Error("failed to fetch active investments", zap.Error(err))
		return report, err
	}

	err = s.sweep(ctx, s.processor.UnsettledInvestments, func(ctx context.Context, id string) {
		settled, err := s.processor.Settle(ctx, id, now)
		if err != nil {
			zap.L().Error("settlement failed", zap.String("investment", id), zap.Error(err))
			metrics.AccrualInvestments.WithLabelValues("failed").Inc()
			count(func(r *domain.AccrualReport) { r.Failed++ })
			return
		}
		if settled {
			metrics.AccrualInvestments.WithLabelValues("settled").Inc()
			count(func(r *domain.AccrualReport) { r.Settled++ })
		}
	})
	if err != nil {
		zap.L().Error("failed to fetch matured investments", zap.Error(err))
		return report, err
	}

	zap.L().Info("accrual run finished",
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("completed", report.Completed),
		zap.Int("settled", report.Settled),
	)
	return report, ctx.Err()
}

type pageFn func(ctx context.Context, after string, limit int) ([]string, error)

// sweep walks every page of ids so a pass is never limited to the first batch.
func (s *Service) sweep(ctx context.Context, page pageFn, fn func(ctx context.Context, id string)) error {
	after := ""
	for {
		ids, err := page(ctx, after, s.batch)
		if err != nil {
			return err
		}
		s.each(ctx, ids, fn)
		if len(ids) < s.batch {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		after = ids[len(ids)-1]
	}
}

func (s *Service) each(ctx context.Context, ids []string, fn func(ctx context.Context, id string)) {
	wp := NewWorkerPool(ctx, s.workers)
	defer wp.Close()
	for _, id := range ids {
		if err := wp.Submit(ctx, func(ctx context.Context) { fn(ctx, id) }); err != nil {
			zap.L().Warn("accrual run interrupted", zap.Error(err))
			return
		}
	}
}
