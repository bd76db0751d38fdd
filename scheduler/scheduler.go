package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"shopradar/config"
	"shopradar/models"
)

// BatchRunner runs one scrape batch end to end.
type BatchRunner interface {
	RunBatch(ctx context.Context, req models.BatchRequest) (*models.BatchResult, error)
}

// Scheduler fires the configured batch on a cron expression or a fixed
// interval. A cron expression wins when both are set.
type Scheduler struct {
	cfg    *config.Config
	runner BatchRunner
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
}

func New(cfg *config.Config, runner BatchRunner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runOnce(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runOnce(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, run with -batch for a one-off scrape")
	}

	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	req := s.cfg.Batch.ToRequest()
	if len(req.SearchQueries) == 0 || len(req.Platforms) == 0 {
		log.Println("Scheduled run skipped: no batch configured")
		return
	}

	result, err := s.runner.RunBatch(ctx, req)
	if err != nil {
		log.Printf("Scheduled run error: %v", err)
		return
	}
	log.Printf("Scheduled run finished: %d products, %d price changes, %d alerts, %d failed jobs",
		len(result.Products), len(result.PriceChanges), len(result.Alerts), len(result.JobFailures))
}

// TriggerNow runs the configured batch immediately.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}
