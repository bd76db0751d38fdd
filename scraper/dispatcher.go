package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"shopradar/config"
	"shopradar/httputil"
	"shopradar/models"
)

// DispatchResult carries everything a batch of scrape jobs produced,
// grouped by platform. A platform appears in Failures once per job that
// gave up; one job failing never hides another job's records.
type DispatchResult struct {
	Records  map[string][]models.RawRecord
	Failures map[string][]models.JobFailure
}

type jobOutcome struct {
	platform string
	records  []models.RawRecord
	failure  *models.JobFailure
}

// Dispatcher fans scrape jobs out across platform adapters with bounded
// concurrency. Each platform gets its own rate limiter so a burst of
// queries for one source can't trip its API limits.
type Dispatcher struct {
	adapters      map[string]Adapter
	limiters      map[string]*rate.Limiter
	policy        RetryPolicy
	maxConcurrent int
	batchTimeout  time.Duration
}

func NewDispatcher(cfg *config.Config, clients *httputil.Clients) (*Dispatcher, error) {
	d := &Dispatcher{
		adapters:      make(map[string]Adapter),
		limiters:      make(map[string]*rate.Limiter),
		policy:        policyFromConfig(cfg.Dispatcher.Retry),
		maxConcurrent: cfg.Dispatcher.MaxConcurrent,
		batchTimeout:  cfg.Dispatcher.BatchTimeout,
	}
	if d.maxConcurrent < 1 {
		d.maxConcurrent = 1
	}

	for id, platform := range cfg.Platforms {
		adapter, err := NewAdapter(platform, clients)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", id, err)
		}
		d.adapters[id] = adapter
		d.limiters[id] = newLimiter(platform)
	}

	return d, nil
}

// RegisterAdapter installs or replaces the adapter for a platform. The
// platform gets an unthrottled limiter unless configuration already set one.
func (d *Dispatcher) RegisterAdapter(adapter Adapter) {
	id := adapter.Platform()
	d.adapters[id] = adapter
	if _, ok := d.limiters[id]; !ok {
		d.limiters[id] = rate.NewLimiter(rate.Inf, 1)
	}
}

func newLimiter(pc *config.PlatformConfig) *rate.Limiter {
	if pc.RateLimitRPS <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := pc.RateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(pc.RateLimitRPS), burst)
}

// Run executes one job per (query, platform) pair and collects results in
// a fixed order regardless of which goroutine finishes first.
func (d *Dispatcher) Run(ctx context.Context, queries, platforms []string, maxResults int) *DispatchResult {
	if d.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.batchTimeout)
		defer cancel()
	}

	var jobs []models.ScrapeJob
	for _, query := range queries {
		for _, platform := range platforms {
			jobs = append(jobs, models.ScrapeJob{
				Platform:   platform,
				Query:      query,
				MaxResults: maxResults,
				Status:     models.JobPending,
			})
		}
	}

	log.Printf("Dispatching %d scrape jobs across %d platforms", len(jobs), len(platforms))

	outcomes := make([]jobOutcome, len(jobs))
	sem := make(chan struct{}, d.maxConcurrent)
	var wg sync.WaitGroup

	for i := range jobs {
		wg.Add(1)
		go func(job *models.ScrapeJob, slot *jobOutcome) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			*slot = d.runJob(ctx, job)
		}(&jobs[i], &outcomes[i])
	}

	wg.Wait()

	result := &DispatchResult{
		Records:  make(map[string][]models.RawRecord),
		Failures: make(map[string][]models.JobFailure),
	}
	for _, outcome := range outcomes {
		if outcome.failure != nil {
			result.Failures[outcome.platform] = append(result.Failures[outcome.platform], *outcome.failure)
			continue
		}
		result.Records[outcome.platform] = append(result.Records[outcome.platform], outcome.records...)
	}

	return result
}

func (d *Dispatcher) runJob(ctx context.Context, job *models.ScrapeJob) jobOutcome {
	outcome := jobOutcome{platform: job.Platform}
	job.Status = models.JobRunning

	adapter, ok := d.adapters[job.Platform]
	if !ok {
		outcome.failure = exhaust(job, "unknown platform")
		return outcome
	}
	limiter := d.limiters[job.Platform]

	var lastErr error
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			outcome.failure = exhaust(job, "canceled")
			return outcome
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				outcome.failure = exhaust(job, "canceled")
				return outcome
			}
		}

		job.AttemptCount = attempt
		records, err := adapter.Fetch(ctx, job.Query, job.MaxResults)
		if err == nil {
			if job.MaxResults > 0 && len(records) > job.MaxResults {
				records = records[:job.MaxResults]
			}
			log.Printf("[%s] fetched %d records for %q", job.Platform, len(records), job.Query)
			job.Status = models.JobSucceeded
			outcome.records = records
			return outcome
		}

		lastErr = err
		job.Status = models.JobFailed
		log.Printf("[%s] attempt %d/%d for %q failed: %v", job.Platform, attempt, d.policy.MaxAttempts, job.Query, err)

		if Classify(err) == KindPermanent {
			break
		}
		if ctx.Err() != nil {
			outcome.failure = exhaust(job, "canceled")
			return outcome
		}
		if attempt < d.policy.MaxAttempts {
			if err := sleep(ctx, d.policy.Delay(attempt)); err != nil {
				outcome.failure = exhaust(job, "canceled")
				return outcome
			}
		}
	}

	outcome.failure = exhaust(job, lastErr.Error())
	return outcome
}

// exhaust marks a job terminally failed and collapses it into the failure
// value reported to the caller.
func exhaust(job *models.ScrapeJob, reason string) *models.JobFailure {
	job.Status = models.JobExhausted
	job.LastError = reason
	return &models.JobFailure{
		Platform: job.Platform,
		Query:    job.Query,
		Reason:   reason,
		Attempts: job.AttemptCount,
	}
}
