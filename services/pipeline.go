package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"shopradar/models"
	"shopradar/scraper"
	"shopradar/storage"
)

// Pipeline runs one batch end to end: dispatch scrape jobs, normalize the
// raw records, apply filters, track prices, analyze trends, and fan the
// results out to the configured sinks. Source-side failures surface as
// job failures in the result, never as an error from RunBatch.
type Pipeline struct {
	dispatcher *scraper.Dispatcher
	normalizer *Normalizer
	tracker    *PriceTracker

	runs  storage.RunRecorder
	sinks []storage.ResultSink
}

func NewPipeline(dispatcher *scraper.Dispatcher, normalizer *Normalizer, tracker *PriceTracker) *Pipeline {
	return &Pipeline{
		dispatcher: dispatcher,
		normalizer: normalizer,
		tracker:    tracker,
	}
}

func (p *Pipeline) SetRunRecorder(runs storage.RunRecorder) { p.runs = runs }

func (p *Pipeline) AddSink(sink storage.ResultSink) { p.sinks = append(p.sinks, sink) }

func (p *Pipeline) RunBatch(ctx context.Context, req models.BatchRequest) (*models.BatchResult, error) {
	if len(req.SearchQueries) == 0 {
		return nil, fmt.Errorf("batch has no search queries")
	}
	if len(req.Platforms) == 0 {
		return nil, fmt.Errorf("batch has no platforms")
	}

	batchID := uuid.NewString()
	startedAt := time.Now().UTC()
	log.Printf("pipeline: batch %s starting: %d queries x %d platforms", batchID, len(req.SearchQueries), len(req.Platforms))

	run := &models.ScrapeRun{
		BatchID:   batchID,
		StartedAt: startedAt,
		Status:    models.RunStatusRunning,
	}
	if p.runs != nil {
		if err := p.runs.CreateRun(run); err != nil {
			log.Printf("pipeline: recording run start: %v", err)
		}
	}

	dispatch := p.dispatcher.Run(ctx, req.SearchQueries, req.Platforms, req.MaxProductsPerQuery)

	var raw []models.RawRecord
	failures := make([]models.JobFailure, 0)
	for _, platform := range req.Platforms {
		raw = append(raw, dispatch.Records[platform]...)
		failures = append(failures, dispatch.Failures[platform]...)
	}

	products, dropped := p.normalizer.NormalizeBatch(raw)
	products = applyFilters(products, req.Filters)

	result := &models.BatchResult{
		Products:     products,
		PriceChanges: make([]models.PriceChangeEvent, 0),
		Alerts:       make([]models.Alert, 0),
		JobFailures:  failures,
	}

	if req.EnablePriceTracking {
		result.PriceChanges, result.Alerts = p.tracker.TrackAll(products, req.PriceAlerts)
	}
	if req.EnableTrendAnalysis {
		result.TrendReport = AnalyzeTrends(products, p.tracker.Histories(products))
	}

	stats := models.BatchStats{
		JobsRun:        len(req.SearchQueries) * len(req.Platforms),
		JobsFailed:     len(failures),
		RecordsFetched: len(raw),
		RecordsDropped: dropped,
		Products:       len(products),
		PriceChanges:   len(result.PriceChanges),
		AlertsFired:    len(result.Alerts),
	}

	p.export(ctx, result)

	if p.runs != nil {
		finishedAt := time.Now().UTC()
		run.FinishedAt = &finishedAt
		run.Status = models.RunStatusCompleted
		if stats.JobsRun > 0 && stats.JobsFailed == stats.JobsRun {
			run.Status = models.RunStatusFailed
		}
		run.Stats = stats.ToJSON()
		if err := p.runs.UpdateRun(run); err != nil {
			log.Printf("pipeline: recording run end: %v", err)
		}
	}

	log.Printf("pipeline: batch %s done: %d products, %d price changes, %d alerts, %d job failures",
		batchID, stats.Products, stats.PriceChanges, stats.AlertsFired, stats.JobsFailed)

	return result, nil
}

func (p *Pipeline) export(ctx context.Context, result *models.BatchResult) {
	for _, sink := range p.sinks {
		if len(result.Products) > 0 {
			if err := sink.WriteProducts(ctx, result.Products); err != nil {
				log.Printf("pipeline: sink %s: writing products: %v", sink.Name(), err)
			}
		}
		if len(result.PriceChanges) > 0 {
			if err := sink.WritePriceChanges(ctx, result.PriceChanges); err != nil {
				log.Printf("pipeline: sink %s: writing price changes: %v", sink.Name(), err)
			}
		}
		if len(result.Alerts) > 0 {
			if err := sink.WriteAlerts(ctx, result.Alerts); err != nil {
				log.Printf("pipeline: sink %s: writing alerts: %v", sink.Name(), err)
			}
		}
		if result.TrendReport != nil {
			if err := sink.WriteTrendReport(ctx, result.TrendReport); err != nil {
				log.Printf("pipeline: sink %s: writing trend report: %v", sink.Name(), err)
			}
		}
	}
}

// applyFilters drops products outside the requested bounds. Price bounds
// exclude products without a price; a null price is never treated as zero.
func applyFilters(products []models.Product, filters models.BatchFilters) []models.Product {
	if filters.MinPrice == nil && filters.MaxPrice == nil && filters.MinRating == nil && !filters.AvailabilityOnly {
		return products
	}

	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if filters.MinPrice != nil && (p.Price == nil || p.Price.LessThan(*filters.MinPrice)) {
			continue
		}
		if filters.MaxPrice != nil && (p.Price == nil || p.Price.GreaterThan(*filters.MaxPrice)) {
			continue
		}
		if filters.MinRating != nil && (p.Rating == nil || *p.Rating < *filters.MinRating) {
			continue
		}
		if filters.AvailabilityOnly && p.Availability != models.AvailabilityInStock {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}
