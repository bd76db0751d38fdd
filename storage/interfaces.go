package storage

import (
	"context"

	"shopradar/models"
)

// HistoryStore is the price-history surface the tracker needs: snapshots
// for one product in observation order, oldest first, and appends.
type HistoryStore interface {
	Snapshots(productID string) ([]models.PriceSnapshot, error)
	AppendSnapshot(snapshot *models.PriceSnapshot) error
}

// ResultSink receives batch output for durable storage or export. Writes
// are fire-and-forget from the pipeline's point of view; a sink error
// never fails the batch.
type ResultSink interface {
	Name() string
	WriteProducts(ctx context.Context, products []models.Product) error
	WritePriceChanges(ctx context.Context, events []models.PriceChangeEvent) error
	WriteAlerts(ctx context.Context, alerts []models.Alert) error
	WriteTrendReport(ctx context.Context, report *models.TrendReport) error
}

// RunRecorder tracks batch runs for bookkeeping.
type RunRecorder interface {
	CreateRun(run *models.ScrapeRun) error
	UpdateRun(run *models.ScrapeRun) error
}
