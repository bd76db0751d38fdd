package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BatchRequest is the invocation surface for one scrape batch.
type BatchRequest struct {
	SearchQueries       []string     `json:"search_queries"`
	Platforms           []string     `json:"platforms"`
	MaxProductsPerQuery int          `json:"max_products_per_query"`
	Filters             BatchFilters `json:"filters"`
	EnablePriceTracking bool         `json:"enable_price_tracking"`
	EnableTrendAnalysis bool         `json:"enable_trend_analysis"`
	PriceAlerts         []AlertRule  `json:"price_alerts"`
}

// BatchFilters narrows the normalized product set before tracking and
// analysis. Products without a price never pass a price bound.
type BatchFilters struct {
	MinPrice         *decimal.Decimal `json:"min_price"`
	MaxPrice         *decimal.Decimal `json:"max_price"`
	MinRating        *float64         `json:"min_rating"`
	AvailabilityOnly bool             `json:"availability_only"`
}

// BatchResult is the complete outcome of one batch run.
type BatchResult struct {
	Products     []Product          `json:"products"`
	PriceChanges []PriceChangeEvent `json:"price_changes"`
	Alerts       []Alert            `json:"alerts"`
	TrendReport  *TrendReport       `json:"trend_report"`
	JobFailures  []JobFailure       `json:"job_failures"`
}

// BatchStats is the run-level bookkeeping stored with each run record.
type BatchStats struct {
	JobsRun        int `json:"jobs_run"`
	JobsFailed     int `json:"jobs_failed"`
	RecordsFetched int `json:"records_fetched"`
	RecordsDropped int `json:"records_dropped"`
	Products       int `json:"products"`
	PriceChanges   int `json:"price_changes"`
	AlertsFired    int `json:"alerts_fired"`
}

// ToJSON returns JSON-serializable run metadata.
func (s *BatchStats) ToJSON() json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
