package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shopradar/models"
)

// DatasetWriter appends batch results to local JSONL files, one file per
// kind per day. Reports are written as standalone JSON documents. The
// layout mirrors the S3 exporter so local and archived data line up.
type DatasetWriter struct {
	mu  sync.Mutex
	dir string
}

func NewDatasetWriter(dir string) *DatasetWriter {
	return &DatasetWriter{dir: dir}
}

func (w *DatasetWriter) Name() string { return "dataset" }

func (w *DatasetWriter) appendLines(kind string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Join(w.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func (w *DatasetWriter) WriteProducts(_ context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	data, err := encodeJSONL(products)
	if err != nil {
		return err
	}
	return w.appendLines("products", data)
}

func (w *DatasetWriter) WritePriceChanges(_ context.Context, events []models.PriceChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	data, err := encodeJSONL(events)
	if err != nil {
		return err
	}
	return w.appendLines("price-changes", data)
}

func (w *DatasetWriter) WriteAlerts(_ context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	data, err := encodeJSONL(alerts)
	if err != nil {
		return err
	}
	return w.appendLines("alerts", data)
}

func (w *DatasetWriter) WriteTrendReport(_ context.Context, report *models.TrendReport) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Join(w.dir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("report-%s.json", report.GeneratedAt.UTC().Format("20060102-150405"))
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}
