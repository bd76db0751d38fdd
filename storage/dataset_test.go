package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shopradar/models"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return lines
}

func TestDatasetWriterAppends(t *testing.T) {
	dir := t.TempDir()
	writer := NewDatasetWriter(dir)
	ctx := context.Background()

	batch := []models.Product{testProduct("amazon_B001", 29.99), testProduct("amazon_B002", 15.00)}
	if err := writer.WriteProducts(ctx, batch); err != nil {
		t.Fatalf("WriteProducts: %v", err)
	}
	if err := writer.WriteProducts(ctx, []models.Product{testProduct("ebay_333", 9.99)}); err != nil {
		t.Fatalf("WriteProducts second batch: %v", err)
	}

	path := filepath.Join(dir, "products", time.Now().UTC().Format("2006-01-02")+".jsonl")
	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("expected 3 JSONL lines, got %d", len(lines))
	}

	var p models.Product
	if err := json.Unmarshal([]byte(lines[2]), &p); err != nil {
		t.Fatalf("line 3 is not valid JSON: %v", err)
	}
	if p.ID != "ebay_333" {
		t.Errorf("appended product id = %q, want ebay_333", p.ID)
	}
	if p.Price == nil || !p.Price.Equal(decimal.NewFromFloat(9.99)) {
		t.Errorf("appended product price = %v, want 9.99", p.Price)
	}
}

func TestDatasetWriterSkipsEmpty(t *testing.T) {
	dir := t.TempDir()
	writer := NewDatasetWriter(dir)
	ctx := context.Background()

	if err := writer.WriteProducts(ctx, nil); err != nil {
		t.Fatalf("WriteProducts: %v", err)
	}
	if err := writer.WriteAlerts(ctx, nil); err != nil {
		t.Fatalf("WriteAlerts: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files for empty batches, found %d entries", len(entries))
	}
}

func TestDatasetWriterReport(t *testing.T) {
	dir := t.TempDir()
	writer := NewDatasetWriter(dir)

	report := &models.TrendReport{
		GeneratedAt: time.Date(2025, 6, 1, 10, 45, 0, 0, time.UTC),
		Summary:     models.ReportSummary{TotalProducts: 5, TotalPlatforms: 2},
	}
	if err := writer.WriteTrendReport(context.Background(), report); err != nil {
		t.Fatalf("WriteTrendReport: %v", err)
	}

	path := filepath.Join(dir, "reports", "report-20250601-104500.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file: %v", err)
	}
	var decoded models.TrendReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Summary.TotalProducts != 5 {
		t.Errorf("total_products = %d, want 5", decoded.Summary.TotalProducts)
	}
}
