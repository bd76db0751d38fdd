package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shopradar/models"
	"shopradar/storage"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func pricedProduct(id, title, price string) models.Product {
	return models.Product{
		ID:        id,
		Platform:  "amazon",
		Title:     title,
		Price:     decPtr(price),
		Currency:  "USD",
		ScrapedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func snapshots(prices ...string) []models.PriceSnapshot {
	history := make([]models.PriceSnapshot, len(prices))
	for i, p := range prices {
		history[i] = models.PriceSnapshot{
			ProductID:  "amazon_X",
			Price:      dec(p),
			Currency:   "USD",
			ObservedAt: time.Date(2026, 8, 19, 12, i, 0, 0, time.UTC),
		}
	}
	return history
}

func TestTrackPriceDrop(t *testing.T) {
	product := pricedProduct("amazon_X", "Gaming Laptop", "299.99")
	history := snapshots("450.00", "399.99")

	event, _ := Track(product, history, nil, 0)
	if event == nil {
		t.Fatal("expected a price change event")
	}

	if !event.PreviousPrice.Equal(dec("399.99")) {
		t.Errorf("previous = %s", event.PreviousPrice)
	}
	if !event.CurrentPrice.Equal(dec("299.99")) {
		t.Errorf("current = %s", event.CurrentPrice)
	}
	if !event.ChangeAmount.Equal(dec("-100.00")) {
		t.Errorf("change = %s, want -100.00", event.ChangeAmount)
	}
	if event.ChangePercentage == nil || !event.ChangePercentage.Equal(dec("-25")) {
		t.Errorf("pct = %v, want -25", event.ChangePercentage)
	}
	if event.TrendDirection != models.TrendDecreasing {
		t.Errorf("direction = %s", event.TrendDirection)
	}
	if !event.DetectedAt.Equal(product.ScrapedAt) {
		t.Errorf("DetectedAt = %v, want scrape time", event.DetectedAt)
	}
}

func TestTrackIncrease(t *testing.T) {
	product := pricedProduct("amazon_X", "Gaming Laptop", "110.00")
	event, _ := Track(product, snapshots("100.00"), nil, 0)

	if event == nil || event.TrendDirection != models.TrendIncreasing {
		t.Fatalf("event = %+v, want increasing", event)
	}
	if event.ChangePercentage == nil || !event.ChangePercentage.Equal(dec("10")) {
		t.Errorf("pct = %v, want 10", event.ChangePercentage)
	}
}

func TestTrackNoHistoryNoEvent(t *testing.T) {
	product := pricedProduct("amazon_X", "Gaming Laptop", "299.99")
	event, _ := Track(product, nil, nil, 0)
	if event != nil {
		t.Errorf("event = %+v, want none without history", event)
	}
}

func TestTrackNilPrice(t *testing.T) {
	product := pricedProduct("amazon_X", "Gaming Laptop", "10")
	product.Price = nil

	rules := []models.AlertRule{{Keyword: "", TargetPrice: dec("999"), Type: models.AlertBelow}}
	event, alerts := Track(product, snapshots("399.99"), rules, 0)

	if event != nil {
		t.Errorf("event = %+v, want none for nil price", event)
	}
	if len(alerts) != 0 {
		t.Errorf("alerts = %v, want none for nil price", alerts)
	}
}

func TestTrackUnchangedPrice(t *testing.T) {
	product := pricedProduct("amazon_X", "Gaming Laptop", "399.99")
	event, _ := Track(product, snapshots("399.99"), nil, 0)
	if event != nil {
		t.Errorf("event = %+v, want none for unchanged price", event)
	}
}

func TestTrackZeroPreviousPrice(t *testing.T) {
	product := pricedProduct("amazon_X", "Freebie No More", "10.00")
	event, _ := Track(product, snapshots("0"), nil, 0)

	if event == nil {
		t.Fatal("expected event")
	}
	if event.ChangePercentage != nil {
		t.Errorf("pct = %v, want nil when previous price is zero", event.ChangePercentage)
	}
	if event.TrendDirection != models.TrendIncreasing {
		t.Errorf("direction = %s", event.TrendDirection)
	}
}

func TestTrackNoiseThreshold(t *testing.T) {
	product := pricedProduct("amazon_X", "Gaming Laptop", "102.00")

	if event, _ := Track(product, snapshots("100.00"), nil, 5.0); event != nil {
		t.Errorf("2%% move with 5%% threshold produced event %+v", event)
	}

	product.Price = decPtr("106.00")
	if event, _ := Track(product, snapshots("100.00"), nil, 5.0); event == nil {
		t.Error("6% move with 5% threshold should produce an event")
	}
}

func TestTrackAlertFiresOnTransition(t *testing.T) {
	rules := []models.AlertRule{{Keyword: "laptop", TargetPrice: dec("320.00"), Type: models.AlertBelow}}

	product := pricedProduct("amazon_X", "Gaming Laptop 15in", "299.99")
	_, alerts := Track(product, snapshots("399.99"), rules, 0)

	if len(alerts) != 1 {
		t.Fatalf("alerts = %v, want 1", alerts)
	}
	alert := alerts[0]
	if alert.ProductID != "amazon_X" || alert.Keyword != "laptop" {
		t.Errorf("alert = %+v", alert)
	}
	if !alert.Price.Equal(dec("299.99")) || !alert.TargetPrice.Equal(dec("320.00")) {
		t.Errorf("alert prices = %s / %s", alert.Price, alert.TargetPrice)
	}
	if !alert.TriggeredAt.Equal(product.ScrapedAt) {
		t.Errorf("TriggeredAt = %v", alert.TriggeredAt)
	}
}

func TestTrackAlertNoRepeatFiring(t *testing.T) {
	rules := []models.AlertRule{{Keyword: "laptop", TargetPrice: dec("320.00"), Type: models.AlertBelow}}

	// Condition already held on the previous snapshot.
	product := pricedProduct("amazon_X", "Gaming Laptop 15in", "290.00")
	_, alerts := Track(product, snapshots("310.00"), rules, 0)

	if len(alerts) != 0 {
		t.Errorf("alerts = %v, want none when condition already held", alerts)
	}
}

func TestTrackAlertWithoutHistory(t *testing.T) {
	rules := []models.AlertRule{{Keyword: "", TargetPrice: dec("320.00"), Type: models.AlertBelow}}

	product := pricedProduct("amazon_X", "Gaming Laptop", "299.99")
	_, alerts := Track(product, nil, rules, 0)

	if len(alerts) != 1 {
		t.Errorf("alerts = %v, want 1 evaluated against current price alone", alerts)
	}
}

func TestTrackAlertKeywordMismatch(t *testing.T) {
	rules := []models.AlertRule{{Keyword: "mouse", TargetPrice: dec("320.00"), Type: models.AlertBelow}}

	product := pricedProduct("amazon_X", "Gaming Laptop", "299.99")
	_, alerts := Track(product, nil, rules, 0)

	if len(alerts) != 0 {
		t.Errorf("alerts = %v, want none for keyword mismatch", alerts)
	}
}

func TestTrackAboveAlert(t *testing.T) {
	rules := []models.AlertRule{{Keyword: "", TargetPrice: dec("100.00"), Type: models.AlertAbove}}

	product := pricedProduct("amazon_X", "GPU", "110.00")
	_, alerts := Track(product, snapshots("90.00"), rules, 0)
	if len(alerts) != 1 {
		t.Errorf("alerts = %v, want 1 for upward cross", alerts)
	}

	// Exactly at the target counts as holding.
	product.Price = decPtr("100.00")
	_, alerts = Track(product, snapshots("90.00"), rules, 0)
	if len(alerts) != 1 {
		t.Errorf("alerts = %v, want 1 at exact target", alerts)
	}
}

func TestPriceTrackerTrackAll(t *testing.T) {
	store := storage.NewMemoryStore()
	tracker := NewPriceTracker(store, 0)

	first := []models.Product{
		pricedProduct("amazon_A", "Gaming Laptop", "399.99"),
		pricedProduct("amazon_B", "Desk Lamp", "25.00"),
	}
	events, alerts := tracker.TrackAll(first, nil)
	if len(events) != 0 || len(alerts) != 0 {
		t.Fatalf("first run: events=%v alerts=%v", events, alerts)
	}

	history, err := store.Snapshots("amazon_A")
	if err != nil || len(history) != 1 {
		t.Fatalf("snapshot not appended: %v %v", history, err)
	}

	second := []models.Product{
		pricedProduct("amazon_A", "Gaming Laptop", "299.99"),
		pricedProduct("amazon_B", "Desk Lamp", "25.00"),
	}
	events, _ = tracker.TrackAll(second, nil)

	if len(events) != 1 {
		t.Fatalf("second run events = %v, want 1", events)
	}
	if events[0].ProductID != "amazon_A" || !events[0].ChangeAmount.Equal(dec("-100.00")) {
		t.Errorf("event = %+v", events[0])
	}

	history, _ = store.Snapshots("amazon_A")
	if len(history) != 2 {
		t.Errorf("history = %d snapshots, want 2", len(history))
	}
}

func TestPriceTrackerSkipsNilPrice(t *testing.T) {
	store := storage.NewMemoryStore()
	tracker := NewPriceTracker(store, 0)

	product := pricedProduct("amazon_C", "Mystery Box", "10")
	product.Price = nil

	events, alerts := tracker.TrackAll([]models.Product{product}, nil)
	if len(events) != 0 || len(alerts) != 0 {
		t.Errorf("events=%v alerts=%v", events, alerts)
	}

	history, _ := store.Snapshots("amazon_C")
	if len(history) != 0 {
		t.Errorf("nil-price product stored %d snapshots", len(history))
	}
}

func TestPriceTrackerHistories(t *testing.T) {
	store := storage.NewMemoryStore()
	tracker := NewPriceTracker(store, 0)

	products := []models.Product{pricedProduct("amazon_A", "Gaming Laptop", "399.99")}
	tracker.TrackAll(products, nil)

	histories := tracker.Histories(products)
	if len(histories["amazon_A"]) != 1 {
		t.Errorf("histories = %v", histories)
	}
	if _, ok := histories["amazon_missing"]; ok {
		t.Error("unexpected history for unknown product")
	}
}
