package services

import (
	"log"

	"github.com/shopspring/decimal"

	"shopradar/models"
	"shopradar/storage"
)

// Track compares a product's current price against its snapshot history
// and evaluates alert rules. It emits a price-change event only when a
// prior snapshot exists and the price moved beyond the noise threshold
// (a zero threshold counts any difference). Alerts fire on the transition
// into their condition; with no history the current price alone decides.
// Products without a price produce neither events nor alerts.
func Track(product models.Product, history []models.PriceSnapshot, rules []models.AlertRule, noiseThresholdPct float64) (*models.PriceChangeEvent, []models.Alert) {
	if product.Price == nil {
		return nil, nil
	}
	current := *product.Price

	var event *models.PriceChangeEvent
	if len(history) > 0 {
		previous := history[len(history)-1].Price
		change := current.Sub(previous)

		if significantChange(change, previous, noiseThresholdPct) {
			event = &models.PriceChangeEvent{
				ProductID:        product.ID,
				PreviousPrice:    previous,
				CurrentPrice:     current,
				ChangeAmount:     change,
				ChangePercentage: changePercentage(change, previous),
				DetectedAt:       product.ScrapedAt,
				TrendDirection:   models.DirectionOf(change),
			}
		}
	}

	var alerts []models.Alert
	for _, rule := range rules {
		if !rule.Matches(product.Title) || !rule.Holds(current) {
			continue
		}
		if len(history) > 0 && rule.Holds(history[len(history)-1].Price) {
			continue
		}
		alerts = append(alerts, models.Alert{
			ProductID:   product.ID,
			Title:       product.Title,
			Platform:    product.Platform,
			Keyword:     rule.Keyword,
			Type:        rule.Type,
			TargetPrice: rule.TargetPrice,
			Price:       current,
			TriggeredAt: product.ScrapedAt,
		})
	}

	return event, alerts
}

func significantChange(change, previous decimal.Decimal, thresholdPct float64) bool {
	if change.IsZero() {
		return false
	}
	if thresholdPct <= 0 {
		return true
	}
	if previous.IsZero() {
		return true
	}
	pct := change.Div(previous).Mul(decimal.NewFromInt(100)).Abs()
	return pct.GreaterThanOrEqual(decimal.NewFromFloat(thresholdPct))
}

// changePercentage is nil when the previous price is zero.
func changePercentage(change, previous decimal.Decimal) *decimal.Decimal {
	if previous.IsZero() {
		return nil
	}
	pct := change.Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
	return &pct
}

// PriceTracker runs Track over a batch against durable snapshot history.
// Products are processed sequentially so two observations of the same
// product within a batch never race on the snapshot list.
type PriceTracker struct {
	store          storage.HistoryStore
	noiseThreshold float64
}

func NewPriceTracker(store storage.HistoryStore, noiseThresholdPct float64) *PriceTracker {
	return &PriceTracker{store: store, noiseThreshold: noiseThresholdPct}
}

// TrackAll evaluates every priced product and appends its new snapshot.
// Store failures are logged and skip the affected product only.
func (t *PriceTracker) TrackAll(products []models.Product, rules []models.AlertRule) ([]models.PriceChangeEvent, []models.Alert) {
	events := make([]models.PriceChangeEvent, 0)
	alerts := make([]models.Alert, 0)

	for _, product := range products {
		if product.Price == nil {
			continue
		}

		history, err := t.store.Snapshots(product.ID)
		if err != nil {
			log.Printf("tracker: loading history for %s: %v", product.ID, err)
			continue
		}

		event, fired := Track(product, history, rules, t.noiseThreshold)
		if event != nil {
			events = append(events, *event)
		}
		alerts = append(alerts, fired...)

		snapshot := &models.PriceSnapshot{
			ProductID:  product.ID,
			Price:      *product.Price,
			Currency:   product.Currency,
			ObservedAt: product.ScrapedAt,
		}
		if err := t.store.AppendSnapshot(snapshot); err != nil {
			log.Printf("tracker: appending snapshot for %s: %v", product.ID, err)
		}
	}

	return events, alerts
}

// Histories loads snapshot history for each product, including the
// snapshots appended by this batch. Used to feed trend analysis.
func (t *PriceTracker) Histories(products []models.Product) map[string][]models.PriceSnapshot {
	histories := make(map[string][]models.PriceSnapshot, len(products))
	for _, product := range products {
		history, err := t.store.Snapshots(product.ID)
		if err != nil {
			log.Printf("tracker: loading history for %s: %v", product.ID, err)
			continue
		}
		if len(history) > 0 {
			histories[product.ID] = history
		}
	}
	return histories
}
