package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is one historical price observation for a product.
// History is append-only and ordered oldest to newest.
type PriceSnapshot struct {
	ID         int64           `json:"id,omitempty" db:"id"`
	ProductID  string          `json:"product_id" db:"product_id"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Currency   string          `json:"currency" db:"currency"`
	ObservedAt time.Time       `json:"observed_at" db:"observed_at"`
}

type TrendDirection string

const (
	TrendIncreasing       TrendDirection = "increasing"
	TrendDecreasing       TrendDirection = "decreasing"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// DirectionOf classifies a price delta by its sign.
func DirectionOf(change decimal.Decimal) TrendDirection {
	switch change.Sign() {
	case 1:
		return TrendIncreasing
	case -1:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// PriceChangeEvent records one detected price movement between the latest
// stored snapshot and the current observation.
type PriceChangeEvent struct {
	ProductID        string           `json:"product_id" db:"product_id"`
	PreviousPrice    decimal.Decimal  `json:"previous_price" db:"previous_price"`
	CurrentPrice     decimal.Decimal  `json:"current_price" db:"current_price"`
	ChangeAmount     decimal.Decimal  `json:"change_amount" db:"change_amount"`
	ChangePercentage *decimal.Decimal `json:"change_percentage" db:"change_percentage"`
	DetectedAt       time.Time        `json:"detected_at" db:"detected_at"`
	TrendDirection   TrendDirection   `json:"trend_direction" db:"trend_direction"`
}

type AlertType string

const (
	AlertBelow AlertType = "below"
	AlertAbove AlertType = "above"
)

// AlertRule watches products whose title contains Keyword against a target
// price. An empty keyword matches every product.
type AlertRule struct {
	Keyword     string          `json:"keyword"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Type        AlertType       `json:"alert_type"`
}

// Matches reports whether the rule applies to a product title.
func (r AlertRule) Matches(title string) bool {
	if r.Keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(r.Keyword))
}

// Holds reports whether a price satisfies the rule condition.
func (r AlertRule) Holds(price decimal.Decimal) bool {
	switch r.Type {
	case AlertBelow:
		return price.LessThanOrEqual(r.TargetPrice)
	case AlertAbove:
		return price.GreaterThanOrEqual(r.TargetPrice)
	default:
		return false
	}
}

// Alert is one fired alert-rule occurrence.
type Alert struct {
	ID          int64           `json:"id,omitempty" db:"id"`
	ProductID   string          `json:"product_id" db:"product_id"`
	Title       string          `json:"title" db:"title"`
	Platform    string          `json:"platform" db:"platform"`
	Keyword     string          `json:"keyword" db:"keyword"`
	Type        AlertType       `json:"alert_type" db:"alert_type"`
	TargetPrice decimal.Decimal `json:"target_price" db:"target_price"`
	Price       decimal.Decimal `json:"price" db:"price"`
	TriggeredAt time.Time       `json:"triggered_at" db:"triggered_at"`
}
