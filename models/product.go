package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices serialize as bare JSON numbers, the shape dataset consumers read.
	decimal.MarshalJSONWithoutQuotes = true
}

// Availability is the canonical stock state of a product.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityUnknown    Availability = "unknown"
)

// RawRecord is one platform-shaped result as returned by a source adapter.
// Fields stays opaque to everything except the normalizer's field tables.
type RawRecord struct {
	Platform  string         `json:"platform"`
	Query     string         `json:"query"`
	Fields    map[string]any `json:"fields"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Product is the canonical cross-platform product record. Optional fields
// are pointers: absent means unknown, never zero.
type Product struct {
	ID            string           `json:"id" db:"id"`
	Platform      string           `json:"platform" db:"platform"`
	Title         string           `json:"title" db:"title"`
	Price         *decimal.Decimal `json:"price" db:"price"`
	Currency      string           `json:"currency" db:"currency"`
	OriginalPrice *decimal.Decimal `json:"original_price" db:"original_price"`
	URL           string           `json:"url" db:"url"`
	Availability  Availability     `json:"availability" db:"availability"`
	Category      *string          `json:"category" db:"category"`
	Rating        *float64         `json:"rating" db:"rating"`
	ReviewsCount  *int             `json:"reviews_count" db:"reviews_count"`
	ScrapedAt     time.Time        `json:"scraped_at" db:"scraped_at"`
}
