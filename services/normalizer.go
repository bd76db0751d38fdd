package services

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopradar/identity"
	"shopradar/models"
)

// ValidationError marks a raw record that cannot become a canonical
// product. The record is dropped; the batch continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Normalizer maps raw platform records onto the canonical product schema
// using per-platform field tables.
type Normalizer struct {
	tables map[string]FieldTable
}

// NewNormalizer builds a normalizer. A nil table set uses the built-in
// platform tables.
func NewNormalizer(tables map[string]FieldTable) *Normalizer {
	if tables == nil {
		tables = DefaultFieldTables()
	}
	return &Normalizer{tables: tables}
}

func (n *Normalizer) tableFor(platform string) FieldTable {
	if table, ok := n.tables[platform]; ok {
		return table
	}
	return GenericFieldTable(platform)
}

// Normalize converts one raw record. Missing optional fields stay nil.
// Records without a platform or a usable title are rejected.
func (n *Normalizer) Normalize(raw models.RawRecord) (*models.Product, error) {
	if strings.TrimSpace(raw.Platform) == "" {
		return nil, &ValidationError{Field: "platform", Reason: "missing"}
	}

	table := n.tableFor(raw.Platform)

	product := &models.Product{
		Platform:     raw.Platform,
		Currency:     "USD",
		Availability: models.AvailabilityUnknown,
		ScrapedAt:    raw.FetchedAt.UTC(),
	}

	assigned := make(map[string]bool, len(table.Mappings))
	for _, mapping := range table.Mappings {
		if assigned[mapping.Canonical] {
			continue
		}
		value, ok := raw.Fields[mapping.Source]
		if !ok || value == nil {
			continue
		}

		coerce := mapping.Coerce
		if coerce == nil {
			coerce = defaultCoercions[mapping.Canonical]
		}
		if coerce == nil {
			continue
		}

		coerced, err := coerce(value)
		if err != nil {
			return nil, &ValidationError{Field: mapping.Canonical, Reason: err.Error()}
		}
		if coerced == nil {
			continue
		}

		assign(product, mapping.Canonical, coerced)
		assigned[mapping.Canonical] = true
	}

	if product.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "missing"}
	}

	product.ID = deriveID(table, raw, product)
	return product, nil
}

// NormalizeBatch converts a whole batch, dropping invalid records and
// deduplicating by canonical id. For duplicate ids the most recently
// scraped record wins; equal timestamps keep the first seen. Output order
// is first-seen order.
func (n *Normalizer) NormalizeBatch(records []models.RawRecord) ([]models.Product, int) {
	products := make([]models.Product, 0, len(records))
	index := make(map[string]int, len(records))
	dropped := 0

	for _, raw := range records {
		product, err := n.Normalize(raw)
		if err != nil {
			dropped++
			log.Printf("normalizer: dropping %s record: %v", raw.Platform, err)
			continue
		}

		if at, ok := index[product.ID]; ok {
			if product.ScrapedAt.After(products[at].ScrapedAt) {
				products[at] = *product
			}
			continue
		}

		index[product.ID] = len(products)
		products = append(products, *product)
	}

	return products, dropped
}

func assign(p *models.Product, canonical string, value any) {
	switch canonical {
	case "title":
		p.Title = value.(string)
	case "price":
		p.Price = value.(*decimal.Decimal)
	case "original_price":
		p.OriginalPrice = value.(*decimal.Decimal)
	case "currency":
		p.Currency = value.(string)
	case "url":
		p.URL = value.(string)
	case "availability":
		p.Availability = value.(models.Availability)
	case "category":
		p.Category = value.(*string)
	case "rating":
		p.Rating = value.(*float64)
	case "reviews_count":
		p.ReviewsCount = value.(*int)
	case "scraped_at":
		p.ScrapedAt = value.(time.Time)
	}
}

func deriveID(table FieldTable, raw models.RawRecord, product *models.Product) string {
	for _, field := range table.IDFields {
		if value, ok := raw.Fields[field]; ok {
			if key := nativeKey(value); key != "" {
				return identity.ProductID(raw.Platform, key)
			}
		}
	}
	return identity.FallbackID(raw.Platform, product.URL, product.Title)
}

// nativeKey renders a platform item key as text. JSON numbers arrive as
// float64 but item keys are integral.
func nativeKey(value any) string {
	switch key := value.(type) {
	case string:
		return strings.TrimSpace(key)
	case float64:
		return strconv.FormatInt(int64(key), 10)
	case int:
		return strconv.Itoa(key)
	case int64:
		return strconv.FormatInt(key, 10)
	default:
		return ""
	}
}
