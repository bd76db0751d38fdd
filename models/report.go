package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrendReport aggregates one normalized batch plus its price histories.
// Recomputed fresh per analysis run, never mutated incrementally.
type TrendReport struct {
	GeneratedAt        time.Time                   `json:"generated_at"`
	Summary            ReportSummary               `json:"summary"`
	PriceTrends        map[string]CategoryTrend    `json:"price_trends"`
	PlatformComparison map[string]PlatformStanding `json:"platform_comparison"`
	PopularProducts    []PopularProduct            `json:"popular_products"`
}

type ReportSummary struct {
	TotalProducts  int     `json:"total_products"`
	TotalPlatforms int     `json:"total_platforms"`
	Period         *Period `json:"period"`
}

// Period is the observation window of the analyzed batch, derived from the
// earliest and latest scraped_at. Nil for an empty batch.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CategoryTrend aggregates prices within one category bucket. Averages
// cover non-null prices only; a category with no priced products reports
// nil, never zero.
type CategoryTrend struct {
	AvgPrice  *decimal.Decimal `json:"avg"`
	MinPrice  *decimal.Decimal `json:"min"`
	MaxPrice  *decimal.Decimal `json:"max"`
	Direction TrendDirection   `json:"direction"`
}

// PlatformStanding ranks one platform's pricing against its peers.
// Competitiveness is 0-100; cheaper platforms score higher.
type PlatformStanding struct {
	AvgPrice        *decimal.Decimal `json:"avg_price"`
	Competitiveness *float64         `json:"competitiveness"`
}

// PopularProduct is one entry of the popularity ranking.
type PopularProduct struct {
	ProductID    string   `json:"product_id"`
	Title        string   `json:"title"`
	Platform     string   `json:"platform"`
	Score        float64  `json:"score"`
	Rating       *float64 `json:"rating"`
	ReviewsCount *int     `json:"reviews_count"`
	Platforms    int      `json:"platforms"`
}
