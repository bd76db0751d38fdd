package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopradar/identity"
	"shopradar/models"
)

const uncategorized = "uncategorized"

const (
	weightRating       = 0.5
	weightReviews      = 0.35
	weightAvailability = 0.15

	popularProductLimit = 10
)

// AnalyzeTrends aggregates a normalized batch plus price history into a
// trend report. It holds no state across calls; identical inputs produce
// identical output apart from the generation timestamp. Null categories
// land in the "uncategorized" bucket and null prices stay out of every
// average.
func AnalyzeTrends(products []models.Product, histories map[string][]models.PriceSnapshot) *models.TrendReport {
	report := &models.TrendReport{
		GeneratedAt:        time.Now().UTC(),
		PriceTrends:        make(map[string]models.CategoryTrend),
		PlatformComparison: make(map[string]models.PlatformStanding),
		PopularProducts:    make([]models.PopularProduct, 0),
	}

	report.Summary = summarize(products)
	if len(products) == 0 {
		return report
	}

	categories := groupByCategory(products)
	crossAvgs := make(map[string]decimal.Decimal, len(categories))

	for key, agg := range categories {
		trend := models.CategoryTrend{Direction: categoryDirection(agg.members, products, histories)}
		if agg.count > 0 {
			avg := agg.sum.Div(decimal.NewFromInt(int64(agg.count)))
			crossAvgs[key] = avg
			rounded := avg.Round(2)
			trend.AvgPrice = &rounded
			trend.MinPrice = agg.min
			trend.MaxPrice = agg.max
		}
		report.PriceTrends[key] = trend
	}

	for platform, agg := range groupByPlatform(products) {
		standing := models.PlatformStanding{}
		if agg.count > 0 {
			avg := agg.sum.Div(decimal.NewFromInt(int64(agg.count))).Round(2)
			standing.AvgPrice = &avg
		}
		standing.Competitiveness = competitiveness(agg.categories, crossAvgs)
		report.PlatformComparison[platform] = standing
	}

	report.PopularProducts = rankPopular(products)
	return report
}

func summarize(products []models.Product) models.ReportSummary {
	summary := models.ReportSummary{TotalProducts: len(products)}
	if len(products) == 0 {
		return summary
	}

	platforms := make(map[string]struct{})
	start, end := products[0].ScrapedAt, products[0].ScrapedAt
	for _, p := range products {
		platforms[p.Platform] = struct{}{}
		if p.ScrapedAt.Before(start) {
			start = p.ScrapedAt
		}
		if p.ScrapedAt.After(end) {
			end = p.ScrapedAt
		}
	}

	summary.TotalPlatforms = len(platforms)
	summary.Period = &models.Period{Start: start, End: end}
	return summary
}

// categoryKey gives every product a comparable string key so grouping and
// ordering never meet a mixed-type comparison.
func categoryKey(p models.Product) string {
	if p.Category == nil {
		return uncategorized
	}
	key := strings.TrimSpace(*p.Category)
	if key == "" {
		return uncategorized
	}
	return key
}

type priceAgg struct {
	sum      decimal.Decimal
	count    int
	min, max *decimal.Decimal
	members  []int
}

func (a *priceAgg) add(price *decimal.Decimal) {
	if price == nil {
		return
	}
	a.sum = a.sum.Add(*price)
	a.count++
	if a.min == nil || price.LessThan(*a.min) {
		a.min = price
	}
	if a.max == nil || price.GreaterThan(*a.max) {
		a.max = price
	}
}

func groupByCategory(products []models.Product) map[string]*priceAgg {
	groups := make(map[string]*priceAgg)
	for i, p := range products {
		key := categoryKey(p)
		agg, ok := groups[key]
		if !ok {
			agg = &priceAgg{}
			groups[key] = agg
		}
		agg.members = append(agg.members, i)
		agg.add(p.Price)
	}
	return groups
}

type platformAgg struct {
	sum        decimal.Decimal
	count      int
	categories map[string]*priceAgg
}

func groupByPlatform(products []models.Product) map[string]*platformAgg {
	groups := make(map[string]*platformAgg)
	for _, p := range products {
		agg, ok := groups[p.Platform]
		if !ok {
			agg = &platformAgg{categories: make(map[string]*priceAgg)}
			groups[p.Platform] = agg
		}

		key := categoryKey(p)
		catAgg, ok := agg.categories[key]
		if !ok {
			catAgg = &priceAgg{}
			agg.categories[key] = catAgg
		}

		if p.Price != nil {
			agg.sum = agg.sum.Add(*p.Price)
			agg.count++
		}
		catAgg.add(p.Price)
	}
	return groups
}

// categoryDirection compares the members' earliest and latest snapshot
// averages. Fewer than two snapshots across the whole category cannot
// show movement.
func categoryDirection(members []int, products []models.Product, histories map[string][]models.PriceSnapshot) models.TrendDirection {
	var earliestSum, latestSum decimal.Decimal
	totalSnapshots := 0

	for _, i := range members {
		history := histories[products[i].ID]
		if len(history) == 0 {
			continue
		}
		totalSnapshots += len(history)
		earliestSum = earliestSum.Add(history[0].Price)
		latestSum = latestSum.Add(history[len(history)-1].Price)
	}

	if totalSnapshots < 2 {
		return models.TrendInsufficientData
	}
	return models.DirectionOf(latestSum.Sub(earliestSum))
}

// competitiveness scores a platform by how its per-category averages sit
// against the cross-platform averages for the same categories, on a 0..100
// scale where cheaper platforms score higher.
func competitiveness(platformCats map[string]*priceAgg, crossAvgs map[string]decimal.Decimal) *float64 {
	var ratioSum decimal.Decimal
	ratios := 0

	for key, agg := range platformCats {
		cross, ok := crossAvgs[key]
		if !ok || cross.IsZero() || agg.count == 0 {
			continue
		}
		platformAvg := agg.sum.Div(decimal.NewFromInt(int64(agg.count)))
		ratioSum = ratioSum.Add(platformAvg.Div(cross))
		ratios++
	}

	if ratios == 0 {
		return nil
	}

	ratio := ratioSum.Div(decimal.NewFromInt(int64(ratios)))
	score := decimal.NewFromInt(100).Sub(ratio.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)))

	value := score.InexactFloat64()
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	value = math.Round(value*100) / 100
	return &value
}

// rankPopular scores products over whichever popularity signals they
// carry, renormalizing the weights to the present subset so a missing
// rating or review count never counts as zero.
func rankPopular(products []models.Product) []models.PopularProduct {
	maxReviews := 0
	platformsByTitle := make(map[string]map[string]struct{})
	allPlatforms := make(map[string]struct{})

	for _, p := range products {
		if p.ReviewsCount != nil && *p.ReviewsCount > maxReviews {
			maxReviews = *p.ReviewsCount
		}
		allPlatforms[p.Platform] = struct{}{}

		key := identity.TitleKey(p.Title, 3)
		if platformsByTitle[key] == nil {
			platformsByTitle[key] = make(map[string]struct{})
		}
		platformsByTitle[key][p.Platform] = struct{}{}
	}

	reviewsDenom := math.Log10(float64(maxReviews) + 1)
	totalPlatforms := len(allPlatforms)

	ranked := make([]models.PopularProduct, 0, len(products))
	for _, p := range products {
		var weighted, weights float64

		if p.Rating != nil {
			weighted += weightRating * (*p.Rating / 5)
			weights += weightRating
		}
		if p.ReviewsCount != nil {
			signal := 0.0
			if reviewsDenom > 0 {
				signal = math.Log10(float64(*p.ReviewsCount)+1) / reviewsDenom
			}
			weighted += weightReviews * signal
			weights += weightReviews
		}

		presence := len(platformsByTitle[identity.TitleKey(p.Title, 3)])
		if totalPlatforms > 0 {
			weighted += weightAvailability * (float64(presence) / float64(totalPlatforms))
			weights += weightAvailability
		}

		score := 0.0
		if weights > 0 {
			score = math.Round(weighted/weights*10000) / 100
		}

		ranked = append(ranked, models.PopularProduct{
			ProductID:    p.ID,
			Title:        p.Title,
			Platform:     p.Platform,
			Score:        score,
			Rating:       p.Rating,
			ReviewsCount: p.ReviewsCount,
			Platforms:    presence,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})

	if len(ranked) > popularProductLimit {
		ranked = ranked[:popularProductLimit]
	}
	return ranked
}
