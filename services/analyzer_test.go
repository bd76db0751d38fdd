package services

import (
	"encoding/json"
	"testing"
	"time"

	"shopradar/models"
)

func catProduct(id, platform, title, category, price string, scrapedAt time.Time) models.Product {
	p := models.Product{
		ID:        id,
		Platform:  platform,
		Title:     title,
		Currency:  "USD",
		ScrapedAt: scrapedAt,
	}
	if category != "" {
		p.Category = &category
	}
	if price != "" {
		p.Price = decPtr(price)
	}
	return p
}

var analyzeAt = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func TestAnalyzeEmptyBatch(t *testing.T) {
	report := AnalyzeTrends(nil, nil)

	if report.Summary.TotalProducts != 0 || report.Summary.TotalPlatforms != 0 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Summary.Period != nil {
		t.Errorf("period = %+v, want nil for empty batch", report.Summary.Period)
	}
	if report.PriceTrends == nil || len(report.PriceTrends) != 0 {
		t.Errorf("price trends = %v", report.PriceTrends)
	}
	if report.PlatformComparison == nil || len(report.PlatformComparison) != 0 {
		t.Errorf("platform comparison = %v", report.PlatformComparison)
	}
	if report.PopularProducts == nil || len(report.PopularProducts) != 0 {
		t.Errorf("popular products = %v", report.PopularProducts)
	}
}

func TestAnalyzeUncategorized(t *testing.T) {
	products := []models.Product{
		catProduct("a_1", "amazon", "Laptop Pro", "", "999.99", analyzeAt),
		catProduct("a_2", "amazon", "Desk Mat", "Office", "19.99", analyzeAt),
		catProduct("a_3", "amazon", "Mystery Item", "", "", analyzeAt),
	}

	report := AnalyzeTrends(products, nil)

	bucket, ok := report.PriceTrends[uncategorized]
	if !ok {
		t.Fatalf("no uncategorized bucket: %v", report.PriceTrends)
	}
	if bucket.AvgPrice == nil || !bucket.AvgPrice.Equal(dec("999.99")) {
		t.Errorf("uncategorized avg = %v", bucket.AvgPrice)
	}
	if _, ok := report.PriceTrends["Office"]; !ok {
		t.Error("named category missing")
	}
}

func TestAnalyzeCategoryAggregates(t *testing.T) {
	products := []models.Product{
		catProduct("a_1", "amazon", "Mouse", "Electronics", "100.00", analyzeAt),
		catProduct("a_2", "amazon", "Keyboard", "Electronics", "200.00", analyzeAt),
		catProduct("a_3", "amazon", "Cable", "Electronics", "", analyzeAt),
		catProduct("a_4", "amazon", "Unpriced Poster", "Art", "", analyzeAt),
	}

	report := AnalyzeTrends(products, nil)

	electronics := report.PriceTrends["Electronics"]
	if electronics.AvgPrice == nil || !electronics.AvgPrice.Equal(dec("150")) {
		t.Errorf("avg = %v, want 150 over priced products only", electronics.AvgPrice)
	}
	if electronics.MinPrice == nil || !electronics.MinPrice.Equal(dec("100")) {
		t.Errorf("min = %v", electronics.MinPrice)
	}
	if electronics.MaxPrice == nil || !electronics.MaxPrice.Equal(dec("200")) {
		t.Errorf("max = %v", electronics.MaxPrice)
	}

	art := report.PriceTrends["Art"]
	if art.AvgPrice != nil {
		t.Errorf("avg for unpriced category = %v, want nil not zero", art.AvgPrice)
	}
	if art.Direction != models.TrendInsufficientData {
		t.Errorf("direction = %s", art.Direction)
	}
}

func TestAnalyzeCategoryDirection(t *testing.T) {
	products := []models.Product{
		catProduct("a_1", "amazon", "Mouse", "Electronics", "90.00", analyzeAt),
		catProduct("a_2", "amazon", "Poster", "Art", "15.00", analyzeAt),
	}

	histories := map[string][]models.PriceSnapshot{
		"a_1": {
			{ProductID: "a_1", Price: dec("100.00"), Currency: "USD", ObservedAt: analyzeAt.Add(-48 * time.Hour)},
			{ProductID: "a_1", Price: dec("90.00"), Currency: "USD", ObservedAt: analyzeAt},
		},
		"a_2": {
			{ProductID: "a_2", Price: dec("15.00"), Currency: "USD", ObservedAt: analyzeAt},
		},
	}

	report := AnalyzeTrends(products, histories)

	if got := report.PriceTrends["Electronics"].Direction; got != models.TrendDecreasing {
		t.Errorf("Electronics direction = %s, want decreasing", got)
	}
	if got := report.PriceTrends["Art"].Direction; got != models.TrendInsufficientData {
		t.Errorf("Art direction = %s, want insufficient_data for one snapshot", got)
	}
}

func TestAnalyzeSummary(t *testing.T) {
	early := analyzeAt.Add(-2 * time.Hour)
	late := analyzeAt

	products := []models.Product{
		catProduct("a_1", "amazon", "Mouse", "Electronics", "100.00", late),
		catProduct("e_1", "ebay", "Mouse Used", "Electronics", "60.00", early),
	}

	report := AnalyzeTrends(products, nil)

	if report.Summary.TotalProducts != 2 || report.Summary.TotalPlatforms != 2 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Summary.Period == nil {
		t.Fatal("period missing")
	}
	if !report.Summary.Period.Start.Equal(early) || !report.Summary.Period.End.Equal(late) {
		t.Errorf("period = %+v", report.Summary.Period)
	}
}

func TestAnalyzePlatformComparison(t *testing.T) {
	products := []models.Product{
		catProduct("a_1", "amazon", "Mouse", "Electronics", "100.00", analyzeAt),
		catProduct("e_1", "ebay", "Mouse Similar", "Electronics", "200.00", analyzeAt),
	}

	report := AnalyzeTrends(products, nil)

	amazon := report.PlatformComparison["amazon"]
	ebay := report.PlatformComparison["ebay"]

	if amazon.AvgPrice == nil || !amazon.AvgPrice.Equal(dec("100")) {
		t.Errorf("amazon avg = %v", amazon.AvgPrice)
	}

	// Cross-platform Electronics average is 150. Amazon at 100 is cheaper
	// than the market and clamps to 100; ebay at 200 lands around 66.67.
	if amazon.Competitiveness == nil || *amazon.Competitiveness != 100 {
		t.Errorf("amazon competitiveness = %v, want 100", amazon.Competitiveness)
	}
	if ebay.Competitiveness == nil || *ebay.Competitiveness < 66 || *ebay.Competitiveness > 67 {
		t.Errorf("ebay competitiveness = %v, want ~66.67", ebay.Competitiveness)
	}
}

func TestAnalyzeCompetitivenessUnpriced(t *testing.T) {
	products := []models.Product{
		catProduct("a_1", "amazon", "Mouse", "Electronics", "100.00", analyzeAt),
		catProduct("w_1", "walmart", "Unpriced Thing", "Electronics", "", analyzeAt),
	}

	report := AnalyzeTrends(products, nil)

	walmart := report.PlatformComparison["walmart"]
	if walmart.AvgPrice != nil {
		t.Errorf("walmart avg = %v, want nil", walmart.AvgPrice)
	}
	if walmart.Competitiveness != nil {
		t.Errorf("walmart competitiveness = %v, want nil without priced products", walmart.Competitiveness)
	}
}

func TestAnalyzePopularity(t *testing.T) {
	rating5, rating3 := 5.0, 3.0
	reviewsBig, reviewsFew := 5000, 10

	strong := catProduct("a_1", "amazon", "Wireless Earbuds Pro", "Audio", "99.99", analyzeAt)
	strong.Rating = &rating5
	strong.ReviewsCount = &reviewsBig

	crossListed := catProduct("e_1", "ebay", "Wireless Earbuds Pro", "Audio", "89.99", analyzeAt)
	crossListed.Rating = &rating3
	crossListed.ReviewsCount = &reviewsFew

	bare := catProduct("w_1", "walmart", "Plain Socks", "Clothing", "5.99", analyzeAt)

	report := AnalyzeTrends([]models.Product{strong, crossListed, bare}, nil)

	if len(report.PopularProducts) != 3 {
		t.Fatalf("popular = %d entries", len(report.PopularProducts))
	}

	top := report.PopularProducts[0]
	if top.ProductID != "a_1" {
		t.Errorf("top product = %s", top.ProductID)
	}
	if top.Platforms != 2 {
		t.Errorf("top platforms = %d, want 2 for cross-listed title", top.Platforms)
	}
	if top.Score <= report.PopularProducts[1].Score {
		t.Error("ranking not descending")
	}

	// The bare product is scored over the availability signal alone, never
	// zeroed for missing rating and reviews.
	var bareEntry *models.PopularProduct
	for i := range report.PopularProducts {
		if report.PopularProducts[i].ProductID == "w_1" {
			bareEntry = &report.PopularProducts[i]
		}
	}
	if bareEntry == nil {
		t.Fatal("bare product missing from ranking")
	}
	if bareEntry.Score <= 0 {
		t.Errorf("bare score = %v, want positive from availability signal", bareEntry.Score)
	}
}

func TestAnalyzePopularityLimit(t *testing.T) {
	products := make([]models.Product, 0, 14)
	for i := 0; i < 14; i++ {
		id := string(rune('a'+i)) + "_1"
		products = append(products, catProduct(id, "amazon", "Item "+id, "Misc", "10.00", analyzeAt))
	}

	report := AnalyzeTrends(products, nil)
	if len(report.PopularProducts) != 10 {
		t.Errorf("popular = %d entries, want capped at 10", len(report.PopularProducts))
	}
}

func TestAnalyzePure(t *testing.T) {
	rating := 4.2
	reviews := 120

	product := catProduct("a_1", "amazon", "Laptop Stand", "Office", "39.99", analyzeAt)
	product.Rating = &rating
	product.ReviewsCount = &reviews

	histories := map[string][]models.PriceSnapshot{
		"a_1": {
			{ProductID: "a_1", Price: dec("44.99"), Currency: "USD", ObservedAt: analyzeAt.Add(-24 * time.Hour)},
			{ProductID: "a_1", Price: dec("39.99"), Currency: "USD", ObservedAt: analyzeAt},
		},
	}

	first := AnalyzeTrends([]models.Product{product}, histories)
	second := AnalyzeTrends([]models.Product{product}, histories)

	first.GeneratedAt = time.Time{}
	second.GeneratedAt = time.Time{}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}

	if string(a) != string(b) {
		t.Errorf("reports differ:\n%s\n%s", a, b)
	}
}
