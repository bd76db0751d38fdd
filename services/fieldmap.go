package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"shopradar/models"
)

// CoerceFunc turns a platform-native value into the canonical typed value
// for one field. Returning (nil, nil) means the value carries no signal
// and the field stays unset.
type CoerceFunc func(value any) (any, error)

// FieldMapping binds one source field to one canonical field. Mappings are
// applied in order; the first source field present wins for its canonical
// slot. Coerce overrides the default coercion for the canonical field.
type FieldMapping struct {
	Source    string
	Canonical string
	Coerce    CoerceFunc
}

// FieldTable describes how one platform's records map onto the canonical
// product schema. IDFields are probed in order for the platform-native
// item key.
type FieldTable struct {
	Platform string
	IDFields []string
	Mappings []FieldMapping
}

const maxTitleLen = 500

var defaultCoercions = map[string]CoerceFunc{
	"title":          coerceTitle,
	"price":          coercePrice,
	"original_price": coerceSoftPrice,
	"currency":       coerceCurrency,
	"url":            coerceURL,
	"availability":   coerceAvailability,
	"category":       coerceCategory,
	"rating":         coerceRating,
	"reviews_count":  coerceCount,
	"scraped_at":     coerceTime,
}

func standardMappings() []FieldMapping {
	return []FieldMapping{
		{Source: "title", Canonical: "title"},
		{Source: "price", Canonical: "price"},
		{Source: "original_price", Canonical: "original_price"},
		{Source: "currency", Canonical: "currency"},
		{Source: "url", Canonical: "url"},
		{Source: "availability", Canonical: "availability"},
		{Source: "category", Canonical: "category"},
		{Source: "rating", Canonical: "rating"},
		{Source: "reviews_count", Canonical: "reviews_count"},
		{Source: "scraped_at", Canonical: "scraped_at"},
	}
}

func withMappings(extra []FieldMapping) []FieldMapping {
	return append(extra, standardMappings()...)
}

// DefaultFieldTables returns the built-in mapping tables for the supported
// platforms. Platform-specific source names are listed before the standard
// ones so they take priority when both appear in a record.
func DefaultFieldTables() map[string]FieldTable {
	return map[string]FieldTable{
		"amazon": {
			Platform: "amazon",
			IDFields: []string{"asin", "product_id"},
			Mappings: withMappings([]FieldMapping{
				{Source: "list_price", Canonical: "original_price"},
				{Source: "stars", Canonical: "rating"},
				{Source: "review_count", Canonical: "reviews_count"},
				{Source: "category_name", Canonical: "category"},
			}),
		},
		"ebay": {
			Platform: "ebay",
			IDFields: []string{"item_id", "product_id"},
			Mappings: withMappings([]FieldMapping{
				{Source: "item_url", Canonical: "url"},
				{Source: "availability_text", Canonical: "availability"},
				{Source: "review_count", Canonical: "reviews_count"},
			}),
		},
		"walmart": {
			Platform: "walmart",
			IDFields: []string{"product_id"},
			Mappings: withMappings([]FieldMapping{
				{Source: "name", Canonical: "title"},
				{Source: "current_price", Canonical: "price"},
				{Source: "was_price", Canonical: "original_price"},
				{Source: "product_url", Canonical: "url"},
			}),
		},
		"etsy": {
			Platform: "etsy",
			IDFields: []string{"listing_id", "product_id"},
			Mappings: withMappings([]FieldMapping{
				{Source: "currency_code", Canonical: "currency"},
				{Source: "in_stock", Canonical: "availability"},
				{Source: "num_reviews", Canonical: "reviews_count"},
				{Source: "shop_rating", Canonical: "rating"},
			}),
		},
		"shopify": {
			Platform: "shopify",
			IDFields: []string{"product_id", "variant_id"},
			Mappings: withMappings([]FieldMapping{
				{Source: "compare_at_price", Canonical: "original_price"},
				{Source: "available", Canonical: "availability"},
				{Source: "product_type", Canonical: "category"},
			}),
		},
	}
}

// GenericFieldTable handles platforms without a dedicated table using the
// standard source names only.
func GenericFieldTable(platform string) FieldTable {
	return FieldTable{
		Platform: platform,
		IDFields: []string{"id", "product_id"},
		Mappings: standardMappings(),
	}
}

func coerceTitle(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, nil
	}
	cleaned := CleanTitle(s)
	if cleaned == "" {
		return nil, nil
	}
	return cleaned, nil
}

func coercePrice(value any) (any, error) {
	d, err := toDecimal(value)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative price %s", d)
	}
	return d, nil
}

// coerceSoftPrice parses like coercePrice but degrades to no-value on bad
// input instead of rejecting the record.
func coerceSoftPrice(value any) (any, error) {
	d, err := toDecimal(value)
	if err != nil || d == nil || d.IsNegative() {
		return nil, nil
	}
	return d, nil
}

func toDecimal(value any) (*decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		d := decimal.NewFromFloat(v)
		return &d, nil
	case float32:
		d := decimal.NewFromFloat32(v)
		return &d, nil
	case int:
		d := decimal.NewFromInt(int64(v))
		return &d, nil
	case int64:
		d := decimal.NewFromInt(v)
		return &d, nil
	case decimal.Decimal:
		return &v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		d, err := ParsePriceText(v)
		if err != nil {
			return nil, err
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("unsupported price type %T", value)
	}
}

// ParsePriceText parses display price text like "$1,299.99" or "EUR 24,99".
// When both separators appear, commas are thousands marks. A lone comma
// followed by exactly two digits is a decimal point, otherwise a thousands
// mark.
func ParsePriceText(text string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("no numeric content in %q", text)
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")

	switch {
	case hasDot && hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		if idx := strings.Index(cleaned, ","); strings.Count(cleaned, ",") == 1 && len(cleaned)-idx-1 == 2 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", text, err)
	}
	return d, nil
}

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
	"₹": "INR",
}

var currencyCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CAD": true, "AUD": true, "INR": true,
}

// NormalizeCurrency maps symbols and known ISO codes to a canonical code.
// Unrecognized input falls back to USD.
func NormalizeCurrency(s string) string {
	s = strings.TrimSpace(s)
	if code, ok := currencySymbols[s]; ok {
		return code
	}
	upper := strings.ToUpper(s)
	if currencyCodes[upper] {
		return upper
	}
	return "USD"
}

func coerceCurrency(value any) (any, error) {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return NormalizeCurrency(s), nil
}

func coerceURL(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return s, nil
}

func coerceAvailability(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return models.AvailabilityInStock, nil
		}
		return models.AvailabilityOutOfStock, nil
	case string:
		return availabilityFromText(v), nil
	default:
		return nil, nil
	}
}

// availabilityFromText buckets free-form stock text. Out-of-stock phrases
// are checked first since "unavailable" contains "available".
func availabilityFromText(s string) models.Availability {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return models.AvailabilityUnknown
	}

	outPhrases := []string{"out of stock", "out_of_stock", "unavailable", "sold out"}
	for _, phrase := range outPhrases {
		if strings.Contains(lower, phrase) {
			return models.AvailabilityOutOfStock
		}
	}

	inPhrases := []string{"in stock", "in_stock", "available", "limited", "low stock"}
	for _, phrase := range inPhrases {
		if strings.Contains(lower, phrase) {
			return models.AvailabilityInStock
		}
	}

	return models.AvailabilityUnknown
}

func coerceCategory(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

func coerceRating(value any) (any, error) {
	var rating float64
	switch v := value.(type) {
	case float64:
		rating = v
	case int:
		rating = float64(v)
	case string:
		parsed, err := parseLeadingFloat(v)
		if err != nil {
			return nil, nil
		}
		rating = parsed
	default:
		return nil, nil
	}

	if rating < 0 || rating > 5 {
		return nil, nil
	}
	return &rating, nil
}

// parseLeadingFloat reads a float from text like "4.5 out of 5 stars".
func parseLeadingFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || unicode.IsDigit(rune(s[end]))) {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("no leading number in %q", s)
	}
	return strconv.ParseFloat(s[:end], 64)
}

func coerceCount(value any) (any, error) {
	var count int
	switch v := value.(type) {
	case float64:
		count = int(v)
	case int:
		count = v
	case int64:
		count = int(v)
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, v)
		if cleaned == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(cleaned)
		if err != nil {
			return nil, nil
		}
		count = parsed
	default:
		return nil, nil
	}

	if count < 0 {
		return nil, nil
	}
	return &count, nil
}

func coerceTime(value any) (any, error) {
	switch v := value.(type) {
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, nil
	case float64:
		if v <= 0 {
			return nil, nil
		}
		return time.Unix(int64(v), 0).UTC(), nil
	default:
		return nil, nil
	}
}

// CleanTitle strips embedded markup, promotional prefixes and surplus
// whitespace, and caps the result at 500 characters.
func CleanTitle(s string) string {
	if strings.ContainsAny(s, "<>") {
		s = stripMarkup(s)
	}

	s = strings.Join(strings.Fields(s), " ")
	s = stripPromoPrefixes(s)

	runes := []rune(s)
	if len(runes) > maxTitleLen {
		s = strings.TrimSpace(string(runes[:maxTitleLen]))
	}
	return s
}

func stripMarkup(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

var promoPrefixes = []string{"New Listing", "SPONSORED", "Ad"}

func stripPromoPrefixes(s string) string {
	for changed := true; changed; {
		changed = false
		for _, prefix := range promoPrefixes {
			if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
				continue
			}
			rest := s[len(prefix):]
			if rest != "" && !isBoundary(rest[0]) {
				continue
			}
			s = strings.TrimLeft(rest, " :-")
			changed = true
		}
	}
	return s
}

func isBoundary(b byte) bool {
	return b == ' ' || b == ':' || b == '-'
}
