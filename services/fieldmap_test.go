package services

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"shopradar/models"
)

func TestParsePriceText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"$1,299.99", "1299.99"},
		{"1299.99", "1299.99"},
		{"24,99", "24.99"},
		{"EUR 24,99", "24.99"},
		{"1,299", "1299"},
		{"4 999,00", "4999.00"},
		{"Price: $5", "5"},
		{"£10.50", "10.50"},
		{"12,345,678", "12345678"},
	}

	for _, tc := range cases {
		got, err := ParsePriceText(tc.in)
		if err != nil {
			t.Errorf("ParsePriceText(%q): %v", tc.in, err)
			continue
		}
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Errorf("ParsePriceText(%q) = %s, want %s", tc.in, got, want)
		}
	}
}

func TestParsePriceTextRejectsNonNumeric(t *testing.T) {
	for _, in := range []string{"", "call for price", "N/A", "$"} {
		if _, err := ParsePriceText(in); err == nil {
			t.Errorf("ParsePriceText(%q) should fail", in)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"$", "USD"},
		{"€", "EUR"},
		{"£", "GBP"},
		{"¥", "JPY"},
		{"₹", "INR"},
		{"usd", "USD"},
		{"EUR", "EUR"},
		{"cad", "CAD"},
		{"XYZ", "USD"},
		{"", "USD"},
		{" GBP ", "GBP"},
	}

	for _, tc := range cases {
		if got := NormalizeCurrency(tc.in); got != tc.want {
			t.Errorf("NormalizeCurrency(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"markup", "<b>Great</b> Wireless Mouse", "Great Wireless Mouse"},
		{"new listing prefix", "New Listing: Vintage Desk Lamp", "Vintage Desk Lamp"},
		{"sponsored prefix", "SPONSORED Wireless Earbuds Pro", "Wireless Earbuds Pro"},
		{"ad prefix", "Ad - USB-C Cable 2m", "USB-C Cable 2m"},
		{"ad is part of word", "Adjustable Standing Desk", "Adjustable Standing Desk"},
		{"stacked prefixes", "New Listing SPONSORED Mechanical Keyboard", "Mechanical Keyboard"},
		{"whitespace", "  too   many    spaces  ", "too many spaces"},
		{"nested markup", "<div><span>Laptop</span> Stand</div>", "Laptop Stand"},
	}

	for _, tc := range cases {
		if got := CleanTitle(tc.in); got != tc.want {
			t.Errorf("%s: CleanTitle(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestCleanTitleCapsLength(t *testing.T) {
	long := strings.Repeat("é", 600)
	got := CleanTitle(long)
	if n := len([]rune(got)); n > 500 {
		t.Errorf("cleaned title has %d runes, want <= 500", n)
	}
}

func TestAvailabilityFromText(t *testing.T) {
	cases := []struct {
		in   string
		want models.Availability
	}{
		{"In Stock", models.AvailabilityInStock},
		{"in_stock", models.AvailabilityInStock},
		{"Available now", models.AvailabilityInStock},
		{"Only 3 left - low stock", models.AvailabilityInStock},
		{"limited availability", models.AvailabilityInStock},
		{"Out of stock", models.AvailabilityOutOfStock},
		{"Currently unavailable", models.AvailabilityOutOfStock},
		{"Sold Out", models.AvailabilityOutOfStock},
		{"", models.AvailabilityUnknown},
		{"preorder", models.AvailabilityUnknown},
	}

	for _, tc := range cases {
		if got := availabilityFromText(tc.in); got != tc.want {
			t.Errorf("availabilityFromText(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestCoerceAvailabilityBool(t *testing.T) {
	got, err := coerceAvailability(true)
	if err != nil || got != models.AvailabilityInStock {
		t.Errorf("coerceAvailability(true) = %v, %v", got, err)
	}
	got, err = coerceAvailability(false)
	if err != nil || got != models.AvailabilityOutOfStock {
		t.Errorf("coerceAvailability(false) = %v, %v", got, err)
	}
}

func TestCoercePrice(t *testing.T) {
	got, err := coercePrice(29.99)
	if err != nil {
		t.Fatalf("coercePrice(29.99): %v", err)
	}
	if d := got.(*decimal.Decimal); !d.Equal(decimal.NewFromFloat(29.99)) {
		t.Errorf("coercePrice(29.99) = %s", d)
	}

	if _, err := coercePrice(-10.0); err == nil {
		t.Error("negative price should be rejected")
	}
	if _, err := coercePrice("not a price"); err == nil {
		t.Error("unparseable price text should be rejected")
	}

	got, err = coercePrice(nil)
	if err != nil || got != nil {
		t.Errorf("coercePrice(nil) = %v, %v", got, err)
	}
}

func TestCoerceSoftPriceDegrades(t *testing.T) {
	got, err := coerceSoftPrice("N/A")
	if err != nil || got != nil {
		t.Errorf("coerceSoftPrice(N/A) = %v, %v, want nil signal", got, err)
	}

	got, err = coerceSoftPrice(34.99)
	if err != nil || got == nil {
		t.Fatalf("coerceSoftPrice(34.99) = %v, %v", got, err)
	}
}

func TestCoerceRating(t *testing.T) {
	got, _ := coerceRating(4.5)
	if got == nil || *got.(*float64) != 4.5 {
		t.Errorf("coerceRating(4.5) = %v", got)
	}

	got, _ = coerceRating("4.3 out of 5 stars")
	if got == nil || *got.(*float64) != 4.3 {
		t.Errorf("coerceRating(text) = %v", got)
	}

	for _, bad := range []any{6.0, -1.0, "N/A", true} {
		if got, _ := coerceRating(bad); got != nil {
			t.Errorf("coerceRating(%v) = %v, want no signal", bad, got)
		}
	}
}

func TestCoerceCount(t *testing.T) {
	got, _ := coerceCount(float64(1234))
	if got == nil || *got.(*int) != 1234 {
		t.Errorf("coerceCount(1234) = %v", got)
	}

	got, _ = coerceCount("1,234 reviews")
	if got == nil || *got.(*int) != 1234 {
		t.Errorf("coerceCount(text) = %v", got)
	}

	for _, bad := range []any{"no reviews", -5, true} {
		if got, _ := coerceCount(bad); got != nil {
			t.Errorf("coerceCount(%v) = %v, want no signal", bad, got)
		}
	}
}
