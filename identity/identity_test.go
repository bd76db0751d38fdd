package identity

import (
	"strings"
	"testing"
)

func TestProductID(t *testing.T) {
	tests := []struct {
		platform, key, want string
	}{
		{"amazon", "B08N5WRWNW", "amazon_B08N5WRWNW"},
		{"Amazon", " B08N5WRWNW ", "amazon_B08N5WRWNW"},
		{"ebay", "123 456", "ebay_123456"},
		{"My Platform", "x1", "my-platform_x1"},
	}

	for _, tt := range tests {
		if got := ProductID(tt.platform, tt.key); got != tt.want {
			t.Errorf("ProductID(%q, %q) = %q, want %q", tt.platform, tt.key, got, tt.want)
		}
	}
}

func TestFallbackIDDeterministic(t *testing.T) {
	a := FallbackID("walmart", "https://walmart.com/ip/123", "Widget")
	b := FallbackID("walmart", "https://walmart.com/ip/123", "Widget")
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "walmart_") {
		t.Errorf("id %q missing platform prefix", a)
	}
}

func TestFallbackIDUsesTitleWithoutURL(t *testing.T) {
	withURL := FallbackID("etsy", "https://etsy.com/listing/9", "Handmade Mug")
	titleOnly := FallbackID("etsy", "", "Handmade Mug")
	if withURL == titleOnly {
		t.Errorf("url-based and title-based ids should differ, both %s", withURL)
	}

	// Title basis is whitespace and case insensitive.
	if FallbackID("etsy", "", "Handmade  Mug") != FallbackID("etsy", "", "handmade mug") {
		t.Error("title normalization should make equivalent titles collide")
	}
}

func TestTitleKey(t *testing.T) {
	tests := []struct {
		title string
		words int
		want  string
	}{
		{"Apple iPhone 15 Pro Max 256GB", 3, "apple iphone 15"},
		{"  Sony   WH-1000XM5 ", 3, "sony wh-1000xm5"},
		{"Mug", 3, "mug"},
		{"", 3, ""},
	}

	for _, tt := range tests {
		if got := TitleKey(tt.title, tt.words); got != tt.want {
			t.Errorf("TitleKey(%q, %d) = %q, want %q", tt.title, tt.words, got, tt.want)
		}
	}
}
