package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	tokenCleanRegex = regexp.MustCompile(`[^a-z0-9_-]`)
)

// ProductID derives the canonical id from a platform and its native item
// key (ASIN, listing id, ...). Stable across runs for the same inputs.
func ProductID(platform, nativeKey string) string {
	key := multiSpaceRegex.ReplaceAllString(strings.TrimSpace(nativeKey), "")
	return normalizeToken(platform) + "_" + key
}

// FallbackID derives an id for records carrying no native key: hash of the
// URL when present, of the normalized title otherwise.
func FallbackID(platform, url, title string) string {
	basis := strings.TrimSpace(url)
	if basis == "" {
		basis = strings.ToLower(multiSpaceRegex.ReplaceAllString(strings.TrimSpace(title), " "))
	}
	sum := sha256.Sum256([]byte(basis))
	return normalizeToken(platform) + "_" + hex.EncodeToString(sum[:])[:16]
}

// TitleKey groups near-identical listings across platforms by the first
// words of the normalized title.
func TitleKey(title string, words int) string {
	t := strings.ToLower(multiSpaceRegex.ReplaceAllString(strings.TrimSpace(title), " "))
	if t == "" || words <= 0 {
		return ""
	}
	parts := strings.Split(t, " ")
	if len(parts) > words {
		parts = parts[:words]
	}
	return strings.Join(parts, " ")
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = multiSpaceRegex.ReplaceAllString(s, "-")
	return tokenCleanRegex.ReplaceAllString(s, "")
}
