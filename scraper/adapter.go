package scraper

import (
	"context"
	"fmt"

	"shopradar/config"
	"shopradar/httputil"
	"shopradar/models"
)

// Adapter fetches raw search results from one e-commerce platform.
// Implementations return platform-shaped records; normalization happens
// downstream in the services package.
type Adapter interface {
	Platform() string
	Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error)
}

func NewAdapter(platform *config.PlatformConfig, clients *httputil.Clients) (Adapter, error) {
	switch platform.Adapter {
	case "apify":
		return NewApifyAdapter(platform, clients.API), nil
	case "http":
		return NewHTTPAdapter(platform, clients.Scraping), nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q for platform %s", platform.Adapter, platform.ID)
	}
}
