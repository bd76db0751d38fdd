package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"shopradar/config"
	"shopradar/models"
)

// HTTPAdapter queries a plain JSON search API. Used for platforms that
// expose their catalog directly instead of going through an actor run.
type HTTPAdapter struct {
	cfg    *config.PlatformConfig
	client *http.Client
}

func NewHTTPAdapter(cfg *config.PlatformConfig, client *http.Client) *HTTPAdapter {
	return &HTTPAdapter{cfg: cfg, client: client}
}

func (h *HTTPAdapter) Platform() string { return h.cfg.ID }

type searchResponse struct {
	Results []map[string]any `json:"results"`
}

func (h *HTTPAdapter) Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	if h.cfg.Endpoint == "" {
		return nil, Permanent(fmt.Errorf("platform %s has no endpoint configured", h.cfg.ID))
	}

	endpoint, err := url.Parse(h.cfg.Endpoint)
	if err != nil {
		return nil, Permanent(fmt.Errorf("parse endpoint: %w", err))
	}

	params := endpoint.Query()
	params.Set("query", query)
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, Transient(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("search", resp.StatusCode, string(body))
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, Transient(fmt.Errorf("decode search response: %w", err))
	}

	items := search.Results
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	fetchedAt := time.Now().UTC()
	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, models.RawRecord{
			Platform:  h.cfg.ID,
			Query:     query,
			Fields:    item,
			FetchedAt: fetchedAt,
		})
	}

	return records, nil
}
