package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"shopradar/config"
	"shopradar/models"
)

const (
	apifyAPIBase     = "https://api.apify.com/v2"
	apifyPollTimeout = 15 * time.Minute
	apifyPollDelay   = 10 * time.Second
)

// ApifyAdapter runs a platform's Apify actor and drains the dataset the
// run produced. One Fetch is one actor run.
type ApifyAdapter struct {
	cfg    *config.PlatformConfig
	client *http.Client
	apiKey string

	apiBase     string
	pollTimeout time.Duration
	pollDelay   time.Duration
}

func NewApifyAdapter(cfg *config.PlatformConfig, client *http.Client) *ApifyAdapter {
	return &ApifyAdapter{
		cfg:         cfg,
		client:      client,
		apiKey:      os.Getenv("APIFY_API_KEY"),
		apiBase:     apifyAPIBase,
		pollTimeout: apifyPollTimeout,
		pollDelay:   apifyPollDelay,
	}
}

func (a *ApifyAdapter) Platform() string { return a.cfg.ID }

func (a *ApifyAdapter) Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	if a.apiKey == "" {
		return nil, Permanent(fmt.Errorf("APIFY_API_KEY is not set"))
	}
	if a.cfg.ApifyActor == "" {
		return nil, Permanent(fmt.Errorf("platform %s has no apify_actor configured", a.cfg.ID))
	}

	runID, err := a.startRun(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("start run for %s: %w", a.cfg.ID, err)
	}

	datasetID, err := a.waitForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("wait for run %s: %w", runID, err)
	}

	items, err := a.fetchDataset(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", datasetID, err)
	}

	fetchedAt := time.Now().UTC()
	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, models.RawRecord{
			Platform:  a.cfg.ID,
			Query:     query,
			Fields:    item,
			FetchedAt: fetchedAt,
		})
	}

	return records, nil
}

func (a *ApifyAdapter) buildInput(query string, limit int) map[string]any {
	input := map[string]any{
		"query":    query,
		"maxItems": limit,
	}
	for k, v := range a.cfg.ExtraInput {
		input[k] = v
	}
	return input
}

type apifyRunResponse struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

func (a *ApifyAdapter) startRun(ctx context.Context, query string, limit int) (string, error) {
	body, err := json.Marshal(a.buildInput(query, limit))
	if err != nil {
		return "", Permanent(fmt.Errorf("marshal actor input: %w", err))
	}

	url := fmt.Sprintf("%s/acts/%s/runs?token=%s", a.apiBase, a.cfg.ApifyActor, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", Transient(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", statusError("start run", resp.StatusCode, string(respBody))
	}

	var run apifyRunResponse
	if err := json.Unmarshal(respBody, &run); err != nil {
		return "", Transient(fmt.Errorf("decode run response: %w", err))
	}
	if run.Data.ID == "" {
		return "", Transient(fmt.Errorf("run response has no id"))
	}

	return run.Data.ID, nil
}

func (a *ApifyAdapter) waitForRun(ctx context.Context, runID string) (string, error) {
	deadline := time.Now().Add(a.pollTimeout)

	for {
		if time.Now().After(deadline) {
			return "", Transient(fmt.Errorf("run %s did not finish within %s", runID, a.pollTimeout))
		}

		status, datasetID, err := a.runStatus(ctx, runID)
		if err != nil {
			return "", err
		}

		switch status {
		case "SUCCEEDED":
			if datasetID == "" {
				return "", Transient(fmt.Errorf("run %s succeeded without a dataset", runID))
			}
			return datasetID, nil
		case "FAILED", "ABORTED":
			return "", Permanent(fmt.Errorf("run %s ended with status %s", runID, status))
		case "TIMED-OUT":
			return "", Transient(fmt.Errorf("run %s timed out on the actor side", runID))
		}

		if err := sleep(ctx, a.pollDelay); err != nil {
			return "", err
		}
	}
}

func (a *ApifyAdapter) runStatus(ctx context.Context, runID string) (status, datasetID string, err error) {
	url := fmt.Sprintf("%s/actor-runs/%s?token=%s", a.apiBase, runID, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", Permanent(err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", "", Transient(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", "", statusError("run status", resp.StatusCode, string(respBody))
	}

	var run apifyRunResponse
	if err := json.Unmarshal(respBody, &run); err != nil {
		return "", "", Transient(fmt.Errorf("decode run status: %w", err))
	}

	return run.Data.Status, run.Data.DefaultDatasetID, nil
}

func (a *ApifyAdapter) fetchDataset(ctx context.Context, datasetID string) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/datasets/%s/items?format=json&clean=true&token=%s", a.apiBase, datasetID, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Permanent(err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, Transient(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("fetch dataset", resp.StatusCode, string(respBody))
	}

	var items []map[string]any
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, Transient(fmt.Errorf("decode dataset items: %w", err))
	}

	return items, nil
}
