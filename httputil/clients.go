package httputil

import (
	"net/http"
	"net/url"
	"time"

	"shopradar/config"
)

type Clients struct {
	Scraping *http.Client // proxied when configured, for platform endpoints
	API      *http.Client // direct, for the actor platform and webhooks
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	scraping := &http.Client{Timeout: 30 * time.Second}

	if proxyCfg != nil && proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			scraping.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 60 * time.Second},
	}
}
