// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package adapters

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spf13/cast"

	"github.com/mattermost/omnisearch/providers"
)

const defaultDuckDuckGoEndpoint = "https://api.duckduckgo.com"

// DuckDuckGoAdapter implements the search capability against the DuckDuckGo
// Instant Answer API. It needs no credentials, which makes it the fallback
// search provider of last resort.
type DuckDuckGoAdapter struct {
	apiURL     string
	httpClient *http.Client
	logger     Logger
}

// NewDuckDuckGoAdapter creates a new DuckDuckGoAdapter instance.
func NewDuckDuckGoAdapter(apiURL string, httpClient *http.Client, logger Logger) *DuckDuckGoAdapter {
	if apiURL == "" {
		apiURL = defaultDuckDuckGoEndpoint
	}
	return &DuckDuckGoAdapter{
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type duckDuckGoResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (a *DuckDuckGoAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL, nil)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("q", cast.ToString(params["query"]))
	values.Set("format", "json")
	values.Set("no_html", "1")
	req.URL.RawQuery = values.Encode()
	req.Header.Set("Accept", "application/json")

	var response duckDuckGoResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	limit := limitOrDefault(params, 5)
	hits := make([]map[string]any, 0, limit)
	if response.AbstractText != "" && response.AbstractURL != "" {
		hits = append(hits, searchHit(response.Heading, response.AbstractURL, response.AbstractText, nil))
	}
	for _, topic := range response.RelatedTopics {
		if len(hits) >= limit {
			break
		}
		if topic.FirstURL == "" || topic.Text == "" {
			continue
		}
		hits = append(hits, searchHit(topic.Text, topic.FirstURL, topic.Text, nil))
	}
	a.logger.Debug("DuckDuckGo search completed", "results", len(hits))
	return searchPayload(hits), nil
}
