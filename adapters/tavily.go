// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package adapters

import (
	"context"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"github.com/mattermost/omnisearch/providers"
)

const defaultTavilyEndpoint = "https://api.tavily.com"

// TavilyAdapter implements the search capability against the Tavily Search
// API. Best for factual queries requiring reliable sources; supports domain
// filtering natively.
type TavilyAdapter struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     Logger
}

// NewTavilyAdapter creates a new TavilyAdapter instance.
func NewTavilyAdapter(apiKey, apiURL string, httpClient *http.Client, logger Logger) *TavilyAdapter {
	if apiURL == "" {
		apiURL = defaultTavilyEndpoint
	}
	return &TavilyAdapter{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type tavilySearchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (a *TavilyAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	body := map[string]any{
		"query":        cast.ToString(params["query"]),
		"max_results":  limitOrDefault(params, 5),
		"search_depth": "basic",
		"topic":        "general",
	}
	if domains := cast.ToStringSlice(params["include_domains"]); len(domains) > 0 {
		body["include_domains"] = domains
	}
	if domains := cast.ToStringSlice(params["exclude_domains"]); len(domains) > 0 {
		body["exclude_domains"] = domains
	}

	req, err := newJSONRequest(ctx, http.MethodPost, strings.TrimSuffix(a.apiURL, "/")+"/search", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	var response tavilySearchResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	hits := make([]map[string]any, 0, len(response.Results))
	for _, result := range response.Results {
		score := result.Score
		hits = append(hits, searchHit(result.Title, result.URL, result.Content, &score))
	}
	a.logger.Debug("Tavily search completed", "results", len(hits))
	return searchPayload(hits), nil
}

func limitOrDefault(params providers.Params, fallback int) int {
	limit := cast.ToInt(params["limit"])
	if limit <= 0 {
		return fallback
	}
	return limit
}
