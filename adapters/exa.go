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

const defaultExaEndpoint = "https://api.exa.ai"

// ExaAdapter implements the search capability against the Exa neural search
// API.
type ExaAdapter struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     Logger
}

// NewExaAdapter creates a new ExaAdapter instance.
func NewExaAdapter(apiKey, apiURL string, httpClient *http.Client, logger Logger) *ExaAdapter {
	if apiURL == "" {
		apiURL = defaultExaEndpoint
	}
	return &ExaAdapter{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type exaSearchResponse struct {
	Results []struct {
		Title string  `json:"title"`
		URL   string  `json:"url"`
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"results"`
}

func (a *ExaAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	body := map[string]any{
		"query":      cast.ToString(params["query"]),
		"numResults": limitOrDefault(params, 5),
		"contents":   map[string]any{"text": true},
	}
	if domains := cast.ToStringSlice(params["include_domains"]); len(domains) > 0 {
		body["includeDomains"] = domains
	}
	if domains := cast.ToStringSlice(params["exclude_domains"]); len(domains) > 0 {
		body["excludeDomains"] = domains
	}

	req, err := newJSONRequest(ctx, http.MethodPost, strings.TrimSuffix(a.apiURL, "/")+"/search", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", a.apiKey)

	var response exaSearchResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	hits := make([]map[string]any, 0, len(response.Results))
	for _, result := range response.Results {
		score := result.Score
		hits = append(hits, searchHit(result.Title, result.URL, truncate(result.Text, 500), &score))
	}
	a.logger.Debug("Exa search completed", "results", len(hits))
	return searchPayload(hits), nil
}
