// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package adapters

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/mattermost/omnisearch/providers"
)

const defaultBraveSearchEndpoint = "https://api.search.brave.com"

// BraveAdapter implements the search capability against the Brave Search
// API.
type BraveAdapter struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     Logger
}

// NewBraveAdapter creates a new BraveAdapter instance.
func NewBraveAdapter(apiKey, apiURL string, httpClient *http.Client, logger Logger) *BraveAdapter {
	if apiURL == "" {
		apiURL = defaultBraveSearchEndpoint
	}
	return &BraveAdapter{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type braveWebSearchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (a *BraveAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	limit := limitOrDefault(params, 5)
	if limit > 20 {
		limit = 20
	}

	searchURL := strings.TrimSuffix(a.apiURL, "/") + "/res/v1/web/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("q", cast.ToString(params["query"]))
	values.Set("count", strconv.Itoa(limit))
	req.URL.RawQuery = values.Encode()
	req.Header.Set("X-Subscription-Token", a.apiKey)
	req.Header.Set("Accept", "application/json")

	var response braveWebSearchResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	hits := make([]map[string]any, 0, len(response.Web.Results))
	for _, result := range response.Web.Results {
		if len(hits) >= limit {
			break
		}
		hits = append(hits, searchHit(result.Title, result.URL, result.Description, nil))
	}
	a.logger.Debug("Brave search completed", "results", len(hits))
	return searchPayload(hits), nil
}
