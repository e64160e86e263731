// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package adapters

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cast"

	"github.com/mattermost/omnisearch/providers"
)

const defaultGoogleSearchEndpoint = "https://customsearch.googleapis.com/customsearch/v1"

// GoogleAdapter implements the search capability against the Google Custom
// Search JSON API. It needs both an API key and a search engine id.
type GoogleAdapter struct {
	apiKey         string
	searchEngineID string
	apiURL         string
	httpClient     *http.Client
	logger         Logger
}

// NewGoogleAdapter creates a new GoogleAdapter instance.
func NewGoogleAdapter(apiKey, searchEngineID, apiURL string, httpClient *http.Client, logger Logger) *GoogleAdapter {
	if apiURL == "" {
		apiURL = defaultGoogleSearchEndpoint
	}
	return &GoogleAdapter{
		apiKey:         apiKey,
		searchEngineID: searchEngineID,
		apiURL:         apiURL,
		httpClient:     httpClient,
		logger:         logger,
	}
}

type googleSearchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (a *GoogleAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	// The API caps num at 10 per request.
	limit := limitOrDefault(params, 5)
	if limit > 10 {
		limit = 10
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL, nil)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("key", a.apiKey)
	values.Set("cx", a.searchEngineID)
	values.Set("q", cast.ToString(params["query"]))
	values.Set("num", strconv.Itoa(limit))
	req.URL.RawQuery = values.Encode()
	req.Header.Set("Accept", "application/json")

	var response googleSearchResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	hits := make([]map[string]any, 0, len(response.Items))
	for _, item := range response.Items {
		hits = append(hits, searchHit(item.Title, item.Link, item.Snippet, nil))
	}
	a.logger.Debug("Google search completed", "results", len(hits))
	return searchPayload(hits), nil
}
