// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/mattermost/omnisearch/providers"
)

const defaultKagiEndpoint = "https://kagi.com/api/v0"

// KagiFastGPTAdapter implements the answer capability against the Kagi
// FastGPT API.
type KagiFastGPTAdapter struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     Logger
}

// NewKagiFastGPTAdapter creates a new KagiFastGPTAdapter instance.
func NewKagiFastGPTAdapter(apiKey, apiURL string, httpClient *http.Client, logger Logger) *KagiFastGPTAdapter {
	if apiURL == "" {
		apiURL = defaultKagiEndpoint
	}
	return &KagiFastGPTAdapter{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type kagiFastGPTResponse struct {
	Data struct {
		Output     string `json:"output"`
		References []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"references"`
	} `json:"data"`
}

func (a *KagiFastGPTAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	body := map[string]any{
		"query": cast.ToString(params["query"]),
		"cache": true,
	}
	req, err := newJSONRequest(ctx, http.MethodPost, strings.TrimSuffix(a.apiURL, "/")+"/fastgpt", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+a.apiKey)

	var response kagiFastGPTResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	citations := make([]any, 0, len(response.Data.References))
	for _, ref := range response.Data.References {
		citations = append(citations, map[string]any{"title": ref.Title, "url": ref.URL})
	}
	a.logger.Debug("Kagi FastGPT answer completed", "citations", len(citations))
	return &providers.RawResult{Payload: map[string]any{
		"answer":    response.Data.Output,
		"citations": citations,
	}}, nil
}

// KagiEnrichmentAdapter implements the enrich capability against the Kagi
// enrichment API, surfacing supplemental facts for a piece of content.
type KagiEnrichmentAdapter struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     Logger
}

// NewKagiEnrichmentAdapter creates a new KagiEnrichmentAdapter instance.
func NewKagiEnrichmentAdapter(apiKey, apiURL string, httpClient *http.Client, logger Logger) *KagiEnrichmentAdapter {
	if apiURL == "" {
		apiURL = defaultKagiEndpoint
	}
	return &KagiEnrichmentAdapter{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type kagiEnrichResponse struct {
	Data []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"data"`
}

func (a *KagiEnrichmentAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	enrichURL := strings.TrimSuffix(a.apiURL, "/") + "/enrich/web"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, enrichURL, nil)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("q", cast.ToString(params["content"]))
	req.URL.RawQuery = values.Encode()
	req.Header.Set("Authorization", "Bot "+a.apiKey)
	req.Header.Set("Accept", "application/json")

	var response kagiEnrichResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	facts := make(map[string]any, len(response.Data))
	sources := make([]any, 0, len(response.Data))
	for i, entry := range response.Data {
		title := entry.Title
		if title == "" {
			title = fmt.Sprintf("enrichment_%d", i+1)
		}
		facts[title] = entry.Snippet
		if entry.URL != "" {
			sources = append(sources, map[string]any{"title": entry.Title, "url": entry.URL})
		}
	}
	a.logger.Debug("Kagi enrichment completed", "facts", len(facts))
	return &providers.RawResult{Payload: map[string]any{
		"facts":   facts,
		"sources": sources,
	}}, nil
}
