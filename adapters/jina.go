// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"github.com/mattermost/omnisearch/providers"
)

const (
	defaultJinaReaderEndpoint    = "https://r.jina.ai"
	defaultJinaGroundingEndpoint = "https://g.jina.ai"
)

// JinaReaderAdapter implements the extract capability against the Jina
// Reader API, turning a URL into clean markdown.
type JinaReaderAdapter struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     Logger
}

// NewJinaReaderAdapter creates a new JinaReaderAdapter instance.
func NewJinaReaderAdapter(apiKey, apiURL string, httpClient *http.Client, logger Logger) *JinaReaderAdapter {
	if apiURL == "" {
		apiURL = defaultJinaReaderEndpoint
	}
	return &JinaReaderAdapter{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type jinaReaderResponse struct {
	Data struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"data"`
}

func (a *JinaReaderAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	target := cast.ToString(params["url"])
	if target == "" {
		if urls := cast.ToStringSlice(params["urls"]); len(urls) > 0 {
			target = urls[0]
		}
	}

	readerURL := strings.TrimSuffix(a.apiURL, "/") + "/" + target
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, readerURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")

	var response jinaReaderResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	sourceURL := response.Data.URL
	if sourceURL == "" {
		sourceURL = target
	}
	metadata := map[string]any{}
	if response.Data.Title != "" {
		metadata["title"] = response.Data.Title
	}
	a.logger.Debug("Jina reader extraction completed", "url", sourceURL, "bytes", len(response.Data.Content))
	return &providers.RawResult{Payload: map[string]any{
		"url":      sourceURL,
		"content":  response.Data.Content,
		"metadata": metadata,
	}}, nil
}

// JinaGroundingAdapter implements the enrich capability against the Jina
// grounding API, fact-checking a statement against live web sources.
type JinaGroundingAdapter struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     Logger
}

// NewJinaGroundingAdapter creates a new JinaGroundingAdapter instance.
func NewJinaGroundingAdapter(apiKey, apiURL string, httpClient *http.Client, logger Logger) *JinaGroundingAdapter {
	if apiURL == "" {
		apiURL = defaultJinaGroundingEndpoint
	}
	return &JinaGroundingAdapter{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type jinaGroundingResponse struct {
	Data struct {
		Factuality float64 `json:"factuality"`
		Result     bool    `json:"result"`
		Reason     string  `json:"reason"`
		References []struct {
			URL      string `json:"url"`
			KeyQuote string `json:"keyQuote"`
		} `json:"references"`
	} `json:"data"`
}

func (a *JinaGroundingAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	body := map[string]any{
		"statement": cast.ToString(params["content"]),
	}
	req, err := newJSONRequest(ctx, http.MethodPost, a.apiURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	var response jinaGroundingResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	facts := map[string]any{
		"factuality": fmt.Sprintf("%.2f", response.Data.Factuality),
		"supported":  fmt.Sprintf("%t", response.Data.Result),
	}
	if response.Data.Reason != "" {
		facts["reason"] = response.Data.Reason
	}
	sources := make([]any, 0, len(response.Data.References))
	for _, ref := range response.Data.References {
		if ref.URL == "" {
			continue
		}
		sources = append(sources, map[string]any{"title": ref.KeyQuote, "url": ref.URL})
	}
	a.logger.Debug("Jina grounding completed", "references", len(sources))
	return &providers.RawResult{Payload: map[string]any{
		"facts":   facts,
		"sources": sources,
	}}, nil
}
