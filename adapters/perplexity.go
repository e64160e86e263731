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

const (
	defaultPerplexityEndpoint = "https://api.perplexity.ai"
	defaultPerplexityModel    = "sonar"
)

// PerplexityAdapter implements the answer capability against the Perplexity
// chat completions API, returning a cited AI answer for the query.
type PerplexityAdapter struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
	logger     Logger
}

// NewPerplexityAdapter creates a new PerplexityAdapter instance.
func NewPerplexityAdapter(apiKey, apiURL string, httpClient *http.Client, logger Logger) *PerplexityAdapter {
	if apiURL == "" {
		apiURL = defaultPerplexityEndpoint
	}
	return &PerplexityAdapter{
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      defaultPerplexityModel,
		httpClient: httpClient,
		logger:     logger,
	}
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

func (a *PerplexityAdapter) Invoke(ctx context.Context, params providers.Params) (*providers.RawResult, error) {
	body := map[string]any{
		"model": a.model,
		"messages": []map[string]any{
			{"role": "user", "content": cast.ToString(params["query"])},
		},
	}

	req, err := newJSONRequest(ctx, http.MethodPost, strings.TrimSuffix(a.apiURL, "/")+"/chat/completions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	var response perplexityResponse
	if err := doJSON(a.httpClient, req, &response); err != nil {
		return nil, err
	}

	answer := ""
	if len(response.Choices) > 0 {
		answer = response.Choices[0].Message.Content
	}
	citations := make([]any, 0, len(response.Citations))
	for _, citation := range response.Citations {
		citations = append(citations, map[string]any{"url": citation})
	}
	a.logger.Debug("Perplexity answer completed", "citations", len(citations))
	return &providers.RawResult{Payload: map[string]any{
		"answer":    answer,
		"citations": citations,
	}}, nil
}
