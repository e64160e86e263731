// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package mcpserver

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mattermost/omnisearch/dispatcher"
	"github.com/mattermost/omnisearch/providers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SearchArgs defines the arguments for the web_search tool
type SearchArgs struct {
	Query          string   `json:"query" jsonschema:"The search query,minLength=1,maxLength=1000"`
	Provider       string   `json:"provider,omitempty" jsonschema:"Specific search provider to use (e.g. tavily, brave, exa). Omit to use the highest-priority enabled provider."`
	Limit          int      `json:"limit,omitempty" jsonschema:"Maximum number of results to return,minimum=1,maximum=100"`
	IncludeDomains []string `json:"include_domains,omitempty" jsonschema:"Restrict results to these domains"`
	ExcludeDomains []string `json:"exclude_domains,omitempty" jsonschema:"Exclude results from these domains"`
}

// AnswerArgs defines the arguments for the ai_answer tool
type AnswerArgs struct {
	Query    string `json:"query" jsonschema:"The question to answer,minLength=1,maxLength=1000"`
	Provider string `json:"provider,omitempty" jsonschema:"Specific answer provider to use (e.g. perplexity, kagi_fastgpt). Omit to use the highest-priority enabled provider."`
}

// ExtractArgs defines the arguments for the extract_content tool
type ExtractArgs struct {
	URL      string `json:"url" jsonschema:"The URL to extract content from (http or https)"`
	Provider string `json:"provider,omitempty" jsonschema:"Specific extraction provider to use (e.g. jina_reader). Omit to use the highest-priority enabled provider."`
}

// EnrichArgs defines the arguments for the enrich_content tool
type EnrichArgs struct {
	Content  string `json:"content" jsonschema:"The statement or content to enrich or fact-check,minLength=1,maxLength=50000"`
	Provider string `json:"provider,omitempty" jsonschema:"Specific enrichment provider to use (e.g. kagi_enrichment, jina_grounding). Omit to use the highest-priority enabled provider."`
}

type searchToolPayload struct {
	Provider string                `json:"provider"`
	Results  []providers.SearchHit `json:"results"`
}

type answerToolPayload struct {
	Provider  string               `json:"provider"`
	Answer    string               `json:"answer"`
	Citations []providers.Citation `json:"citations,omitempty"`
}

type extractToolPayload struct {
	Provider string                      `json:"provider"`
	URL      string                      `json:"url"`
	Content  string                      `json:"content"`
	Sections []providers.DocumentSection `json:"sections,omitempty"`
	Metadata map[string]string           `json:"metadata,omitempty"`
}

type enrichToolPayload struct {
	Provider string               `json:"provider"`
	Facts    map[string]string    `json:"facts"`
	Sources  []providers.Citation `json:"sources,omitempty"`
}

// toolErrorPayload is rendered as text content when a call fails, so MCP
// clients can react to the retryable flag without parsing the message.
type toolErrorPayload struct {
	Kind      string `json:"kind"`
	Provider  string `json:"provider,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "web_search",
		Description: "Search the web. Returns a ranked list of results with titles, URLs, and snippets.",
	}, s.handleSearch)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ai_answer",
		Description: "Get a direct AI-generated answer to a question, grounded in current web sources with citations.",
	}, s.handleAnswer)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "extract_content",
		Description: "Extract the readable content of a web page as clean text.",
	}, s.handleExtract)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "enrich_content",
		Description: "Enrich or fact-check a statement against web sources. Returns supporting facts and their sources.",
	}, s.handleEnrich)
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchArgs) (*mcp.CallToolResult, searchToolPayload, error) {
	params := providers.Params{"query": input.Query}
	if input.Limit > 0 {
		params["limit"] = input.Limit
	}
	if len(input.IncludeDomains) > 0 {
		params["include_domains"] = input.IncludeDomains
	}
	if len(input.ExcludeDomains) > 0 {
		params["exclude_domains"] = input.ExcludeDomains
	}

	outcome := s.dispatcher.Handle(ctx, dispatcher.ToolCall{
		Provider:   providers.ID(input.Provider),
		Capability: providers.CapabilitySearch,
		Params:     params,
	})
	if !outcome.OK() {
		result, payload := toolError[searchToolPayload](outcome.Err)
		return result, payload, nil
	}
	if cerr := resultShapeError(outcome.Result, providers.CapabilitySearch); cerr != nil {
		result, payload := toolError[searchToolPayload](cerr)
		return result, payload, nil
	}

	hits := outcome.Result.SearchHits.Hits
	payload := searchToolPayload{
		Provider: string(outcome.Result.Provider),
		Results:  hits,
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d results from %s\n", len(hits), outcome.Result.Provider)
	for i, hit := range hits {
		fmt.Fprintf(&sb, "\n%d. %s\n%s\n", i+1, hit.Title, hit.URL)
		if hit.Snippet != "" {
			sb.WriteString(hit.Snippet)
			sb.WriteString("\n")
		}
	}

	return textResult(sb.String()), payload, nil
}

func (s *Server) handleAnswer(ctx context.Context, req *mcp.CallToolRequest, input AnswerArgs) (*mcp.CallToolResult, answerToolPayload, error) {
	outcome := s.dispatcher.Handle(ctx, dispatcher.ToolCall{
		Provider:   providers.ID(input.Provider),
		Capability: providers.CapabilityAnswer,
		Params:     providers.Params{"query": input.Query},
	})
	if !outcome.OK() {
		result, payload := toolError[answerToolPayload](outcome.Err)
		return result, payload, nil
	}
	if cerr := resultShapeError(outcome.Result, providers.CapabilityAnswer); cerr != nil {
		result, payload := toolError[answerToolPayload](cerr)
		return result, payload, nil
	}

	answer := outcome.Result.Answer
	payload := answerToolPayload{
		Provider:  string(outcome.Result.Provider),
		Answer:    answer.Text,
		Citations: answer.Citations,
	}

	var sb strings.Builder
	sb.WriteString(answer.Text)
	if len(answer.Citations) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, citation := range answer.Citations {
			if citation.Title != "" {
				fmt.Fprintf(&sb, "- %s (%s)\n", citation.Title, citation.URL)
			} else {
				fmt.Fprintf(&sb, "- %s\n", citation.URL)
			}
		}
	}

	return textResult(sb.String()), payload, nil
}

func (s *Server) handleExtract(ctx context.Context, req *mcp.CallToolRequest, input ExtractArgs) (*mcp.CallToolResult, extractToolPayload, error) {
	outcome := s.dispatcher.Handle(ctx, dispatcher.ToolCall{
		Provider:   providers.ID(input.Provider),
		Capability: providers.CapabilityExtract,
		Params:     providers.Params{"url": input.URL},
	})
	if !outcome.OK() {
		result, payload := toolError[extractToolPayload](outcome.Err)
		return result, payload, nil
	}
	if cerr := resultShapeError(outcome.Result, providers.CapabilityExtract); cerr != nil {
		result, payload := toolError[extractToolPayload](cerr)
		return result, payload, nil
	}

	doc := outcome.Result.Document
	payload := extractToolPayload{
		Provider: string(outcome.Result.Provider),
		URL:      doc.SourceURL,
		Content:  doc.Content,
		Sections: doc.Sections,
		Metadata: doc.Metadata,
	}

	return textResult(doc.Content), payload, nil
}

func (s *Server) handleEnrich(ctx context.Context, req *mcp.CallToolRequest, input EnrichArgs) (*mcp.CallToolResult, enrichToolPayload, error) {
	outcome := s.dispatcher.Handle(ctx, dispatcher.ToolCall{
		Provider:   providers.ID(input.Provider),
		Capability: providers.CapabilityEnrich,
		Params:     providers.Params{"content": input.Content},
	})
	if !outcome.OK() {
		result, payload := toolError[enrichToolPayload](outcome.Err)
		return result, payload, nil
	}
	if cerr := resultShapeError(outcome.Result, providers.CapabilityEnrich); cerr != nil {
		result, payload := toolError[enrichToolPayload](cerr)
		return result, payload, nil
	}

	enrichment := outcome.Result.Enrichment
	payload := enrichToolPayload{
		Provider: string(outcome.Result.Provider),
		Facts:    enrichment.Facts,
		Sources:  enrichment.Sources,
	}

	var sb strings.Builder
	for key, value := range enrichment.Facts {
		fmt.Fprintf(&sb, "%s: %s\n", key, value)
	}
	if len(enrichment.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for _, source := range enrichment.Sources {
			fmt.Fprintf(&sb, "- %s\n", source.URL)
		}
	}

	return textResult(sb.String()), payload, nil
}

// resultShapeError rejects a success outcome whose canonical shape does not
// match the tool's capability, before handlers dereference the shape pointer.
func resultShapeError(result *providers.NormalizedResult, c providers.Capability) *providers.Error {
	if result.Kind == providers.KindForCapability(c) {
		return nil
	}
	return providers.NewError(providers.ErrMalformedResponse, result.Provider,
		fmt.Sprintf("result kind %q does not match capability %q", result.Kind, c))
}

// textResult wraps plain text in a CallToolResult.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// toolError converts a classified error into an error-flagged tool result.
// The error is reported through the result rather than the handler's error
// return so the model sees it and can decide whether to retry or fall back.
func toolError[T any](cerr *providers.Error) (*mcp.CallToolResult, T) {
	var zero T
	payload := toolErrorPayload{
		Kind:      string(cerr.Kind),
		Provider:  string(cerr.Provider),
		Message:   cerr.Message,
		Retryable: cerr.Retryable(),
	}
	text, err := json.MarshalToString(payload)
	if err != nil {
		text = fmt.Sprintf(`{"kind":%q,"message":%q}`, cerr.Kind, cerr.Message)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, zero
}
