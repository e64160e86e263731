// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package normalize converts raw adapter payloads into the canonical result
// shapes. Normalization is mandatory and total: every adapter success maps
// to exactly one canonical shape, and any payload that cannot be mapped is
// itself a failure, never passed through partially populated.
package normalize

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/mattermost/omnisearch/providers"
)

// Normalize shapes one raw adapter success for the given capability.
// Adapters produce loosely-typed payloads (decoded JSON keyed by the
// capability's conventional field names); this is the only place allowed to
// interpret them.
func Normalize(id providers.ID, capability providers.Capability, raw *providers.RawResult) (*providers.NormalizedResult, *providers.Error) {
	if raw == nil {
		return nil, malformed(id, "adapter returned no payload")
	}
	payload, err := cast.ToStringMapE(raw.Payload)
	if err != nil {
		return nil, malformed(id, "adapter payload is not an object")
	}

	switch capability {
	case providers.CapabilitySearch:
		return normalizeSearch(id, payload)
	case providers.CapabilityAnswer:
		return normalizeAnswer(id, payload)
	case providers.CapabilityExtract:
		return normalizeExtract(id, payload)
	case providers.CapabilityEnrich:
		return normalizeEnrich(id, payload)
	}
	return nil, malformed(id, fmt.Sprintf("no normalization path for capability %q", capability))
}

func normalizeSearch(id providers.ID, payload map[string]any) (*providers.NormalizedResult, *providers.Error) {
	rawResults, ok := payload["results"]
	if !ok {
		return nil, malformed(id, "search payload is missing results")
	}
	items, err := toSlice(rawResults)
	if err != nil {
		return nil, malformed(id, "search results are not a list")
	}

	hits := make([]providers.SearchHit, 0, len(items))
	for i, item := range items {
		entry, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, malformed(id, fmt.Sprintf("search result %d is not an object", i))
		}
		hit := providers.SearchHit{
			Title:   cast.ToString(entry["title"]),
			URL:     cast.ToString(entry["url"]),
			Snippet: cast.ToString(entry["snippet"]),
		}
		if hit.Title == "" || hit.URL == "" {
			return nil, malformed(id, fmt.Sprintf("search result %d is missing title or url", i))
		}
		if rawScore, ok := entry["score"]; ok && rawScore != nil {
			score, err := cast.ToFloat64E(rawScore)
			if err != nil {
				return nil, malformed(id, fmt.Sprintf("search result %d has a non-numeric score", i))
			}
			hit.Score = &score
		}
		hits = append(hits, hit)
	}

	return &providers.NormalizedResult{
		Kind:       providers.ResultSearchHits,
		Provider:   id,
		SearchHits: &providers.SearchHitList{Hits: hits},
	}, nil
}

func normalizeAnswer(id providers.ID, payload map[string]any) (*providers.NormalizedResult, *providers.Error) {
	text := cast.ToString(payload["answer"])
	if text == "" {
		return nil, malformed(id, "answer payload is missing answer text")
	}
	citations, cerr := normalizeCitations(id, payload["citations"])
	if cerr != nil {
		return nil, cerr
	}
	return &providers.NormalizedResult{
		Kind:     providers.ResultAnswer,
		Provider: id,
		Answer:   &providers.AnswerText{Text: text, Citations: citations},
	}, nil
}

func normalizeExtract(id providers.ID, payload map[string]any) (*providers.NormalizedResult, *providers.Error) {
	doc := providers.ExtractedDocument{
		SourceURL: cast.ToString(payload["url"]),
		Content:   cast.ToString(payload["content"]),
	}
	if doc.SourceURL == "" || doc.Content == "" {
		return nil, malformed(id, "extract payload is missing url or content")
	}
	if rawSections, ok := payload["sections"]; ok && rawSections != nil {
		items, err := toSlice(rawSections)
		if err != nil {
			return nil, malformed(id, "extract sections are not a list")
		}
		for i, item := range items {
			entry, err := cast.ToStringMapE(item)
			if err != nil {
				return nil, malformed(id, fmt.Sprintf("extract section %d is not an object", i))
			}
			section := providers.DocumentSection{
				Heading: cast.ToString(entry["heading"]),
				Content: cast.ToString(entry["content"]),
			}
			if section.Content == "" {
				return nil, malformed(id, fmt.Sprintf("extract section %d has no content", i))
			}
			doc.Sections = append(doc.Sections, section)
		}
	}
	if rawMeta, ok := payload["metadata"]; ok && rawMeta != nil {
		meta, err := cast.ToStringMapStringE(rawMeta)
		if err != nil {
			return nil, malformed(id, "extract metadata is not a string map")
		}
		doc.Metadata = meta
	}
	return &providers.NormalizedResult{
		Kind:     providers.ResultDocument,
		Provider: id,
		Document: &doc,
	}, nil
}

func normalizeEnrich(id providers.ID, payload map[string]any) (*providers.NormalizedResult, *providers.Error) {
	rawFacts, ok := payload["facts"]
	if !ok {
		return nil, malformed(id, "enrichment payload is missing facts")
	}
	facts, err := cast.ToStringMapStringE(rawFacts)
	if err != nil {
		return nil, malformed(id, "enrichment facts are not a string map")
	}
	if len(facts) == 0 {
		return nil, malformed(id, "enrichment payload has no facts")
	}
	sources, cerr := normalizeCitations(id, payload["sources"])
	if cerr != nil {
		return nil, cerr
	}
	return &providers.NormalizedResult{
		Kind:       providers.ResultEnrichment,
		Provider:   id,
		Enrichment: &providers.EnrichmentRecord{Facts: facts, Sources: sources},
	}, nil
}

func normalizeCitations(id providers.ID, raw any) ([]providers.Citation, *providers.Error) {
	if raw == nil {
		return nil, nil
	}
	items, err := toSlice(raw)
	if err != nil {
		return nil, malformed(id, "citations are not a list")
	}
	citations := make([]providers.Citation, 0, len(items))
	for i, item := range items {
		entry, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, malformed(id, fmt.Sprintf("citation %d is not an object", i))
		}
		citation := providers.Citation{
			Title: cast.ToString(entry["title"]),
			URL:   cast.ToString(entry["url"]),
		}
		if citation.URL == "" {
			return nil, malformed(id, fmt.Sprintf("citation %d is missing url", i))
		}
		citations = append(citations, citation)
	}
	return citations, nil
}

func toSlice(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case []map[string]any:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return items, nil
	}
	return nil, fmt.Errorf("not a slice: %T", raw)
}

func malformed(id providers.ID, message string) *providers.Error {
	return providers.NewError(providers.ErrMalformedResponse, id, message)
}
