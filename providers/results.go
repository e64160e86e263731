// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package providers

// ResultKind discriminates the canonical result shapes.
type ResultKind string

const (
	ResultSearchHits ResultKind = "search_hits"
	ResultAnswer     ResultKind = "answer"
	ResultDocument   ResultKind = "document"
	ResultEnrichment ResultKind = "enrichment"
)

// KindForCapability returns the canonical result shape a capability always
// produces, regardless of provider.
func KindForCapability(c Capability) ResultKind {
	switch c {
	case CapabilitySearch:
		return ResultSearchHits
	case CapabilityAnswer:
		return ResultAnswer
	case CapabilityExtract:
		return ResultDocument
	case CapabilityEnrich:
		return ResultEnrichment
	}
	return ""
}

// SearchHit is one entry of a search result list.
type SearchHit struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Snippet string   `json:"snippet"`
	Score   *float64 `json:"score,omitempty"`
}

// SearchHitList is the canonical shape for the search capability.
type SearchHitList struct {
	Hits []SearchHit `json:"hits"`
}

// Citation references a source backing an answer or enrichment.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AnswerText is the canonical shape for the answer capability.
type AnswerText struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}

// DocumentSection is one segment of an extracted document.
type DocumentSection struct {
	Heading string `json:"heading,omitempty"`
	Content string `json:"content"`
}

// ExtractedDocument is the canonical shape for the extract capability.
type ExtractedDocument struct {
	SourceURL string            `json:"source_url"`
	Content   string            `json:"content"`
	Sections  []DocumentSection `json:"sections,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EnrichmentRecord is the canonical shape for the enrich capability.
type EnrichmentRecord struct {
	Facts   map[string]string `json:"facts"`
	Sources []Citation        `json:"sources,omitempty"`
}

// NormalizedResult is the single success shape every provider call resolves
// to. Exactly one of the shape fields is set, matching Kind; Provider records
// which provider produced it.
type NormalizedResult struct {
	Kind       ResultKind         `json:"kind"`
	Provider   ID                 `json:"provider"`
	SearchHits *SearchHitList     `json:"search_hits,omitempty"`
	Answer     *AnswerText        `json:"answer,omitempty"`
	Document   *ExtractedDocument `json:"document,omitempty"`
	Enrichment *EnrichmentRecord  `json:"enrichment,omitempty"`
}

// Outcome is the sum type every invocation resolves to: exactly one of
// Result or Err is non-nil, never both.
type Outcome struct {
	Result *NormalizedResult
	Err    *Error
}

// Succeeded constructs a success outcome.
func Succeeded(result *NormalizedResult) Outcome {
	return Outcome{Result: result}
}

// Failed constructs a failure outcome.
func Failed(err *Error) Outcome {
	return Outcome{Err: err}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Err == nil
}
