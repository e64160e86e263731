// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package adapters

import (
	"net/http"
	"time"

	"github.com/mattermost/omnisearch/config"
	"github.com/mattermost/omnisearch/providers"
)

// Credential keys, matching the environment names the deployed service has
// always used.
const (
	KeyTavily         = "TAVILY_API_KEY"
	KeyBrave          = "BRAVE_API_KEY"
	KeyGoogle         = "GOOGLE_API_KEY"
	KeyGoogleEngineID = "GOOGLE_SEARCH_ENGINE_ID"
	KeyExa            = "EXA_API_KEY"
	KeyPerplexity     = "PERPLEXITY_API_KEY"
	KeyKagi           = "KAGI_API_KEY"
	KeyJina           = "JINA_AI_API_KEY"
)

// Entry pairs one provider descriptor with its constructed adapter.
type Entry struct {
	Descriptor providers.Descriptor
	Adapter    providers.Adapter
}

// Catalog declares every provider the process knows, enabled or not.
// Adapters are constructed eagerly; an adapter whose credentials are absent
// is registered but never invoked, because the registry gates resolution on
// the enabled set.
func Catalog(src config.Source, httpClient *http.Client, logger Logger) []Entry {
	return []Entry{
		{
			Descriptor: providers.Descriptor{
				ID:                  "tavily",
				Capability:          providers.CapabilitySearch,
				RequiredCredentials: []string{KeyTavily},
				Timeout:             10 * time.Second,
				Budget:              30 * time.Second,
				MaxInFlight:         8,
				RatePerMinute:       60,
				Priority:            1,
				CacheTTL:            5 * time.Minute,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewTavilyAdapter(src.Get(KeyTavily), "", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:                  "brave",
				Capability:          providers.CapabilitySearch,
				RequiredCredentials: []string{KeyBrave},
				Timeout:             10 * time.Second,
				Budget:              30 * time.Second,
				MaxInFlight:         8,
				RatePerMinute:       60,
				Priority:            2,
				CacheTTL:            5 * time.Minute,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewBraveAdapter(src.Get(KeyBrave), "", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:                  "exa",
				Capability:          providers.CapabilitySearch,
				RequiredCredentials: []string{KeyExa},
				Timeout:             15 * time.Second,
				Budget:              45 * time.Second,
				MaxInFlight:         4,
				RatePerMinute:       30,
				Priority:            3,
				CacheTTL:            5 * time.Minute,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewExaAdapter(src.Get(KeyExa), "", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:                  "google",
				Capability:          providers.CapabilitySearch,
				RequiredCredentials: []string{KeyGoogle, KeyGoogleEngineID},
				Timeout:             10 * time.Second,
				Budget:              30 * time.Second,
				MaxInFlight:         8,
				RatePerMinute:       60,
				Priority:            4,
				CacheTTL:            5 * time.Minute,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewGoogleAdapter(src.Get(KeyGoogle), src.Get(KeyGoogleEngineID), "", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:            "duckduckgo",
				Capability:    providers.CapabilitySearch,
				Timeout:       10 * time.Second,
				Budget:        30 * time.Second,
				MaxInFlight:   4,
				RatePerMinute: 30,
				Priority:      5,
				CacheTTL:      5 * time.Minute,
				Retry:         providers.DefaultRetryPolicy(),
			},
			Adapter: NewDuckDuckGoAdapter("", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:                  "perplexity",
				Capability:          providers.CapabilityAnswer,
				RequiredCredentials: []string{KeyPerplexity},
				Timeout:             30 * time.Second,
				Budget:              90 * time.Second,
				MaxInFlight:         4,
				RatePerMinute:       20,
				Priority:            1,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewPerplexityAdapter(src.Get(KeyPerplexity), "", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:                  "kagi_fastgpt",
				Capability:          providers.CapabilityAnswer,
				RequiredCredentials: []string{KeyKagi},
				Timeout:             30 * time.Second,
				Budget:              90 * time.Second,
				MaxInFlight:         4,
				RatePerMinute:       30,
				Priority:            2,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewKagiFastGPTAdapter(src.Get(KeyKagi), "", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:                  "jina_reader",
				Capability:          providers.CapabilityExtract,
				RequiredCredentials: []string{KeyJina},
				Timeout:             30 * time.Second,
				Budget:              60 * time.Second,
				MaxInFlight:         4,
				RatePerMinute:       60,
				Priority:            1,
				CacheTTL:            30 * time.Minute,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewJinaReaderAdapter(src.Get(KeyJina), "", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:                  "kagi_enrichment",
				Capability:          providers.CapabilityEnrich,
				RequiredCredentials: []string{KeyKagi},
				Timeout:             15 * time.Second,
				Budget:              45 * time.Second,
				MaxInFlight:         4,
				RatePerMinute:       30,
				Priority:            1,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewKagiEnrichmentAdapter(src.Get(KeyKagi), "", httpClient, logger),
		},
		{
			Descriptor: providers.Descriptor{
				ID:                  "jina_grounding",
				Capability:          providers.CapabilityEnrich,
				RequiredCredentials: []string{KeyJina},
				Timeout:             30 * time.Second,
				Budget:              60 * time.Second,
				MaxInFlight:         4,
				RatePerMinute:       30,
				Priority:            2,
				Retry:               providers.DefaultRetryPolicy(),
			},
			Adapter: NewJinaGroundingAdapter(src.Get(KeyJina), "", httpClient, logger),
		},
	}
}

// CapCacheTTL lowers any per-provider cache TTL above max. The setting is a
// deployment-wide ceiling; providers declaring shorter TTLs keep them, and a
// non-positive max leaves every descriptor untouched.
func CapCacheTTL(entries []Entry, max time.Duration) {
	if max <= 0 {
		return
	}
	for i := range entries {
		if entries[i].Descriptor.CacheTTL > max {
			entries[i].Descriptor.CacheTTL = max
		}
	}
}

// Descriptors extracts just the descriptors from catalog entries, for the
// credential probe and executor construction.
func Descriptors(entries []Entry) []providers.Descriptor {
	descs := make([]providers.Descriptor, 0, len(entries))
	for _, entry := range entries {
		descs = append(descs, entry.Descriptor)
	}
	return descs
}

// BuildRegistry registers every catalog entry against the enabled set.
func BuildRegistry(enabled providers.EnabledSet, entries []Entry) (*providers.Registry, error) {
	registry := providers.NewRegistry(enabled)
	for _, entry := range entries {
		if err := registry.Register(entry.Descriptor, entry.Adapter); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
