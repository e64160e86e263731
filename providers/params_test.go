// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSearchParams(t *testing.T) {
	t.Run("valid query passes", func(t *testing.T) {
		require.Nil(t, ValidateParams(CapabilitySearch, Params{"query": "golang generics"}))
	})

	t.Run("missing query fails", func(t *testing.T) {
		cerr := ValidateParams(CapabilitySearch, Params{})
		require.NotNil(t, cerr)
		require.Equal(t, ErrInvalidParameters, cerr.Kind)
	})

	t.Run("oversized query fails", func(t *testing.T) {
		cerr := ValidateParams(CapabilitySearch, Params{"query": strings.Repeat("a", MaxQueryLength+1)})
		require.NotNil(t, cerr)
		require.Equal(t, ErrInvalidParameters, cerr.Kind)
	})

	t.Run("limit bounds", func(t *testing.T) {
		require.Nil(t, ValidateParams(CapabilitySearch, Params{"query": "q", "limit": 1}))
		require.Nil(t, ValidateParams(CapabilitySearch, Params{"query": "q", "limit": MaxResultsLimit}))
		require.NotNil(t, ValidateParams(CapabilitySearch, Params{"query": "q", "limit": 0}))
		require.NotNil(t, ValidateParams(CapabilitySearch, Params{"query": "q", "limit": MaxResultsLimit + 1}))
		require.NotNil(t, ValidateParams(CapabilitySearch, Params{"query": "q", "limit": "many"}))
	})

	t.Run("domain filters", func(t *testing.T) {
		require.Nil(t, ValidateParams(CapabilitySearch, Params{
			"query":           "q",
			"include_domains": []string{"example.com", "docs.example.co.uk"},
			"exclude_domains": []string{"spam.example"},
		}))

		cerr := ValidateParams(CapabilitySearch, Params{"query": "q", "include_domains": []string{"not a domain"}})
		require.NotNil(t, cerr)
		require.Equal(t, ErrInvalidParameters, cerr.Kind)

		tooMany := make([]string, MaxDomainCount+1)
		for i := range tooMany {
			tooMany[i] = "example.com"
		}
		require.NotNil(t, ValidateParams(CapabilitySearch, Params{"query": "q", "exclude_domains": tooMany}))
	})
}

func TestValidateExtractParams(t *testing.T) {
	t.Run("single url", func(t *testing.T) {
		require.Nil(t, ValidateParams(CapabilityExtract, Params{"url": "https://example.com/page"}))
	})

	t.Run("url list", func(t *testing.T) {
		require.Nil(t, ValidateParams(CapabilityExtract, Params{"urls": []string{"https://a.example", "http://b.example"}}))
	})

	t.Run("missing url fails", func(t *testing.T) {
		cerr := ValidateParams(CapabilityExtract, Params{})
		require.NotNil(t, cerr)
		require.Equal(t, ErrInvalidParameters, cerr.Kind)
	})

	t.Run("non-http schemes fail", func(t *testing.T) {
		for _, bad := range []string{"ftp://example.com", "file:///etc/passwd", "javascript:alert(1)", "example.com"} {
			cerr := ValidateParams(CapabilityExtract, Params{"url": bad})
			require.NotNil(t, cerr, "url %q should fail validation", bad)
		}
	})

	t.Run("url count bound", func(t *testing.T) {
		urls := make([]string, MaxURLCount+1)
		for i := range urls {
			urls[i] = "https://example.com"
		}
		require.NotNil(t, ValidateParams(CapabilityExtract, Params{"urls": urls}))
	})
}

func TestValidateEnrichParams(t *testing.T) {
	require.Nil(t, ValidateParams(CapabilityEnrich, Params{"content": "the earth orbits the sun"}))

	cerr := ValidateParams(CapabilityEnrich, Params{})
	require.NotNil(t, cerr)
	require.Equal(t, ErrInvalidParameters, cerr.Kind)

	require.NotNil(t, ValidateParams(CapabilityEnrich, Params{"content": strings.Repeat("x", MaxContentLength+1)}))
}
