// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package providers

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/spf13/cast"
)

// Validation limits shared by all providers. Adapters may be stricter but
// never looser; these bound what the dispatcher accepts before any network
// call happens.
const (
	MaxQueryLength   = 1000
	MaxResultsLimit  = 100
	MinResultsLimit  = 1
	MaxDomainCount   = 50
	MaxDomainLength  = 253
	MaxURLCount      = 20
	MaxContentLength = 50000
)

var domainRe = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// ValidateParams checks a parameter mapping against the capability's input
// contract. A nil return means the call may proceed to dispatch.
func ValidateParams(c Capability, params Params) *Error {
	switch c {
	case CapabilitySearch, CapabilityAnswer:
		return validateQueryParams(params)
	case CapabilityExtract:
		return validateExtractParams(params)
	case CapabilityEnrich:
		return validateEnrichParams(params)
	}
	return NewError(ErrInvalidParameters, "", fmt.Sprintf("unknown capability %q", c))
}

func validateQueryParams(params Params) *Error {
	query := cast.ToString(params["query"])
	if query == "" {
		return NewError(ErrInvalidParameters, "", "query is required")
	}
	if len(query) > MaxQueryLength {
		return NewError(ErrInvalidParameters, "", fmt.Sprintf("query must be at most %d characters", MaxQueryLength))
	}
	if raw, ok := params["limit"]; ok {
		limit, err := cast.ToIntE(raw)
		if err != nil {
			return NewError(ErrInvalidParameters, "", "limit must be an integer")
		}
		if limit < MinResultsLimit || limit > MaxResultsLimit {
			return NewError(ErrInvalidParameters, "", fmt.Sprintf("limit must be between %d and %d", MinResultsLimit, MaxResultsLimit))
		}
	}
	for _, key := range []string{"include_domains", "exclude_domains"} {
		if raw, ok := params[key]; ok {
			domains, err := cast.ToStringSliceE(raw)
			if err != nil {
				return NewError(ErrInvalidParameters, "", fmt.Sprintf("%s must be a list of domains", key))
			}
			if len(domains) > MaxDomainCount {
				return NewError(ErrInvalidParameters, "", fmt.Sprintf("%s must list at most %d domains", key, MaxDomainCount))
			}
			for _, d := range domains {
				if d == "" || len(d) > MaxDomainLength || !domainRe.MatchString(d) {
					return NewError(ErrInvalidParameters, "", fmt.Sprintf("%s contains invalid domain %q", key, d))
				}
			}
		}
	}
	return nil
}

func validateExtractParams(params Params) *Error {
	urls, err := extractURLs(params)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return NewError(ErrInvalidParameters, "", "url or urls is required")
	}
	if len(urls) > MaxURLCount {
		return NewError(ErrInvalidParameters, "", fmt.Sprintf("at most %d urls may be extracted per call", MaxURLCount))
	}
	for _, raw := range urls {
		u, parseErr := url.Parse(raw)
		if parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return NewError(ErrInvalidParameters, "", fmt.Sprintf("invalid url %q", raw))
		}
	}
	return nil
}

func validateEnrichParams(params Params) *Error {
	content := cast.ToString(params["content"])
	if content == "" {
		return NewError(ErrInvalidParameters, "", "content is required")
	}
	if len(content) > MaxContentLength {
		return NewError(ErrInvalidParameters, "", fmt.Sprintf("content must be at most %d characters", MaxContentLength))
	}
	return nil
}

// extractURLs accepts either a single "url" string or a "urls" list.
func extractURLs(params Params) ([]string, *Error) {
	if raw, ok := params["urls"]; ok {
		urls, err := cast.ToStringSliceE(raw)
		if err != nil {
			return nil, NewError(ErrInvalidParameters, "", "urls must be a list of strings")
		}
		return urls, nil
	}
	if raw, ok := params["url"]; ok {
		u, err := cast.ToStringE(raw)
		if err != nil {
			return nil, NewError(ErrInvalidParameters, "", "url must be a string")
		}
		return []string{u}, nil
	}
	return nil, nil
}
