// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package config

import (
	"github.com/mattermost/omnisearch/providers"
)

// Probe inspects the configuration source once and produces the set of
// enabled provider identities. A provider is enabled iff every required
// credential key is present and non-empty. No network calls are made;
// enablement is configuration presence, not key validity. Providers disabled
// here stay disabled for the process lifetime (credential rotation requires
// a restart).
func Probe(src Source, descriptors []providers.Descriptor) providers.EnabledSet {
	enabled := make(providers.EnabledSet, len(descriptors))
	for _, desc := range descriptors {
		if len(MissingCredentials(src, desc)) == 0 {
			enabled[desc.ID] = struct{}{}
		}
	}
	return enabled
}

// MissingCredentials returns the required credential keys that did not
// resolve to a non-empty value, in declaration order.
func MissingCredentials(src Source, desc providers.Descriptor) []string {
	var missing []string
	for _, key := range desc.RequiredCredentials {
		if src.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
