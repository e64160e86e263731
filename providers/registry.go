// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package providers

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps provider identities to adapters and descriptors. All
// registration happens during startup, including for disabled providers, so
// that "known but not enabled" stays distinguishable from "unknown". After
// startup the registry is read-only and safe for concurrent use without
// locking.
type Registry struct {
	enabled     EnabledSet
	descriptors map[ID]Descriptor
	adapters    map[ID]Adapter
}

// NewRegistry creates a registry that gates resolution on the given enabled
// set. The set is adopted as-is; the credential probe computes it once at
// process start.
func NewRegistry(enabled EnabledSet) *Registry {
	return &Registry{
		enabled:     enabled,
		descriptors: make(map[ID]Descriptor),
		adapters:    make(map[ID]Adapter),
	}
}

// Register adds one provider. It is called once per known provider during
// startup; duplicate identities are a wiring bug.
func (r *Registry) Register(desc Descriptor, adapter Adapter) error {
	if err := desc.validate(); err != nil {
		return err
	}
	if adapter == nil {
		return fmt.Errorf("provider %q registered without an adapter", desc.ID)
	}
	if _, exists := r.descriptors[desc.ID]; exists {
		return fmt.Errorf("provider %q registered twice", desc.ID)
	}
	r.descriptors[desc.ID] = desc
	r.adapters[desc.ID] = adapter
	return nil
}

// Resolve returns the adapter and descriptor for an identity. A known but
// disabled identity fails with ErrProviderDisabled carrying the credential
// keys to set, so callers can produce an actionable message.
func (r *Registry) Resolve(id ID) (Adapter, Descriptor, *Error) {
	desc, known := r.descriptors[id]
	if !known {
		return nil, Descriptor{}, NewError(ErrProviderUnknown, id, fmt.Sprintf("provider %q is not registered", id))
	}
	if !r.enabled.Has(id) {
		msg := fmt.Sprintf("provider %q is disabled", id)
		if len(desc.RequiredCredentials) > 0 {
			msg = fmt.Sprintf("provider %q is disabled: set %s", id, strings.Join(desc.RequiredCredentials, ", "))
		}
		return nil, Descriptor{}, NewError(ErrProviderDisabled, id, msg)
	}
	return r.adapters[id], desc, nil
}

// ResolveByCapability returns the enabled providers supporting a capability,
// ordered by declared priority with ties broken on ID. The ordering is fixed
// at registration time, never load-based, so dispatch stays deterministic.
func (r *Registry) ResolveByCapability(c Capability) []ID {
	var ids []ID
	for id, desc := range r.descriptors {
		if desc.Capability == c && r.enabled.Has(id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.descriptors[ids[i]], r.descriptors[ids[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Descriptor returns the descriptor for a known identity.
func (r *Registry) Descriptor(id ID) (Descriptor, bool) {
	desc, ok := r.descriptors[id]
	return desc, ok
}

// Descriptors returns every registered descriptor, enabled or not, sorted by
// ID for stable iteration.
func (r *Registry) Descriptors() []Descriptor {
	descs := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	return descs
}

// Enabled returns the enabled set the registry was created with.
func (r *Registry) Enabled() EnabledSet {
	return r.enabled
}
