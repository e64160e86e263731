// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package config

import "os"

// Source is a read-only key/value configuration source. The environment is
// the production source; tests inject a MapSource. Recognized keys are the
// union of every descriptor's required credential keys plus the settings
// keys in this package.
type Source interface {
	Get(key string) string
}

// EnvSource reads from process environment variables.
type EnvSource struct{}

func (EnvSource) Get(key string) string {
	return os.Getenv(key)
}

// MapSource is a fixed in-memory source for tests.
type MapSource map[string]string

func (m MapSource) Get(key string) string {
	return m[key]
}
