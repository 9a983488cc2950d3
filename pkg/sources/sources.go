// Copyright 2023 Paolo Fabio Zaino
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sources holds the site adapters: per-source query construction
// and ordered extraction strategies, stateless apart from source-specific
// constants. Two families exist: listing adapters (marketplaces) and place
// adapters (map/directory sites).
package sources

import (
	"errors"
	"sort"

	cfg "marketgrab/pkg/config"
	"marketgrab/pkg/extract"
	"marketgrab/pkg/fetcher"
)

// Kind tells the runner which canonical record family an adapter produces.
type Kind int

const (
	// KindListing adapters produce Product records
	KindListing Kind = iota
	// KindPlace adapters produce Place records
	KindPlace
)

// Channel is one retrieval path for a source: how to build the request and
// which strategies to run over the response. Channels are ordered; the
// runner falls over from one to the next.
type Channel struct {
	Name       string
	Build      func(term, location string) (fetcher.Request, error)
	Strategies []extract.Strategy
}

// Adapter is the per-source contract consumed by the Runner.
type Adapter interface {
	// Name returns the source tag, one of the models.Source* constants
	Name() string
	Kind() Kind
	// BaseURL is the site root, used for session re-initialization
	BaseURL() string
	// Channels returns the ordered retrieval channels, primary first
	Channels() []Channel
	// SearchURL returns the synthetic search link substituted for records
	// that carry no extractable URL of their own
	SearchURL(term string) string
}

// DetailFetcher is implemented by adapters that can deep-fetch a single
// record's detail page.
type DetailFetcher interface {
	BuildDetailQuery(recordURL string) (fetcher.Request, error)
	DetailStrategies() []extract.Strategy
}

// SessionWarmer is implemented by adapters whose site only answers with a
// warmed-up cookie session (the warm-up fetches the site root once).
type SessionWarmer interface {
	WarmupRequest() fetcher.Request
}

// ErrUnknownSource is returned for a source name nothing registers.
var ErrUnknownSource = errors.New("unknown source")

// ErrNoDetail is returned when an adapter has no detail channel.
var ErrNoDetail = errors.New("source has no detail page support")

// New returns the adapter for the named source, configured from c.
func New(name string, c *cfg.Config) (Adapter, error) {
	var sc cfg.SourceConfig
	if c != nil {
		sc = c.Sources[name]
	}
	switch name {
	case "wildberries":
		return NewWildberries(), nil
	case "ozon":
		return NewOzon(), nil
	case "uzum":
		return NewUzum(), nil
	case "2gis":
		return NewTwoGIS(sc.City), nil
	case "yandex_maps":
		return NewYandexMaps(), nil
	case "google_maps":
		return NewGoogleMaps(), nil
	default:
		return nil, ErrUnknownSource
	}
}

// Names lists every registered source, sorted.
func Names() []string {
	names := []string{"wildberries", "ozon", "uzum", "2gis", "yandex_maps", "google_maps"}
	sort.Strings(names)
	return names
}
