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

// Package storage is the append-only record store. Two backends exist: a
// flat-file JSON store for local runs and a PostgreSQL store for shared
// deployments. Records are never updated in place, only appended.
package storage

import (
	"context"
	"fmt"

	cfg "marketgrab/pkg/config"
	"marketgrab/pkg/models"
)

// Store is the record store contract. Query filters are exact-match
// conjunctions over the record's flat fields; an empty filter matches
// everything.
type Store interface {
	AppendProducts(ctx context.Context, products []models.Product) error
	AppendPlaces(ctx context.Context, places []models.Place) error
	QueryProducts(ctx context.Context, filter map[string]string) ([]models.Product, error)
	QueryPlaces(ctx context.Context, filter map[string]string) ([]models.Place, error)
	// Clear wipes every stored record
	Clear(ctx context.Context) error
	Close() error
}

// New opens the store named by the configuration.
func New(c cfg.StorageConfig) (Store, error) {
	switch c.Type {
	case "", "json":
		return NewJSONStore(c.DataDir)
	case "postgres":
		return NewPostgresStore(c)
	default:
		return nil, fmt.Errorf("unknown storage type %q", c.Type)
	}
}
