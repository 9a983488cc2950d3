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

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"marketgrab/pkg/models"
)

const (
	productsFile = "products.json"
	placesFile   = "places.json"
)

// JSONStore keeps records in two JSON array files under a data directory.
// Appends rewrite the whole file; fine at the scale this store is for.
type JSONStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONStore opens (and creates if needed) the data directory.
func NewJSONStore(dir string) (*JSONStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

// AppendProducts implements Store.
func (s *JSONStore) AppendProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []models.Product
	if err := s.load(productsFile, &existing); err != nil {
		return err
	}
	existing = append(existing, products...)
	return s.save(ctx, productsFile, existing)
}

// AppendPlaces implements Store.
func (s *JSONStore) AppendPlaces(ctx context.Context, places []models.Place) error {
	if len(places) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []models.Place
	if err := s.load(placesFile, &existing); err != nil {
		return err
	}
	existing = append(existing, places...)
	return s.save(ctx, placesFile, existing)
}

// QueryProducts implements Store.
func (s *JSONStore) QueryProducts(_ context.Context, filter map[string]string) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Product
	if err := s.load(productsFile, &all); err != nil {
		return nil, err
	}
	var out []models.Product
	for _, p := range all {
		if matchesFilter(p, filter) {
			out = append(out, p)
		}
	}
	return out, nil
}

// QueryPlaces implements Store.
func (s *JSONStore) QueryPlaces(_ context.Context, filter map[string]string) ([]models.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Place
	if err := s.load(placesFile, &all); err != nil {
		return nil, err
	}
	var out []models.Place
	for _, pl := range all {
		if matchesFilter(pl, filter) {
			out = append(out, pl)
		}
	}
	return out, nil
}

// Clear implements Store.
func (s *JSONStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{productsFile, placesFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }

// load reads a record file into dst; a missing file is an empty store.
func (s *JSONStore) load(name string, dst interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// save writes the full record set atomically via a temp file rename.
func (s *JSONStore) save(ctx context.Context, name string, records interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return os.Rename(tmp, filepath.Join(s.dir, name))
}

// matchesFilter reports whether every filter key matches the record's
// corresponding flat field, compared through its string form.
func matchesFilter(record interface{}, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	data, err := json.Marshal(record)
	if err != nil {
		return false
	}
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return false
	}
	for key, want := range filter {
		got, ok := flat[key]
		if !ok {
			return false
		}
		if stringify(got) != want {
			return false
		}
	}
	return true
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// drop the trailing .0 that json decoding gives whole numbers
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
