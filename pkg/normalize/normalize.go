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

// Package normalize converts raw extracted records into canonical typed
// records: required-field checks, type coercion, defaulting. A violation
// rejects the single record, never the batch.
package normalize

import (
	"fmt"
	"time"

	"github.com/spaolacci/murmur3"

	"marketgrab/pkg/extract"
	"marketgrab/pkg/models"
)

// Rejection explains why a raw record was dropped.
type Rejection struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("record rejected: field %q %s", r.Field, r.Reason)
}

// Product converts a raw record from a listing source into a canonical
// Product. searchURL is the synthetic link substituted (and flagged) when
// the record carries no extractable URL of its own, so downstream consumers
// always receive a dereferenceable link.
func Product(raw extract.RawRecord, source, searchURL string) (*models.Product, error) {
	if !models.KnownSource(source) {
		return nil, &Rejection{Field: "source", Reason: "is not a known source tag"}
	}

	name := raw.String("name")
	if name == "" {
		return nil, &Rejection{Field: "name", Reason: "is missing or blank"}
	}

	recordURL := raw.String("url")
	synthetic := false
	if recordURL == "" {
		if searchURL == "" {
			return nil, &Rejection{Field: "url", Reason: "is missing and no fallback is available"}
		}
		recordURL = searchURL
		synthetic = true
	}

	p := &models.Product{
		ID:              raw.String("id"),
		Name:            name,
		Brand:           raw.String("brand"),
		Price:           clampMin(raw.Float("price"), 0),
		PriceGuessed:    raw.Bool(extract.PriceGuessedKey),
		Rating:          clamp(raw.Float("rating"), 0, 5),
		ReviewsCount:    clampMinInt(raw.Int("reviews_count"), 0),
		URL:             recordURL,
		SyntheticURL:    synthetic,
		ImageURL:        raw.String("image_url"),
		Description:     raw.String("description"),
		Characteristics: raw.StringMap("characteristics"),
		Source:          source,
		ParsedAt:        time.Now(),
	}
	if p.Characteristics == nil {
		p.Characteristics = map[string]string{}
	}
	if p.ID == "" {
		p.ID = extract.IDFromURL(p.URL)
	}
	if p.ID == "" && !p.SyntheticURL {
		p.ID = derivedID(p.URL)
	}
	return p, nil
}

// Place converts a raw record from a map/directory source into a canonical
// Place.
func Place(raw extract.RawRecord, source string) (*models.Place, error) {
	if !models.KnownSource(source) {
		return nil, &Rejection{Field: "source", Reason: "is not a known source tag"}
	}

	name := raw.String("name")
	if name == "" {
		return nil, &Rejection{Field: "name", Reason: "is missing or blank"}
	}

	pl := &models.Place{
		ID:           raw.String("id"),
		Name:         name,
		Address:      raw.String("address"),
		Phones:       mergeList(raw.StringSlice("phones"), raw.String("phone")),
		Emails:       mergeList(raw.StringSlice("emails"), raw.String("email")),
		Websites:     mergeList(raw.StringSlice("websites"), raw.String("website")),
		Category:     raw.String("category"),
		Rating:       clamp(raw.Float("rating"), 0, 5),
		ReviewsCount: clampMinInt(raw.Int("reviews_count"), 0),
		URL:          raw.String("url"),
		Description:  raw.String("description"),
		WorkingHours: raw.StringMap("working_hours"),
		Photos:       raw.StringSlice("photos"),
		Source:       source,
		ParsedAt:     time.Now(),
	}
	if pl.WorkingHours == nil {
		pl.WorkingHours = map[string]string{}
	}

	if lat, lon, ok := coordinates(raw); ok {
		pl.Coordinates = &models.Coordinates{Lat: lat, Lon: lon}
	}

	if pl.ID == "" && pl.URL != "" {
		pl.ID = extract.IDFromURL(pl.URL)
		if pl.ID == "" {
			pl.ID = derivedID(pl.URL)
		}
	}
	return pl, nil
}

// MergeProductDetails folds a deep-fetched detail record into a product.
// Only fields the search card could not provide are touched.
func MergeProductDetails(p *models.Product, raw extract.RawRecord) {
	if p == nil || raw == nil {
		return
	}
	if desc := raw.String("description"); desc != "" {
		p.Description = desc
	}
	for k, v := range raw.StringMap("characteristics") {
		p.Characteristics[k] = v
	}
}

// MergePlaceDetails folds a deep-fetched detail record into a place.
func MergePlaceDetails(pl *models.Place, raw extract.RawRecord) {
	if pl == nil || raw == nil {
		return
	}
	if desc := raw.String("description"); desc != "" {
		pl.Description = desc
	}
	for k, v := range raw.StringMap("working_hours") {
		pl.WorkingHours[k] = v
	}
	if photos := raw.StringSlice("photos"); len(photos) > 0 {
		pl.Photos = append(pl.Photos, photos...)
	}
	pl.Phones = mergeList(pl.Phones, raw.String("phone"))
	pl.Emails = append(pl.Emails, raw.StringSlice("emails")...)
	pl.Websites = append(pl.Websites, raw.StringSlice("websites")...)
}

// derivedID is the stable identifier used when a source exposes none:
// a murmur3 hash of the genuine record URL.
func derivedID(recordURL string) string {
	return fmt.Sprintf("%08x", murmur3.Sum32([]byte(recordURL)))
}

func coordinates(raw extract.RawRecord) (float64, float64, bool) {
	if m, ok := raw["coordinates"].(map[string]interface{}); ok {
		nested := extract.RawRecord(m)
		lat, lon := nested.Float("lat"), nested.Float("lon")
		if lat != 0 || lon != 0 {
			return lat, lon, true
		}
	}
	lat, lon := raw.Float("lat"), raw.Float("lon")
	if lat != 0 || lon != 0 {
		return lat, lon, true
	}
	return 0, 0, false
}

func mergeList(list []string, extra string) []string {
	if extra == "" {
		return list
	}
	for _, item := range list {
		if item == extra {
			return list
		}
	}
	return append(list, extra)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampMin(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}

func clampMinInt(v, min int) int {
	if v < min {
		return min
	}
	return v
}
