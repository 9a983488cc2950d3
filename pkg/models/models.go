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

// Package models defines the canonical record types produced by the
// extraction pipeline and persisted by the record store.
package models

import "time"

// Known source tags. A record whose source is not one of these never
// survives normalization.
const (
	SourceWildberries = "wildberries"
	SourceOzon        = "ozon"
	SourceUzum        = "uzum"
	SourceTwoGIS      = "2gis"
	SourceYandexMaps  = "yandex_maps"
	SourceGoogleMaps  = "google_maps"
)

// KnownSource reports whether tag is one of the supported source tags.
func KnownSource(tag string) bool {
	switch tag {
	case SourceWildberries, SourceOzon, SourceUzum,
		SourceTwoGIS, SourceYandexMaps, SourceGoogleMaps:
		return true
	}
	return false
}

// Product is a marketplace listing item. Immutable once constructed.
type Product struct {
	ID    string  `json:"id,omitempty" db:"id"`
	Name  string  `json:"name" db:"name"`
	Brand string  `json:"brand,omitempty" db:"brand"`
	Price float64 `json:"price" db:"price"`
	// PriceGuessed marks a price recovered by the largest-number fallback
	// rather than read from a price-labelled element.
	PriceGuessed bool    `json:"price_guessed,omitempty" db:"price_guessed"`
	Rating       float64 `json:"rating" db:"rating"`
	ReviewsCount int     `json:"reviews_count" db:"reviews_count"`
	URL          string  `json:"url" db:"url"`
	// SyntheticURL marks a substituted search-query link, as opposed to a
	// link extracted from the document.
	SyntheticURL    bool              `json:"url_synthetic,omitempty" db:"url_synthetic"`
	ImageURL        string            `json:"image_url,omitempty" db:"image_url"`
	Description     string            `json:"description,omitempty" db:"description"`
	Characteristics map[string]string `json:"characteristics,omitempty" db:"-"`
	Source          string            `json:"source" db:"source"`
	ParsedAt        time.Time         `json:"parsed_at" db:"parsed_at"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is a business/organization listing from a map or directory source.
// Immutable once constructed.
type Place struct {
	ID           string       `json:"id,omitempty" db:"id"`
	Name         string       `json:"name" db:"name"`
	Address      string       `json:"address,omitempty" db:"address"`
	Phones       []string     `json:"phones,omitempty" db:"-"`
	Emails       []string     `json:"emails,omitempty" db:"-"`
	Websites     []string     `json:"websites,omitempty" db:"-"`
	Category     string       `json:"category,omitempty" db:"category"`
	Rating       float64      `json:"rating" db:"rating"`
	ReviewsCount int          `json:"reviews_count" db:"reviews_count"`
	Coordinates  *Coordinates `json:"coordinates,omitempty" db:"-"`
	URL          string       `json:"url,omitempty" db:"url"`
	SyntheticURL bool         `json:"url_synthetic,omitempty" db:"url_synthetic"`
	Description  string       `json:"description,omitempty" db:"description"`
	WorkingHours map[string]string `json:"working_hours,omitempty" db:"-"`
	Photos       []string          `json:"photos,omitempty" db:"-"`
	Source       string            `json:"source" db:"source"`
	ParsedAt     time.Time         `json:"parsed_at" db:"parsed_at"`
}

// Batch is one search run's worth of validated records. Exactly one of the
// two slices is populated, depending on the adapter family.
type Batch struct {
	Products []Product
	Places   []Place
}

// Len returns the total number of records in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Products) + len(b.Places)
}
