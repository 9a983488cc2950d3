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

// Package sources holds the site adapters.
package sources

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"marketgrab/pkg/extract"
	"marketgrab/pkg/fetcher"
	"marketgrab/pkg/models"
)

const googleMapsBaseURL = "https://www.google.com"

// GoogleMaps is the Google Maps adapter. Without a browser only the basic
// server-rendered result list is reachable, so expectations are modest:
// names, addresses and ratings from section-result cards.
type GoogleMaps struct{}

// NewGoogleMaps creates the Google Maps adapter.
func NewGoogleMaps() *GoogleMaps {
	return &GoogleMaps{}
}

// Name implements Adapter.
func (g *GoogleMaps) Name() string { return models.SourceGoogleMaps }

// Kind implements Adapter.
func (g *GoogleMaps) Kind() Kind { return KindPlace }

// BaseURL implements Adapter.
func (g *GoogleMaps) BaseURL() string { return googleMapsBaseURL }

// SearchURL implements Adapter.
func (g *GoogleMaps) SearchURL(term string) string {
	return googleMapsBaseURL + "/maps/search/" + url.PathEscape(term)
}

// Channels implements Adapter.
func (g *GoogleMaps) Channels() []Channel {
	return []Channel{
		{
			Name: "html",
			Build: func(term, location string) (fetcher.Request, error) {
				if location != "" {
					term = term + " " + location
				}
				return fetcher.Request{
					URL:     g.SearchURL(term),
					Headers: map[string]string{"Accept-Language": "en-US,en;q=0.9"},
				}, nil
			},
			Strategies: []extract.Strategy{
				placeStrategy("gmaps-section-results", placeConfig{
					baseURL:     googleMapsBaseURL,
					containers:  []string{"div.section-result"},
					nameSel:     []string{"h3.section-result-title", "div.section-result-title span"},
					addressSel:  []string{"span.section-result-location"},
					categorySel: []string{"span.section-result-details"},
					ratingSel:   []string{"span.cards-rating-score"},
					reviewsSel:  []string{"span.section-result-num-ratings"},
					phoneSel:    []string{"span.section-result-phone-number"},
				}),
				placeStrategy("gmaps-article-results", placeConfig{
					baseURL:    googleMapsBaseURL,
					containers: []string{"div[role='article']"},
					nameSel:    []string{"div.fontHeadlineSmall", "a[aria-label]"},
					addressSel: []string{"div.fontBodyMedium span"},
					ratingSel:  []string{"span[role='img']"},
				}),
			},
		},
	}
}

// BuildDetailQuery implements DetailFetcher.
func (g *GoogleMaps) BuildDetailQuery(recordURL string) (fetcher.Request, error) {
	return fetcher.Request{URL: recordURL}, nil
}

// DetailStrategies implements DetailFetcher.
func (g *GoogleMaps) DetailStrategies() []extract.Strategy {
	return []extract.Strategy{
		{Name: "gmaps-detail", Extract: func(doc *extract.Document, _ string) []extract.RawRecord {
			rec := extract.RawRecord{}

			hours := map[string]string{}
			doc.HTML.Find("div.section-open-hours-container table tr").Each(func(_ int, row *goquery.Selection) {
				cells := row.Find("td, th")
				if cells.Length() >= 2 {
					day := trimmedText(cells.First())
					span := trimmedText(cells.Eq(1))
					if day != "" && span != "" {
						hours[day] = span
					}
				}
			})
			if len(hours) > 0 {
				rec["working_hours"] = hours
			}

			if phone := doc.FirstCSS("button[data-item-id^='phone'] div.fontBodyMedium", "span.section-info-text"); phone != "" {
				rec["phone"] = phone
			}
			if site := doc.FirstCSS("a[data-item-id='authority'] div.fontBodyMedium"); site != "" {
				rec["websites"] = []string{site}
			}
			if desc := doc.FirstCSS("div.section-editorial-quote", "div.PYvSYb"); desc != "" {
				rec["description"] = desc
			}

			if len(rec) == 0 {
				return nil
			}
			return []extract.RawRecord{rec}
		}},
	}
}
