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

const (
	twoGISBaseURL     = "https://2gis.ru"
	twoGISDefaultCity = "moscow"
)

// TwoGIS is the 2GIS directory adapter. Search URLs are scoped to a city
// slug; the markup uses obfuscated generated class names, so the primary
// strategy carries the currently observed set and a semantic cascade backs
// it up for when the build rotates them.
type TwoGIS struct {
	city string
}

// NewTwoGIS creates the 2GIS adapter for the given city slug.
func NewTwoGIS(city string) *TwoGIS {
	if city == "" {
		city = twoGISDefaultCity
	}
	return &TwoGIS{city: city}
}

// Name implements Adapter.
func (t *TwoGIS) Name() string { return models.SourceTwoGIS }

// Kind implements Adapter.
func (t *TwoGIS) Kind() Kind { return KindPlace }

// BaseURL implements Adapter.
func (t *TwoGIS) BaseURL() string { return twoGISBaseURL }

// SearchURL implements Adapter.
func (t *TwoGIS) SearchURL(term string) string {
	return twoGISBaseURL + "/" + t.city + "/search/" + url.PathEscape(term)
}

// Channels implements Adapter.
func (t *TwoGIS) Channels() []Channel {
	return []Channel{
		{
			Name: "html",
			Build: func(term, location string) (fetcher.Request, error) {
				u := t.SearchURL(term)
				if location != "" {
					u = twoGISBaseURL + "/" + url.PathEscape(location) + "/search/" + url.PathEscape(term)
				}
				return fetcher.Request{URL: u}, nil
			},
			Strategies: []extract.Strategy{
				// generated class names as observed; rotate with site builds
				placeStrategy("2gis-result-cards", placeConfig{
					baseURL:     twoGISBaseURL,
					containers:  []string{"div._1kf6gff", "div._11gvyqv"},
					nameSel:     []string{"span._1al0wlf", "a._1rehek span", "h3"},
					addressSel:  []string{"span._1w9o2np", "div._14quei span"},
					categorySel: []string{"span._1idnaau", "div._oqoid"},
					ratingSel:   []string{"div._15t2ov5", "span._y10azs"},
					reviewsSel:  []string{"div._1yq1mhs", "span._jspzdm"},
					phoneSel:    []string{"a._1a0t4pb", "span._12l6h96"},
				}),
				placeStrategy("2gis-generic-cards", placeConfig{
					baseURL:     twoGISBaseURL,
					containers:  []string{"div[data-id]", "article"},
					nameSel:     []string{"h3", "h2", "a[href*='/firm/']"},
					addressSel:  []string{"address", "span.address"},
					categorySel: []string{"span.category"},
					ratingSel:   []string{"span.rating"},
					reviewsSel:  []string{"span.reviews"},
				}),
			},
		},
	}
}

// BuildDetailQuery implements DetailFetcher.
func (t *TwoGIS) BuildDetailQuery(recordURL string) (fetcher.Request, error) {
	return fetcher.Request{URL: recordURL}, nil
}

// DetailStrategies implements DetailFetcher.
func (t *TwoGIS) DetailStrategies() []extract.Strategy {
	return []extract.Strategy{
		{Name: "2gis-detail", Extract: func(doc *extract.Document, _ string) []extract.RawRecord {
			rec := extract.RawRecord{}

			hours := map[string]string{}
			doc.HTML.Find("div.schedule div.schedule-item, div._18zamfw div._8mqv20").Each(func(_ int, row *goquery.Selection) {
				day := extract.FirstText(row, "span.day", "div._1qkkvsq")
				span := extract.FirstText(row, "span.hours", "div._1oir4dv")
				if day != "" && span != "" {
					hours[day] = span
				}
			})
			if len(hours) > 0 {
				rec["working_hours"] = hours
			}

			if desc := doc.FirstCSS("div.description", "div.text", "div._49kxlr"); desc != "" {
				rec["description"] = desc
			}

			var photos []string
			doc.HTML.Find("div.photos img, div.gallery img").Each(func(_ int, img *goquery.Selection) {
				for _, attr := range []string{"src", "data-src"} {
					if v := img.AttrOr(attr, ""); v != "" {
						photos = append(photos, v)
						break
					}
				}
			})
			if len(photos) > 0 {
				rec["photos"] = photos
			}

			if len(rec) == 0 {
				return nil
			}
			return []extract.RawRecord{rec}
		}},
	}
}
