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

const yandexMapsBaseURL = "https://yandex.ru"

// YandexMaps is the Yandex Maps adapter. The search page embeds result
// snippets with stable BEM class names and per-card coordinates in a data
// attribute.
type YandexMaps struct{}

// NewYandexMaps creates the Yandex Maps adapter.
func NewYandexMaps() *YandexMaps {
	return &YandexMaps{}
}

// Name implements Adapter.
func (y *YandexMaps) Name() string { return models.SourceYandexMaps }

// Kind implements Adapter.
func (y *YandexMaps) Kind() Kind { return KindPlace }

// BaseURL implements Adapter.
func (y *YandexMaps) BaseURL() string { return yandexMapsBaseURL }

// SearchURL implements Adapter.
func (y *YandexMaps) SearchURL(term string) string {
	return yandexMapsBaseURL + "/maps/?text=" + url.QueryEscape(term)
}

// Channels implements Adapter.
func (y *YandexMaps) Channels() []Channel {
	headers := map[string]string{
		"Sec-Fetch-Dest": "document",
		"Sec-Fetch-Mode": "navigate",
		"Sec-Fetch-Site": "none",
	}
	return []Channel{
		{
			Name: "html",
			Build: func(term, location string) (fetcher.Request, error) {
				if location != "" {
					term = term + " " + location
				}
				return fetcher.Request{URL: y.SearchURL(term), Headers: headers}, nil
			},
			Strategies: []extract.Strategy{
				placeStrategy("ymaps-search-snippets", placeConfig{
					baseURL:     yandexMapsBaseURL,
					containers:  []string{"div.search-snippet-view", "li.search-snippet-view"},
					nameSel:     []string{"div.search-business-snippet-view__title", "a.search-business-snippet-view__title"},
					addressSel:  []string{"div.search-business-snippet-view__address"},
					categorySel: []string{"div.search-business-snippet-view__categories", "span.search-business-snippet-view__category"},
					ratingSel:   []string{"span.business-rating-badge-view__rating-text"},
					reviewsSel:  []string{"div.business-rating-amount-view"},
					phoneSel:    []string{"div.search-business-snippet-view__phone"},
					coordsAttr:  "data-coordinates",
				}),
				placeStrategy("ymaps-generic-snippets", placeConfig{
					baseURL:    yandexMapsBaseURL,
					containers: []string{"li[data-coordinates]", "div[data-coordinates]"},
					nameSel:    []string{"h3", "h2", "a[href*='/maps/org/']"},
					addressSel: []string{"address"},
					coordsAttr: "data-coordinates",
				}),
			},
		},
	}
}

// BuildDetailQuery implements DetailFetcher.
func (y *YandexMaps) BuildDetailQuery(recordURL string) (fetcher.Request, error) {
	return fetcher.Request{URL: recordURL}, nil
}

// DetailStrategies implements DetailFetcher.
func (y *YandexMaps) DetailStrategies() []extract.Strategy {
	return []extract.Strategy{
		{Name: "ymaps-detail", Extract: func(doc *extract.Document, _ string) []extract.RawRecord {
			rec := extract.RawRecord{}

			hours := map[string]string{}
			doc.HTML.Find("div.business-working-intervals-view__item").Each(func(_ int, row *goquery.Selection) {
				day := extract.FirstText(row, "div.business-working-intervals-view__day")
				span := extract.FirstText(row, "div.business-working-intervals-view__interval")
				if day != "" && span != "" {
					hours[day] = span
				}
			})
			if len(hours) > 0 {
				rec["working_hours"] = hours
			}

			if phone := doc.FirstCSS("div.orgpage-phones-view__phone-number", "div.card-phones-view__number"); phone != "" {
				rec["phone"] = phone
			}
			if site := doc.FirstCSS("span.business-urls-view__text", "a.business-urls-view__link"); site != "" {
				rec["websites"] = []string{site}
			}
			if desc := doc.FirstCSS("div.business-features-view__valued", "div.card-about-view__description"); desc != "" {
				rec["description"] = desc
			}

			if len(rec) == 0 {
				return nil
			}
			return []extract.RawRecord{rec}
		}},
	}
}
