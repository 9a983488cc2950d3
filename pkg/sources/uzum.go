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
	uzumBaseURL   = "https://uzum.uz"
	uzumSearchURL = uzumBaseURL + "/ru/search"
)

// Uzum is the Uzum Market adapter. The site serves nothing useful without
// warmed-up cookies, so the adapter asks for a session warm-up against the
// root first. Extraction is a cascade of increasingly generic HTML
// strategies; Uzum's markup churns too often for one set of selectors.
type Uzum struct{}

// NewUzum creates the Uzum adapter.
func NewUzum() *Uzum {
	return &Uzum{}
}

// Name implements Adapter.
func (u *Uzum) Name() string { return models.SourceUzum }

// Kind implements Adapter.
func (u *Uzum) Kind() Kind { return KindListing }

// BaseURL implements Adapter.
func (u *Uzum) BaseURL() string { return uzumBaseURL }

// SearchURL implements Adapter.
func (u *Uzum) SearchURL(term string) string {
	return uzumSearchURL + "?query=" + url.QueryEscape(term)
}

// WarmupRequest implements SessionWarmer.
func (u *Uzum) WarmupRequest() fetcher.Request {
	return fetcher.Request{
		URL: uzumBaseURL,
		Headers: map[string]string{
			"Referer": uzumBaseURL + "/",
			"Origin":  uzumBaseURL,
		},
	}
}

// Channels implements Adapter.
func (u *Uzum) Channels() []Channel {
	uzumHeaders := map[string]string{
		"Accept-Language": "ru-RU,ru;q=0.9,uz;q=0.8",
		"Referer":         uzumBaseURL + "/",
		"Origin":          uzumBaseURL,
	}
	return []Channel{
		{
			Name: "html",
			Build: func(term, _ string) (fetcher.Request, error) {
				return fetcher.Request{URL: u.SearchURL(term), Headers: uzumHeaders}, nil
			},
			Strategies: []extract.Strategy{
				cardStrategy("uzum-product-cards", cardConfig{
					baseURL:    uzumBaseURL,
					containers: []string{"div.product-card", "div[data-product-id]", "article.product"},
					nameSel:    []string{"h3", "h2", "h4", "a.product-title", "span.product-name", "div.title"},
					priceSel:   []string{"span.price", "div.price", "ins.price", "strong.price", "b.price", "span[data-price]"},
					ratingSel:  []string{"span.rating", "div.rating", "span[data-rating]"},
					reviewsSel: []string{"span.reviews", "div.reviews-count"},
					brandSel:   []string{"span.brand", "div.brand", "a.brand-link"},
					minPrice:   1000, // prices are in so'm, anything lower is noise
				}),
				cardStrategy("uzum-data-id-cards", cardConfig{
					baseURL:    uzumBaseURL,
					containers: []string{"div[data-id]", "article"},
					nameSel:    []string{"h3", "h2", "a[href]"},
					priceSel:   []string{"span.price", "div.price"},
					minPrice:   1000,
				}),
				{Name: "uzum-generic-cards", Extract: extractUzumGeneric},
			},
		},
	}
}

// extractUzumGeneric is the last-ditch strategy: any div holding both a
// link and an image might be a product card. Capped so a pathological page
// cannot flood the pipeline.
func extractUzumGeneric(doc *extract.Document, _ string) []extract.RawRecord {
	const maxCandidates = 20

	cfg := cardConfig{
		baseURL:  uzumBaseURL,
		nameSel:  []string{"h3", "h2", "span"},
		priceSel: []string{"span.price"},
		minPrice: 1000,
	}

	var out []extract.RawRecord
	doc.HTML.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if div.Find("a[href]").Length() == 0 || div.Find("img").Length() == 0 {
			return true
		}
		if rec := extractCard(div, cfg); rec != nil {
			out = append(out, rec)
		}
		return len(out) < maxCandidates
	})
	return out
}

// BuildDetailQuery implements DetailFetcher.
func (u *Uzum) BuildDetailQuery(recordURL string) (fetcher.Request, error) {
	return fetcher.Request{URL: recordURL}, nil
}

// DetailStrategies implements DetailFetcher.
func (u *Uzum) DetailStrategies() []extract.Strategy {
	return []extract.Strategy{
		{Name: "uzum-detail", Extract: func(doc *extract.Document, _ string) []extract.RawRecord {
			rec := extract.RawRecord{}
			if desc := doc.FirstCSS("div.description", "div.product-description", "div[data-description]"); desc != "" {
				rec["description"] = desc
			}

			chars := map[string]string{}
			doc.HTML.Find("div.characteristics tr, table.specifications tr").Each(func(_ int, row *goquery.Selection) {
				cells := row.Find("td")
				if cells.Length() >= 2 {
					key := trimmedText(cells.First())
					value := trimmedText(cells.Eq(1))
					if key != "" && value != "" {
						chars[key] = value
					}
				}
			})
			doc.HTML.Find("div.spec-row").Each(func(_ int, row *goquery.Selection) {
				key := extract.FirstText(row, "span.spec-key", "div.key")
				value := extract.FirstText(row, "span.spec-value", "div.value")
				if key != "" && value != "" {
					chars[key] = value
				}
			})
			if len(chars) > 0 {
				rec["characteristics"] = chars
			}

			if len(rec) == 0 {
				return nil
			}
			return []extract.RawRecord{rec}
		}},
	}
}
