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
// This file is the shared HTML listing-card extractor: a container cascade
// picks the card set, per-field cascades pick the values. Everything is
// ordered and deterministic.
package sources

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	cmn "marketgrab/pkg/common"
	"marketgrab/pkg/extract"
)

// minNameLen drops cards whose extracted "name" is too short to be one.
const minNameLen = 3

// cardConfig parameterizes the shared card extractor for one source.
type cardConfig struct {
	baseURL string
	// containers is the ordered cascade of card-container selectors;
	// the first selector matching at least one node wins
	containers []string
	nameSel    []string
	priceSel   []string
	ratingSel  []string
	reviewsSel []string
	brandSel   []string
	// minPrice is the plausibility threshold for the largest-number
	// price fallback
	minPrice float64
}

// cardStrategy wraps the shared card extractor as a named Strategy.
func cardStrategy(name string, cfg cardConfig) extract.Strategy {
	return extract.Strategy{
		Name: name,
		Extract: func(doc *extract.Document, _ string) []extract.RawRecord {
			var cards *goquery.Selection
			for _, sel := range cfg.containers {
				if s := doc.HTML.Find(sel); s.Length() > 0 {
					cards = s
					break
				}
			}
			if cards == nil {
				return nil
			}

			var out []extract.RawRecord
			cards.Each(func(_ int, card *goquery.Selection) {
				if rec := extractCard(card, cfg); rec != nil {
					out = append(out, rec)
				}
			})
			return out
		},
	}
}

// extractCard pulls one raw record out of a card fragment. A card without
// a plausible name yields nil; any other missing field just stays absent
// from the record.
func extractCard(card *goquery.Selection, cfg cardConfig) extract.RawRecord {
	link := card.Find("a[href]").First()

	name := extract.FirstText(card, cfg.nameSel...)
	if name == "" {
		// fall back to the link's text, title or aria-label
		name = strings.TrimSpace(link.Text())
		if name == "" {
			name = strings.TrimSpace(link.AttrOr("title", ""))
		}
		if name == "" {
			name = strings.TrimSpace(link.AttrOr("aria-label", ""))
		}
	}
	if utf8.RuneCountInString(name) < minNameLen {
		return nil
	}

	rec := extract.RawRecord{"name": name}

	if href := strings.TrimSpace(link.AttrOr("href", "")); href != "" {
		rec["url"] = cmn.AbsoluteURL(cfg.baseURL, href)
	}

	priceText := extract.FirstText(card, cfg.priceSel...)
	if hasDigit(priceText) {
		rec["price"] = extract.CleanPrice(priceText)
	} else if n, ok := extract.LargestNumber(card.Text(), cfg.minPrice); ok {
		// last resort: flagged so tests and consumers can tell it apart
		rec["price"] = n
		rec[extract.PriceGuessedKey] = true
	}

	if ratingText := extract.FirstAttr(card, "data-rating", "[data-rating]"); ratingText != "" {
		rec["rating"] = extract.RatingFromText(ratingText)
	} else if ratingText := extract.FirstText(card, cfg.ratingSel...); ratingText != "" {
		rec["rating"] = extract.RatingFromText(ratingText)
	}

	if reviewsText := extract.FirstText(card, cfg.reviewsSel...); reviewsText != "" {
		rec["reviews_count"] = extract.CountFromText(reviewsText)
	}

	if len(cfg.brandSel) > 0 {
		if brand := extract.FirstText(card, cfg.brandSel...); brand != "" {
			rec["brand"] = brand
		}
	}

	if img := cardImage(card, cfg.baseURL); img != "" {
		rec["image_url"] = img
	}

	if id := cardID(card); id != "" {
		rec["id"] = id
	}

	return rec
}

// cardImage picks the card's image URL from src or the usual lazy-load
// attributes, absolutized.
func cardImage(card *goquery.Selection, baseURL string) string {
	img := card.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			return cmn.AbsoluteURL(baseURL, v)
		}
	}
	return ""
}

// cardID picks the record id from the card's data attributes.
func cardID(card *goquery.Selection) string {
	for _, attr := range []string{"data-product-id", "data-id"} {
		if v := strings.TrimSpace(card.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

func trimmedText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
