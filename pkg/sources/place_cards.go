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
// This file is the shared place-card extractor used by the map/directory
// adapters, the place-record sibling of the listing-card one.
package sources

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	cmn "marketgrab/pkg/common"
	"marketgrab/pkg/extract"
)

// placeConfig parameterizes the shared place-card extractor for one source.
type placeConfig struct {
	baseURL     string
	containers  []string
	nameSel     []string
	addressSel  []string
	categorySel []string
	ratingSel   []string
	reviewsSel  []string
	phoneSel    []string
	// coordsAttr names an attribute carrying "lat,lon" on the card or a
	// descendant, empty when the source exposes none at card level
	coordsAttr string
}

// placeStrategy wraps the shared place-card extractor as a named Strategy.
func placeStrategy(name string, cfg placeConfig) extract.Strategy {
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
				if rec := extractPlaceCard(card, cfg); rec != nil {
					out = append(out, rec)
				}
			})
			return out
		},
	}
}

// extractPlaceCard pulls one raw place record out of a card fragment.
func extractPlaceCard(card *goquery.Selection, cfg placeConfig) extract.RawRecord {
	name := extract.FirstText(card, cfg.nameSel...)
	if name == "" {
		link := card.Find("a[href]").First()
		name = strings.TrimSpace(link.AttrOr("title", ""))
		if name == "" {
			name = strings.TrimSpace(link.AttrOr("aria-label", ""))
		}
	}
	if name == "" {
		return nil
	}

	rec := extract.RawRecord{"name": name}

	if link := card.Find("a[href]").First(); link.Length() > 0 {
		if href := strings.TrimSpace(link.AttrOr("href", "")); href != "" {
			rec["url"] = cmn.AbsoluteURL(cfg.baseURL, href)
		}
	}

	if addr := extract.FirstText(card, cfg.addressSel...); addr != "" {
		rec["address"] = addr
	}
	if cat := extract.FirstText(card, cfg.categorySel...); cat != "" {
		rec["category"] = cat
	}
	if ratingText := extract.FirstText(card, cfg.ratingSel...); ratingText != "" {
		rec["rating"] = extract.RatingFromText(ratingText)
	}
	if reviewsText := extract.FirstText(card, cfg.reviewsSel...); reviewsText != "" {
		rec["reviews_count"] = extract.CountFromText(reviewsText)
	}
	if phone := extract.FirstText(card, cfg.phoneSel...); phone != "" {
		rec["phone"] = phone
	}

	if cfg.coordsAttr != "" {
		coords := strings.TrimSpace(card.AttrOr(cfg.coordsAttr, ""))
		if coords == "" {
			coords = extract.FirstAttr(card, cfg.coordsAttr, "["+cfg.coordsAttr+"]")
		}
		if lat, lon, ok := parseLatLon(coords); ok {
			rec["lat"] = lat
			rec["lon"] = lon
		}
	}

	if id := cardID(card); id != "" {
		rec["id"] = id
	}

	return rec
}

// parseLatLon parses a "lat,lon" attribute value. Both orders exist in the
// wild; values are taken as written, the normalizer does not swap them.
func parseLatLon(s string) (float64, float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
