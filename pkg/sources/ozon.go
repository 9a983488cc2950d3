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
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	cmn "marketgrab/pkg/common"
	"marketgrab/pkg/extract"
	"marketgrab/pkg/fetcher"
	"marketgrab/pkg/models"
)

const (
	ozonBaseURL = "https://www.ozon.ru"
	ozonAPIURL  = "https://www.ozon.ru/api/entrypoint-api.bx/page/json/v2"
)

// Ozon is the Ozon marketplace adapter. Primary channel is the rendered
// search page, fallback is the composer API that backs it.
type Ozon struct{}

// NewOzon creates the Ozon adapter.
func NewOzon() *Ozon {
	return &Ozon{}
}

// Name implements Adapter.
func (o *Ozon) Name() string { return models.SourceOzon }

// Kind implements Adapter.
func (o *Ozon) Kind() Kind { return KindListing }

// BaseURL implements Adapter.
func (o *Ozon) BaseURL() string { return ozonBaseURL }

// SearchURL implements Adapter.
func (o *Ozon) SearchURL(term string) string {
	return ozonBaseURL + "/search/?text=" + url.QueryEscape(term)
}

// Channels implements Adapter.
func (o *Ozon) Channels() []Channel {
	return []Channel{
		{
			Name: "html",
			Build: func(term, _ string) (fetcher.Request, error) {
				return fetcher.Request{URL: o.SearchURL(term)}, nil
			},
			Strategies: []extract.Strategy{
				cardStrategy("ozon-html-tiles", cardConfig{
					baseURL:    ozonBaseURL,
					containers: []string{"div[data-widget='searchResultsV2'] div.tile-root", "div.tile-root"},
					nameSel:    []string{"span.tsBodyL", "span.tsBody500Medium", "a.tile-hover-target"},
					priceSel:   []string{"span.tsHeadline", "span.tsHeadline500Medium"},
					ratingSel:  []string{"div.rating", "span.rating"},
					reviewsSel: []string{"span.reviews", "div.reviews-count"},
					minPrice:   100,
				}),
			},
		},
		{
			Name: "api",
			Build: func(term, _ string) (fetcher.Request, error) {
				return fetcher.Request{
					URL:     ozonAPIURL + "?url=" + url.QueryEscape("/search/?text="+term),
					Headers: map[string]string{"Accept": "application/json"},
				}, nil
			},
			Strategies: []extract.Strategy{
				{Name: "ozon-json-widgets", Extract: extractOzonWidgets},
			},
		},
	}
}

// ozonSearchItem is the slice of a searchResultsV2 widget item we consume.
type ozonSearchItem struct {
	SKU    int64 `json:"sku"`
	Action struct {
		Link string `json:"link"`
	} `json:"action"`
	MainState []struct {
		Atom struct {
			TextAtom struct {
				Text string `json:"text"`
			} `json:"textAtom"`
			PriceV2 struct {
				Price []struct {
					Text string `json:"text"`
				} `json:"price"`
			} `json:"priceV2"`
		} `json:"atom"`
	} `json:"mainState"`
}

// extractOzonWidgets digs product items out of the composer API response:
// widgetStates maps widget keys to JSON-encoded strings, the one whose key
// contains "searchResultsV2" holds the result items.
func extractOzonWidgets(doc *extract.Document, _ string) []extract.RawRecord {
	var page struct {
		WidgetStates map[string]string `json:"widgetStates"`
	}
	if err := json.Unmarshal([]byte(doc.Text), &page); err != nil {
		return nil
	}

	var out []extract.RawRecord
	for key, state := range page.WidgetStates {
		if !strings.Contains(key, "searchResultsV2") {
			continue
		}
		var widget struct {
			Items []ozonSearchItem `json:"items"`
		}
		if err := json.Unmarshal([]byte(state), &widget); err != nil {
			continue
		}
		for _, item := range widget.Items {
			rec := extract.RawRecord{}
			if item.SKU != 0 {
				rec["id"] = fmt.Sprintf("%d", item.SKU)
			}
			if item.Action.Link != "" {
				rec["url"] = cmn.AbsoluteURL(ozonBaseURL, item.Action.Link)
			}
			for _, st := range item.MainState {
				if rec.String("name") == "" && st.Atom.TextAtom.Text != "" {
					rec["name"] = st.Atom.TextAtom.Text
				}
				if rec.Float("price") == 0 && len(st.Atom.PriceV2.Price) > 0 {
					rec["price"] = extract.CleanPrice(st.Atom.PriceV2.Price[0].Text)
				}
			}
			if rec.String("name") == "" {
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}

// BuildDetailQuery implements DetailFetcher.
func (o *Ozon) BuildDetailQuery(recordURL string) (fetcher.Request, error) {
	return fetcher.Request{URL: recordURL}, nil
}

// DetailStrategies implements DetailFetcher.
func (o *Ozon) DetailStrategies() []extract.Strategy {
	return []extract.Strategy{
		{Name: "ozon-detail", Extract: func(doc *extract.Document, _ string) []extract.RawRecord {
			rec := extract.RawRecord{}
			if desc := doc.FirstCSS("div[data-widget='webDescription']"); desc != "" {
				rec["description"] = desc
			}

			chars := map[string]string{}
			doc.HTML.Find("dl.characteristics").Each(func(_ int, dl *goquery.Selection) {
				keys := dl.Find("dt")
				values := dl.Find("dd")
				keys.Each(func(i int, dt *goquery.Selection) {
					if i < values.Length() {
						key := trimmedText(dt)
						value := trimmedText(values.Eq(i))
						if key != "" && value != "" {
							chars[key] = value
						}
					}
				})
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
