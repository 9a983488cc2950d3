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

	"github.com/PuerkitoBio/goquery"

	"marketgrab/pkg/extract"
	"marketgrab/pkg/fetcher"
	"marketgrab/pkg/models"
)

const (
	wbBaseURL   = "https://www.wildberries.ru"
	wbSearchAPI = "https://search.wb.ru/exactmatch/ru/common/v4/search"
)

// Wildberries is the Wildberries marketplace adapter. Primary channel is
// the typed search API, fallback is the rendered search page.
type Wildberries struct{}

// NewWildberries creates the Wildberries adapter.
func NewWildberries() *Wildberries {
	return &Wildberries{}
}

// Name implements Adapter.
func (w *Wildberries) Name() string { return models.SourceWildberries }

// Kind implements Adapter.
func (w *Wildberries) Kind() Kind { return KindListing }

// BaseURL implements Adapter.
func (w *Wildberries) BaseURL() string { return wbBaseURL }

// SearchURL implements Adapter.
func (w *Wildberries) SearchURL(term string) string {
	return wbBaseURL + "/catalog/0/search.aspx?search=" + url.QueryEscape(term)
}

// Channels implements Adapter.
func (w *Wildberries) Channels() []Channel {
	return []Channel{
		{
			Name:  "api",
			Build: w.buildAPIQuery,
			Strategies: []extract.Strategy{
				{Name: "wb-json-catalog", Extract: extractWBCatalog},
			},
		},
		{
			Name:  "html",
			Build: w.buildHTMLQuery,
			Strategies: []extract.Strategy{
				cardStrategy("wb-html-cards", cardConfig{
					baseURL:    wbBaseURL,
					containers: []string{"article.product-card", "div.product-card", "div[data-nm-id]"},
					nameSel:    []string{".product-card__name", ".goods-name", "h3", "h2"},
					priceSel:   []string{"ins.price__lower-price", ".price__lower-price", "span.price"},
					ratingSel:  []string{".address-rate-mini", ".product-card__rating"},
					reviewsSel: []string{".product-card__count", ".count-review"},
					brandSel:   []string{".product-card__brand", ".brand-name"},
					minPrice:   100,
				}),
			},
		},
	}
}

// buildAPIQuery builds the typed search API request.
func (w *Wildberries) buildAPIQuery(term, _ string) (fetcher.Request, error) {
	params := url.Values{}
	params.Set("query", term)
	params.Set("resultset", "catalog")
	params.Set("limit", "100")
	params.Set("sort", "popular")
	params.Set("page", "1")
	params.Set("appType", "1")
	params.Set("curr", "rub")
	params.Set("dest", "-1257786")
	params.Set("lang", "ru")
	params.Set("locale", "ru")

	return fetcher.Request{
		URL:     wbSearchAPI + "?" + params.Encode(),
		Headers: map[string]string{"Accept": "application/json"},
	}, nil
}

// buildHTMLQuery builds the rendered search page request.
func (w *Wildberries) buildHTMLQuery(term, _ string) (fetcher.Request, error) {
	return fetcher.Request{URL: w.SearchURL(term)}, nil
}

// wbCatalogProduct is the slice of the search API response we consume.
type wbCatalogProduct struct {
	ID           int64   `json:"id"`
	Root         int64   `json:"root"`
	Name         string  `json:"name"`
	Brand        string  `json:"brand"`
	SalePriceU   int64   `json:"salePriceU"`
	PriceU       int64   `json:"priceU"`
	Rating       float64 `json:"rating"`
	ReviewRating float64 `json:"reviewRating"`
	Feedbacks    int     `json:"feedbacks"`
}

// extractWBCatalog parses the typed JSON catalog response. Malformed JSON
// is a miss, not a failure.
func extractWBCatalog(doc *extract.Document, _ string) []extract.RawRecord {
	var payload struct {
		Data struct {
			Products []wbCatalogProduct `json:"products"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(doc.Text), &payload); err != nil {
		return nil
	}

	var out []extract.RawRecord
	for _, item := range payload.Data.Products {
		if item.ID == 0 {
			continue
		}
		// prices come in kopecks
		price := float64(item.SalePriceU) / 100
		if price == 0 {
			price = float64(item.PriceU) / 100
		}
		rating := item.Rating
		if rating == 0 {
			rating = item.ReviewRating
		}
		out = append(out, extract.RawRecord{
			"id":            fmt.Sprintf("%d", item.ID),
			"name":          item.Name,
			"brand":         item.Brand,
			"price":         price,
			"rating":        rating,
			"reviews_count": item.Feedbacks,
			"url":           fmt.Sprintf("%s/catalog/%d/detail.aspx", wbBaseURL, item.ID),
			"image_url":     wbImageURL(item.ID, item.Root),
		})
	}
	return out
}

// wbImageURL derives the CDN image location from the product id.
func wbImageURL(productID, root int64) string {
	if root == 0 {
		root = productID / 100000
	}
	return fmt.Sprintf("https://basket-01.wbbasket.ru/vol%d/part%d/%d/images/big/1.webp",
		root, productID/1000, productID)
}

// detailStrategy extracts description and characteristics from a product
// detail page.
func (w *Wildberries) DetailStrategies() []extract.Strategy {
	return []extract.Strategy{
		{Name: "wb-detail", Extract: func(doc *extract.Document, _ string) []extract.RawRecord {
			rec := extract.RawRecord{}
			if desc := doc.FirstCSS("div.product-page__description", "section.product-details__description"); desc != "" {
				rec["description"] = desc
			}

			chars := map[string]string{}
			doc.HTML.Find("div.product-page__characteristics tr, table.product-params__table tr").Each(func(_ int, row *goquery.Selection) {
				cells := row.Find("td, th")
				if cells.Length() == 2 {
					key := trimmedText(cells.First())
					value := trimmedText(cells.Last())
					if key != "" && value != "" {
						chars[key] = value
					}
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

// BuildDetailQuery implements DetailFetcher.
func (w *Wildberries) BuildDetailQuery(recordURL string) (fetcher.Request, error) {
	return fetcher.Request{URL: recordURL}, nil
}
