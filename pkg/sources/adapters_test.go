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

package sources

import (
	"strings"
	"testing"

	cfg "marketgrab/pkg/config"
	"marketgrab/pkg/extract"
)

func TestRegistryKnowsEverySource(t *testing.T) {
	c := &cfg.Config{}
	for _, name := range Names() {
		ad, err := New(name, c)
		if err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
			continue
		}
		if ad.Name() != name {
			t.Errorf("adapter for %q reports name %q", name, ad.Name())
		}
		if len(ad.Channels()) == 0 {
			t.Errorf("adapter %q has no channels", name)
		}
		if ad.BaseURL() == "" {
			t.Errorf("adapter %q has no base URL", name)
		}
	}

	if _, err := New("aliexpress", c); err != ErrUnknownSource {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestWildberriesAPIQueryEncoding(t *testing.T) {
	w := NewWildberries()
	req, err := w.Channels()[0].Build("красная кепка", "")
	if err != nil {
		t.Fatal(err)
	}

	const encoded = "%D0%BA%D1%80%D0%B0%D1%81%D0%BD%D0%B0%D1%8F+%D0%BA%D0%B5%D0%BF%D0%BA%D0%B0"
	if n := strings.Count(req.URL, encoded); n != 1 {
		t.Errorf("expected the percent-encoded term exactly once, found %d in %q", n, req.URL)
	}
	if !strings.Contains(req.URL, "resultset=catalog") {
		t.Errorf("missing resultset parameter in %q", req.URL)
	}
	if req.Headers["Accept"] != "application/json" {
		t.Error("API channel must ask for JSON")
	}
}

func TestWildberriesCatalogExtraction(t *testing.T) {
	payload := `{"data":{"products":[
		{"id":1234567,"root":12,"name":"Кепка красная","brand":"NoName",
		 "salePriceU":129900,"priceU":199900,"reviewRating":4.6,"feedbacks":321},
		{"id":7654321,"name":"Кепка синяя","priceU":99900,"rating":4.1,"feedbacks":10},
		{"id":0,"name":"broken"}
	]}}`
	doc, err := extract.ParseDocument(payload)
	if err != nil {
		t.Fatal(err)
	}

	records := extractWBCatalog(doc, "")
	if len(records) != 2 {
		t.Fatalf("expected 2 records (zero-id dropped), got %d", len(records))
	}

	first := records[0]
	if first.Float("price") != 1299 {
		t.Errorf("salePriceU must win and convert from kopecks: got %v", first.Float("price"))
	}
	if first.Float("rating") != 4.6 {
		t.Errorf("reviewRating fallback failed: got %v", first.Float("rating"))
	}
	if !strings.Contains(first.String("url"), "/catalog/1234567/detail.aspx") {
		t.Errorf("bad detail URL: %q", first.String("url"))
	}
	if !strings.Contains(first.String("image_url"), "wbbasket.ru") {
		t.Errorf("bad image URL: %q", first.String("image_url"))
	}

	second := records[1]
	if second.Float("price") != 999 {
		t.Errorf("priceU fallback failed: got %v", second.Float("price"))
	}
}

func TestWildberriesCatalogMalformedJSONIsAMiss(t *testing.T) {
	doc, err := extract.ParseDocument("<html><body>not json</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	if records := extractWBCatalog(doc, ""); records != nil {
		t.Errorf("malformed JSON must be a miss, got %v", records)
	}
}

func TestOzonWidgetExtraction(t *testing.T) {
	payload := `{"widgetStates":{
		"searchResultsV2-252189-default-1":"{\"items\":[{\"sku\":555,\"action\":{\"link\":\"/product/555/\"},\"mainState\":[{\"atom\":{\"textAtom\":{\"text\":\"Ozon Thing\"}}},{\"atom\":{\"priceV2\":{\"price\":[{\"text\":\"1 299 ₽\"}]}}}]}]}",
		"otherWidget-1":"{}"
	}}`
	doc, err := extract.ParseDocument(payload)
	if err != nil {
		t.Fatal(err)
	}

	records := extractOzonWidgets(doc, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.String("name") != "Ozon Thing" {
		t.Errorf("name = %q", rec.String("name"))
	}
	if rec.Float("price") != 1299 {
		t.Errorf("price = %v, want 1299", rec.Float("price"))
	}
	if rec.String("id") != "555" {
		t.Errorf("id = %q, want 555", rec.String("id"))
	}
	if !strings.HasPrefix(rec.String("url"), "https://www.ozon.ru/product/555/") {
		t.Errorf("url = %q", rec.String("url"))
	}
}

func TestListingCardExtraction(t *testing.T) {
	page := `<html><body>
<article class="product-card" data-product-id="42">
  <a href="/catalog/42/detail.aspx"><img src="//img.cdn/42.webp"></a>
  <h3>Test Product</h3>
  <span class="price">5 499 ₽</span>
  <span class="rating">4,5</span>
  <span class="reviews">(87)</span>
</article>
<article class="product-card">
  <a href="/catalog/43/detail.aspx">X</a>
</article>
</body></html>`
	doc, err := extract.ParseDocument(page)
	if err != nil {
		t.Fatal(err)
	}

	st := cardStrategy("test", cardConfig{
		baseURL:    "https://shop.example",
		containers: []string{"article.product-card"},
		nameSel:    []string{"h3"},
		priceSel:   []string{"span.price"},
		ratingSel:  []string{"span.rating"},
		reviewsSel: []string{"span.reviews"},
	})

	records := st.Extract(doc, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record (short-named card dropped), got %d", len(records))
	}
	rec := records[0]
	if rec.String("name") != "Test Product" {
		t.Errorf("name = %q", rec.String("name"))
	}
	if rec.Float("price") != 5499 {
		t.Errorf("price = %v", rec.Float("price"))
	}
	if rec.Float("rating") != 4.5 {
		t.Errorf("rating = %v", rec.Float("rating"))
	}
	if rec.Int("reviews_count") != 87 {
		t.Errorf("reviews = %v", rec.Int("reviews_count"))
	}
	if rec.String("url") != "https://shop.example/catalog/42/detail.aspx" {
		t.Errorf("url = %q", rec.String("url"))
	}
	if rec.String("image_url") != "https://img.cdn/42.webp" {
		t.Errorf("image = %q", rec.String("image_url"))
	}
	if rec.String("id") != "42" {
		t.Errorf("id = %q", rec.String("id"))
	}
	if rec.Bool(extract.PriceGuessedKey) {
		t.Error("labelled price must not be flagged as guessed")
	}
}

func TestListingCardPriceFallbackFlagged(t *testing.T) {
	page := `<html><body>
<div class="card">
  <a href="/p/9">Fallback Product</a>
  <div>со скидкой 12 990 сум, 15 отзывов</div>
</div>
</body></html>`
	doc, err := extract.ParseDocument(page)
	if err != nil {
		t.Fatal(err)
	}

	st := cardStrategy("test", cardConfig{
		containers: []string{"div.card"},
		nameSel:    []string{"a"},
		priceSel:   []string{"span.price"},
		minPrice:   1000,
	})
	records := st.Extract(doc, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Float("price") != 12990 {
		t.Errorf("largest-number fallback price = %v, want 12990", rec.Float("price"))
	}
	if !rec.Bool(extract.PriceGuessedKey) {
		t.Error("fallback-priced record must carry the guessed flag")
	}
}

func TestPlaceCardExtraction(t *testing.T) {
	page := `<html><body>
<div class="search-snippet-view" data-coordinates="37.6173,55.7558">
  <a href="/maps/org/cafe/123/"></a>
  <div class="title">Кофейня у моста</div>
  <div class="addr">Москва, ул. Примерная, 1</div>
  <span class="cat">Кофейня</span>
  <span class="score">4,8</span>
</div>
</body></html>`
	doc, err := extract.ParseDocument(page)
	if err != nil {
		t.Fatal(err)
	}

	st := placeStrategy("test", placeConfig{
		baseURL:     "https://maps.example",
		containers:  []string{"div.search-snippet-view"},
		nameSel:     []string{"div.title"},
		addressSel:  []string{"div.addr"},
		categorySel: []string{"span.cat"},
		ratingSel:   []string{"span.score"},
		coordsAttr:  "data-coordinates",
	})
	records := st.Extract(doc, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.String("name") != "Кофейня у моста" {
		t.Errorf("name = %q", rec.String("name"))
	}
	if rec.String("address") != "Москва, ул. Примерная, 1" {
		t.Errorf("address = %q", rec.String("address"))
	}
	if rec.Float("rating") != 4.8 {
		t.Errorf("rating = %v", rec.Float("rating"))
	}
	if rec.Float("lat") != 37.6173 || rec.Float("lon") != 55.7558 {
		t.Errorf("coordinates = %v,%v", rec.Float("lat"), rec.Float("lon"))
	}
	if rec.String("url") != "https://maps.example/maps/org/cafe/123/" {
		t.Errorf("url = %q", rec.String("url"))
	}
}

func TestTwoGISCityScopedURL(t *testing.T) {
	def := NewTwoGIS("")
	if !strings.Contains(def.SearchURL("кафе"), "/moscow/search/") {
		t.Errorf("default city missing: %q", def.SearchURL("кафе"))
	}
	nsk := NewTwoGIS("novosibirsk")
	if !strings.Contains(nsk.SearchURL("кафе"), "/novosibirsk/search/") {
		t.Errorf("configured city missing: %q", nsk.SearchURL("кафе"))
	}
}

func TestUzumWarmupTargetsRoot(t *testing.T) {
	u := NewUzum()
	req := u.WarmupRequest()
	if req.URL != u.BaseURL() {
		t.Errorf("warm-up must hit the site root, got %q", req.URL)
	}
}
