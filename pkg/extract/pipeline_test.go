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

package extract

import (
	"reflect"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"marketgrab/pkg/diag"
)

const testPage = `<html><body>
<div class="item"><span class="name">Alpha</span></div>
<div class="item"><span class="name">Beta</span></div>
<div class="item"><span class="name">Gamma</span></div>
</body></html>`

// selectorStrategy returns one record per node matching the selector.
func selectorStrategy(name, selector string) Strategy {
	return Strategy{
		Name: name,
		Extract: func(doc *Document, _ string) []RawRecord {
			var out []RawRecord
			doc.HTML.Find(selector).Each(func(_ int, s *goquery.Selection) {
				out = append(out, RawRecord{"name": s.Text()})
			})
			return out
		},
	}
}

func TestRunFirstSuccessWins(t *testing.T) {
	doc, err := ParseDocument(testPage)
	if err != nil {
		t.Fatal(err)
	}

	never := Strategy{
		Name: "never-reached",
		Extract: func(_ *Document, _ string) []RawRecord {
			t.Error("later strategy must not run after a hit")
			return nil
		},
	}
	strategies := []Strategy{
		selectorStrategy("missing", "div.nope"),
		selectorStrategy("items", "div.item span.name"),
		never,
	}

	rec := &diag.Recorder{}
	records := Run(doc, "q", strategies, rec, "run-1", "test")
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].String("name") != "Alpha" {
		t.Errorf("expected first record Alpha, got %q", records[0].String("name"))
	}
	if rec.Count(diag.KindStrategyMiss) != 1 {
		t.Errorf("expected 1 strategy_miss, got %d", rec.Count(diag.KindStrategyMiss))
	}
	if rec.Count(diag.KindStrategyHit) != 1 {
		t.Errorf("expected 1 strategy_hit, got %d", rec.Count(diag.KindStrategyHit))
	}
}

func TestRunDeterministic(t *testing.T) {
	doc, err := ParseDocument(testPage)
	if err != nil {
		t.Fatal(err)
	}
	st := selectorStrategy("names", "span.name")

	first := Run(doc, "q", []Strategy{st}, nil, "run-1", "test")
	second := Run(doc, "q", []Strategy{st}, nil, "run-2", "test")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two runs over the same document differ: %v vs %v", first, second)
	}
}

func TestRunPanickingStrategyIsAMiss(t *testing.T) {
	doc, err := ParseDocument(testPage)
	if err != nil {
		t.Fatal(err)
	}
	panicky := Strategy{
		Name: "panicky",
		Extract: func(_ *Document, _ string) []RawRecord {
			panic("selector blew up")
		},
	}
	fallback := Strategy{
		Name: "fallback",
		Extract: func(_ *Document, _ string) []RawRecord {
			return []RawRecord{{"name": "survivor"}}
		},
	}

	records := Run(doc, "q", []Strategy{panicky, fallback}, nil, "run-1", "test")
	if len(records) != 1 || records[0].String("name") != "survivor" {
		t.Fatalf("expected the fallback strategy's record, got %v", records)
	}
}

func TestRunAllMiss(t *testing.T) {
	doc, err := ParseDocument(testPage)
	if err != nil {
		t.Fatal(err)
	}
	miss := Strategy{
		Name:    "miss",
		Extract: func(_ *Document, _ string) []RawRecord { return nil },
	}
	if records := Run(doc, "q", []Strategy{miss, miss}, nil, "run-1", "test"); records != nil {
		t.Errorf("expected nil on a full miss, got %v", records)
	}
}

func TestDocumentCascades(t *testing.T) {
	doc, err := ParseDocument(testPage)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.FirstCSS("div.absent", "span.name"); got != "Alpha" {
		t.Errorf("FirstCSS cascade = %q, want Alpha", got)
	}
	if got := doc.XPath("//div[@class='item'][2]/span"); got != "Beta" {
		t.Errorf("XPath = %q, want Beta", got)
	}
	if got := doc.CSS("div.absent"); got != "" {
		t.Errorf("CSS on absent node = %q, want empty", got)
	}
}
