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
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"marketgrab/pkg/diag"
	"marketgrab/pkg/extract"
	"marketgrab/pkg/fetcher"
	"marketgrab/pkg/models"
)

const listingPage = `<html><body>
<div class="card"><a href="/p/1">Phone One</a><span class="price">1 000 ₽</span></div>
<div class="card"><a href="/p/2">Phone Two</a><span class="price">2 000 ₽</span></div>
<div class="card"><a href="/p/3">Phone Three</a><span class="price">3 000 ₽</span></div>
</body></html>`

// testAdapter is a minimal listing adapter pointed at an httptest server.
type testAdapter struct {
	base     string
	channels []Channel
}

func (a *testAdapter) Name() string       { return models.SourceOzon }
func (a *testAdapter) Kind() Kind         { return KindListing }
func (a *testAdapter) BaseURL() string    { return a.base }
func (a *testAdapter) Channels() []Channel {
	return a.channels
}
func (a *testAdapter) SearchURL(term string) string {
	return a.base + "/search?q=" + term
}

func cardsStrategy() extract.Strategy {
	return cardStrategy("test-cards", cardConfig{
		containers: []string{"div.card"},
		nameSel:    []string{"a"},
		priceSel:   []string{"span.price"},
	})
}

func newRunnerForTest(t *testing.T) *sessionRunner {
	t.Helper()
	session, err := fetcher.NewSession(fetcher.Options{
		Delay:         time.Millisecond,
		Backoff:       time.Millisecond,
		SoftBlockWait: time.Millisecond,
		Retries:       1,
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := &diag.Recorder{}
	return &sessionRunner{Runner: NewRunner(session, rec), rec: rec}
}

type sessionRunner struct {
	*Runner
	rec *diag.Recorder
}

func TestSearchSoftBlockRecovery(t *testing.T) {
	var searchCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("root")) //nolint:errcheck
	})
	mux.HandleFunc("/list", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&searchCalls, 1) == 1 {
			w.WriteHeader(fetcher.StatusSoftBlock)
			return
		}
		w.Write([]byte(listingPage)) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ad := &testAdapter{base: srv.URL}
	ad.channels = []Channel{{
		Name: "html",
		Build: func(_, _ string) (fetcher.Request, error) {
			return fetcher.Request{URL: srv.URL + "/list"}, nil
		},
		Strategies: []extract.Strategy{cardsStrategy()},
	}}

	r := newRunnerForTest(t)
	batch, err := r.Search(context.Background(), ad, "phone", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Products) != 3 {
		t.Fatalf("expected 3 products after soft-block recovery, got %d", len(batch.Products))
	}
	if got := r.rec.Count(diag.KindSessionReset); got != 1 {
		t.Errorf("expected exactly 1 session_reset event, got %d", got)
	}
}

func TestSearchPersistentSoftBlockFailsChannel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("root")) //nolint:errcheck
	})
	mux.HandleFunc("/list", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(fetcher.StatusSoftBlock)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ad := &testAdapter{base: srv.URL}
	ad.channels = []Channel{{
		Name: "html",
		Build: func(_, _ string) (fetcher.Request, error) {
			return fetcher.Request{URL: srv.URL + "/list"}, nil
		},
		Strategies: []extract.Strategy{cardsStrategy()},
	}}

	r := newRunnerForTest(t)
	batch, err := r.Search(context.Background(), ad, "phone", "", 0)
	if err != nil {
		t.Fatalf("exhaustion must not surface as an error, got %v", err)
	}
	if batch.Len() != 0 {
		t.Errorf("expected an empty batch, got %d records", batch.Len())
	}
	if got := r.rec.Count(diag.KindChannelExhausted); got != 1 {
		t.Errorf("expected 1 channel_exhausted event, got %d", got)
	}
}

func TestSearchChannelFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/primary", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body>no cards here</body></html>")) //nolint:errcheck
	})
	mux.HandleFunc("/secondary", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(listingPage)) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ad := &testAdapter{base: srv.URL}
	ad.channels = []Channel{
		{
			Name: "primary",
			Build: func(_, _ string) (fetcher.Request, error) {
				return fetcher.Request{URL: srv.URL + "/primary"}, nil
			},
			Strategies: []extract.Strategy{cardsStrategy()},
		},
		{
			Name: "secondary",
			Build: func(_, _ string) (fetcher.Request, error) {
				return fetcher.Request{URL: srv.URL + "/secondary"}, nil
			},
			Strategies: []extract.Strategy{cardsStrategy()},
		},
	}

	r := newRunnerForTest(t)
	batch, err := r.Search(context.Background(), ad, "phone", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Products) != 3 {
		t.Fatalf("expected the secondary channel's 3 products, got %d", len(batch.Products))
	}
	if got := r.rec.Count(diag.KindChannelSwitch); got != 1 {
		t.Errorf("expected 1 channel_switch event, got %d", got)
	}
}

func TestSearchAllChannelsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ad := &testAdapter{base: srv.URL}
	build := func(_, _ string) (fetcher.Request, error) {
		return fetcher.Request{URL: srv.URL + "/x"}, nil
	}
	ad.channels = []Channel{
		{Name: "a", Build: build, Strategies: []extract.Strategy{cardsStrategy()}},
		{Name: "b", Build: build, Strategies: []extract.Strategy{cardsStrategy()}},
	}

	r := newRunnerForTest(t)
	batch, err := r.Search(context.Background(), ad, "phone", "", 0)
	if err != nil {
		t.Fatalf("total failure must yield an empty batch, not an error; got %v", err)
	}
	if batch.Len() != 0 {
		t.Errorf("expected an empty batch, got %d records", batch.Len())
	}
	if got := r.rec.Count(diag.KindChannelExhausted); got != 2 {
		t.Errorf("expected 2 channel_exhausted events, got %d", got)
	}
}

func TestSearchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(listingPage)) //nolint:errcheck
	}))
	defer srv.Close()

	ad := &testAdapter{base: srv.URL}
	ad.channels = []Channel{{
		Name: "html",
		Build: func(_, _ string) (fetcher.Request, error) {
			return fetcher.Request{URL: srv.URL + "/list"}, nil
		},
		Strategies: []extract.Strategy{cardsStrategy()},
	}}

	r := newRunnerForTest(t)
	batch, err := r.Search(context.Background(), ad, "phone", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Products) != 2 {
		t.Errorf("expected the limit of 2 products, got %d", len(batch.Products))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	r := newRunnerForTest(t)
	if _, err := r.Search(context.Background(), &testAdapter{}, "   ", "", 0); err != ErrEmptyQuery {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearchDiagnosticExtractionOnErrorStatus(t *testing.T) {
	// a 403 that still ships the full listing markup must be salvaged
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(listingPage)) //nolint:errcheck
	}))
	defer srv.Close()

	ad := &testAdapter{base: srv.URL}
	ad.channels = []Channel{{
		Name: "html",
		Build: func(_, _ string) (fetcher.Request, error) {
			return fetcher.Request{URL: srv.URL + "/list"}, nil
		},
		Strategies: []extract.Strategy{cardsStrategy()},
	}}

	r := newRunnerForTest(t)
	batch, err := r.Search(context.Background(), ad, "phone", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Products) != 3 {
		t.Fatalf("expected 3 products recovered from the error response, got %d", len(batch.Products))
	}
}

func TestSearchSyntheticURLFallback(t *testing.T) {
	// one card has no link; it must come back with the flagged search URL
	page := `<html><body>
<div class="card"><a href="/p/1">Linked Item</a><span class="price">100</span></div>
<div class="card"><span class="nm">Orphan Item</span><span class="price">200</span></div>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(page)) //nolint:errcheck
	}))
	defer srv.Close()

	ad := &testAdapter{base: srv.URL}
	ad.channels = []Channel{{
		Name: "html",
		Build: func(_, _ string) (fetcher.Request, error) {
			return fetcher.Request{URL: srv.URL + "/list"}, nil
		},
		Strategies: []extract.Strategy{cardStrategy("test-cards", cardConfig{
			containers: []string{"div.card"},
			nameSel:    []string{"a", "span.nm"},
			priceSel:   []string{"span.price"},
		})},
	}}

	r := newRunnerForTest(t)
	batch, err := r.Search(context.Background(), ad, "phone", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(batch.Products))
	}

	var linked, orphan *models.Product
	for i := range batch.Products {
		switch batch.Products[i].Name {
		case "Linked Item":
			linked = &batch.Products[i]
		case "Orphan Item":
			orphan = &batch.Products[i]
		}
	}
	if linked == nil || orphan == nil {
		t.Fatalf("missing expected products: %+v", batch.Products)
	}
	if linked.SyntheticURL {
		t.Error("linked product must not be flagged synthetic")
	}
	if !orphan.SyntheticURL {
		t.Error("orphan product must carry the synthetic-URL flag")
	}
	if orphan.URL != ad.SearchURL("phone") {
		t.Errorf("orphan URL = %q, want the search URL", orphan.URL)
	}
}
