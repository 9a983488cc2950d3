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

// Package main (MarketGrab) is the command-line front end. It wires the
// configuration, the record store and the per-source pipeline together and
// runs a single search.
// Fetching is handled by the pkg/fetcher package, extraction by pkg/extract,
// per-site behaviour by pkg/sources and persistence by pkg/storage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	cmn "marketgrab/pkg/common"
	cfg "marketgrab/pkg/config"
	"marketgrab/pkg/diag"
	"marketgrab/pkg/fetcher"
	"marketgrab/pkg/models"
	"marketgrab/pkg/normalize"
	"marketgrab/pkg/sources"
	"marketgrab/pkg/storage"
)

var config cfg.Config

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	source := flag.String("source", "", "Source to search (one of: wildberries, ozon, uzum, 2gis, yandex_maps, google_maps)")
	query := flag.String("query", "", "Search query")
	location := flag.String("location", "", "Location hint for map/directory sources")
	limit := flag.Int("limit", 0, "Maximum number of records to return (0 = source config or unlimited)")
	details := flag.Bool("details", false, "Deep-fetch each record's detail page")
	asJSON := flag.Bool("json", false, "Print the batch as JSON instead of a summary")
	flag.Parse()

	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	var err error
	config, err = cfg.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading configuration:", err)
		os.Exit(1)
	}

	cmn.InitLogger("MarketGrab")
	cmn.SetDebugLevel(cmn.DbgLevel(config.DebugLevel))

	if *source == "" || *query == "" {
		fmt.Fprintln(os.Stderr, "Please provide both -source and -query.")
		flag.Usage()
		os.Exit(1)
	}
	if !config.SourceEnabled(*source) {
		fmt.Fprintf(os.Stderr, "Source %q is disabled in the configuration.\n", *source)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *source, *query, *location, *limit, *details, *asJSON); err != nil {
		cmn.DebugMsg(cmn.DbgLvlError, "search failed: %v", err)
		fmt.Fprintln(os.Stderr, "Search failed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, source, query, location string, limit int, details, asJSON bool) error {
	ad, err := sources.New(source, &config)
	if err != nil {
		return err
	}

	session, err := fetcher.NewSession(fetcher.Options{
		Delay:         time.Duration(config.SourceDelay(source) * float64(time.Second)),
		Timeout:       time.Duration(config.Fetch.Timeout) * time.Second,
		Retries:       config.Fetch.Retries,
		Backoff:       time.Duration(config.Fetch.Backoff * float64(time.Second)),
		SoftBlockWait: time.Duration(config.Fetch.SoftBlockWait * float64(time.Second)),
		Proxy:         config.Fetch.Proxy,
		UserAgentType: config.Fetch.UserAgentType,
	})
	if err != nil {
		return err
	}

	if limit == 0 {
		limit = config.Sources[source].Limit
	}

	sink := diag.LogSink{}
	runner := sources.NewRunner(session, sink)
	batch, err := runner.Search(ctx, ad, query, location, limit)
	if err != nil {
		return err
	}

	if batch.Len() == 0 {
		fmt.Printf("No records found on %s for %q.\n", source, query)
		return nil
	}

	if details {
		fetchDetails(ctx, runner, ad, batch)
	}

	if err := persist(ctx, batch); err != nil {
		// a store failure must not masquerade as a search failure
		sink.Emit(diag.Stamp(diag.Event{
			Source: source,
			Stage:  "store",
			Kind:   diag.KindStoreFailure,
			Detail: err.Error(),
		}))
		fmt.Fprintln(os.Stderr, "Results retrieved but could not be stored:", err)
	}

	return report(batch, source, query, asJSON)
}

// fetchDetails deep-fetches each record's detail page and folds the result
// into the canonical record. Failures degrade to the search-card data.
func fetchDetails(ctx context.Context, runner *sources.Runner, ad sources.Adapter, batch *models.Batch) {
	for i := range batch.Products {
		raw, err := runner.Detail(ctx, ad, batch.Products[i].URL)
		if err != nil {
			cmn.DebugMsg(cmn.DbgLvlWarn, "detail fetch for %q: %v", batch.Products[i].Name, err)
			continue
		}
		normalize.MergeProductDetails(&batch.Products[i], raw)
	}
	for i := range batch.Places {
		if batch.Places[i].URL == "" {
			continue
		}
		raw, err := runner.Detail(ctx, ad, batch.Places[i].URL)
		if err != nil {
			cmn.DebugMsg(cmn.DbgLvlWarn, "detail fetch for %q: %v", batch.Places[i].Name, err)
			continue
		}
		normalize.MergePlaceDetails(&batch.Places[i], raw)
	}
}

func persist(ctx context.Context, batch *models.Batch) error {
	store, err := storage.New(config.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.AppendProducts(ctx, batch.Products); err != nil {
		return err
	}
	return store.AppendPlaces(ctx, batch.Places)
}

func report(batch *models.Batch, source, query string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}

	fmt.Printf("Found %d record(s) on %s for %q:\n", batch.Len(), source, query)
	for _, p := range batch.Products {
		price := fmt.Sprintf("%.2f", p.Price)
		if p.PriceGuessed {
			price += " (guessed)"
		}
		fmt.Printf("  - %s | %s | rating %.1f (%d reviews)\n    %s\n", p.Name, price, p.Rating, p.ReviewsCount, p.URL)
	}
	for _, pl := range batch.Places {
		fmt.Printf("  - %s | %s | rating %.1f (%d reviews)\n", pl.Name, pl.Address, pl.Rating, pl.ReviewsCount)
		if pl.URL != "" {
			fmt.Printf("    %s\n", pl.URL)
		}
	}
	return nil
}
