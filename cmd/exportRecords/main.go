package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	cfg "marketgrab/pkg/config"
	"marketgrab/pkg/storage"
)

var (
	config cfg.Config
)

// parseFilter turns "source=ozon,brand=Apple" into an exact-match filter.
func parseFilter(s string) map[string]string {
	filter := map[string]string{}
	if s == "" {
		return filter
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			filter[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return filter
}

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	kind := flag.String("kind", "products", "Record kind to export: products or places")
	filterSpec := flag.String("filter", "", "Exact-match filter, e.g. source=ozon,brand=Apple")
	flag.Parse()

	// Read the configuration file
	var err error
	config, err = cfg.LoadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(config.Storage)
	if err != nil {
		log.Fatalf("Error opening store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	filter := parseFilter(*filterSpec)

	var records interface{}
	switch *kind {
	case "products":
		records, err = store.QueryProducts(ctx, filter)
	case "places":
		records, err = store.QueryPlaces(ctx, filter)
	default:
		log.Fatalf("Unknown record kind %q (want products or places).", *kind)
	}
	if err != nil {
		log.Fatalf("Error querying store: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		log.Fatalf("Error encoding records: %v", err)
	}
}
