package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	cfg "marketgrab/pkg/config"
	"marketgrab/pkg/storage"
)

var (
	config cfg.Config
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	confirm := flag.Bool("yes", false, "Confirm wiping every stored record")
	flag.Parse()

	// Read the configuration file
	var err error
	config, err = cfg.LoadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}

	if !*confirm {
		log.Fatal("This wipes every stored record. Re-run with -yes to confirm.")
	}

	store, err := storage.New(config.Storage)
	if err != nil {
		log.Fatalf("Error opening store: %v", err)
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		log.Fatalf("Error wiping store: %v", err)
	}

	fmt.Println("Store wiped successfully.")
}
