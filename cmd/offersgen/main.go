// Command offersgen snapshots the backend catalog into a static offers.json,
// the build-time artifact the storefront can fall back to when the backend is
// unreachable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/remsmachous/jo-storefront/internal/api"
	"github.com/remsmachous/jo-storefront/internal/offers"
	"github.com/remsmachous/jo-storefront/internal/store"
	"github.com/remsmachous/jo-storefront/pkg/config"
)

type manifest struct {
	Source      string         `json:"source"`
	GeneratedAt string         `json:"generated_at"`
	Catalog     offers.Catalog `json:"catalog"`
}

func main() {
	out := flag.String("out", "offers.json", "output path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Anonymous client: the catalog endpoint needs no tokens.
	client := api.NewClient(cfg.APIBaseURL, http.DefaultClient, store.NewMemoryStore(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	catalog, err := offers.Fetch(ctx, client, cfg.APIBaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fetch offers:", err)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(manifest{
		Source:      cfg.APIBaseURL + "/api/offers/",
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Catalog:     catalog,
	}, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode catalog:", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write catalog:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d solo, %d duo, %d famille)\n",
		*out, len(catalog.Solo), len(catalog.Duo), len(catalog.Famille))
}
