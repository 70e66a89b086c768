// Command geocode resolves place names once and prints the JSON mapping.
// It uses the same environment configuration and cache as the service.
//
// Usage:
//
//	go run ./cmd/geocode \
//	  -location Paris -country FR \
//	  "The Louvre" "Musée d'Orsay" "Arc de Triomphe"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/trip-planner-service/internal/app"
	"github.com/couchcryptid/trip-planner-service/internal/config"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
)

func main() {
	location := flag.String("location", "", "destination used as the focus point")
	country := flag.String("country", "", "ISO 3166-1 alpha-2 country filter")
	flag.Parse()

	places := flag.Args()
	if len(places) == 0 {
		fmt.Fprintln(os.Stderr, "usage: geocode [-location L] [-country CC] place...")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays valid JSON.
	logger := observability.NewLoggerTo(os.Stderr, cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := app.NewEngine(ctx, cfg, metrics, logger)
	coords := engine.Coordinator.ResolveAll(ctx, places, *location, *country)
	engine.Close(context.WithoutCancel(ctx))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(coords); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
