// Command resolve performs a one-shot postcode lookup against the configured
// upstream, printing the coordinates and direction label. Useful for
// checking an environment's geocode configuration without starting the
// service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/geo-resolver-service/internal/adapter/zippopotam"
	"github.com/couchcryptid/geo-resolver-service/internal/config"
	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/couchcryptid/geo-resolver-service/internal/observability"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Second, "upstream request timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: resolve [-timeout 10s] <postcode>")
		os.Exit(2)
	}
	postcode := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := zippopotam.NewClient(cfg.GeocodeBaseURL, *timeout, observability.NewUnregisteredMetrics(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	coords, err := client.Lookup(ctx, postcode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookup %s: %v (kind %s)\n", postcode, err, domain.ErrKind(err))
		os.Exit(1)
	}

	ref := domain.ReferencePoint{Latitude: cfg.ReferenceLat, Longitude: cfg.ReferenceLon}
	fmt.Printf("%s: lat=%.4f lon=%.4f direction=%s\n",
		postcode, coords.Latitude, coords.Longitude, domain.DirectionFrom(coords, ref))
}
