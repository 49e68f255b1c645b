// One-shot search runner: same pipeline as the API, driven from flags,
// result printed as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"estate_search/internal/adapters/brightdata"
	"estate_search/internal/adapters/fetchproxy"
	"estate_search/internal/adapters/firecrawl"
	"estate_search/internal/adapters/mapbox"
	"estate_search/internal/adapters/observability"
	redisad "estate_search/internal/adapters/redis"
	"estate_search/internal/app"
	"estate_search/internal/domain"
	"estate_search/internal/extract"
	"estate_search/internal/scrape"
	"estate_search/internal/session"
	"estate_search/internal/shared"
)

func main() {
	location := flag.String("location", "", "target location (required), e.g. \"Faro\"")
	budget := flag.Int("budget", 0, "max budget; values over 10000 are treated as annual")
	bedrooms := flag.Int("bedrooms", 0, "wanted bedroom count (0 = any)")
	bathrooms := flag.Float64("bathrooms", 0, "wanted bathroom count (0 = any)")
	info := flag.String("info", "", "free-text extra requirements")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if *location == "" {
		log.Fatal().Msg("-location is required")
	}
	req := domain.Requirements{Location: *location}
	if *budget > 0 {
		req.BudgetMax = budget
	}
	if *bedrooms > 0 {
		req.Bedrooms = bedrooms
	}
	if *bathrooms > 0 {
		req.Bathrooms = bathrooms
	}
	if *info != "" {
		req.AdditionalInfo = info
	}

	bright, err := brightdata.New(cfg.BrightDataBase, cfg.BrightDataKey, cfg.BrightDataRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Bright Data client")
	}
	backends := []domain.ScrapeBackend{bright}
	if cfg.FirecrawlKey != "" {
		fc, err := firecrawl.New(cfg.FirecrawlBase, cfg.FirecrawlKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Firecrawl client")
		}
		backends = append(backends, fc)
	}
	backends = append(backends, fetchproxy.New(15*time.Second))

	var (
		geocoder domain.Geocoder
		pois     domain.POIProvider
	)
	if cfg.MapboxToken != "" {
		mb, err := mapbox.New(cfg.MapboxBase, cfg.MapboxToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Mapbox client")
		}
		geocoder, pois = mb, mb
	}

	bus := session.NewBus(250*time.Millisecond, cfg.SessionTTL)
	defer bus.Close()

	svc := app.NewSearchService(
		bright,
		scrape.NewChain(cfg.ScrapeConcurrency, backends...),
		extract.NewRegistry(),
		geocoder, pois,
		redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB),
		nil,
		bus,
		app.Options{
			AllowedDomains: cfg.AllowedDomains,
			POICategories:  cfg.POICategories,
			Concurrency:    cfg.ScrapeConcurrency,
			DetailCap:      cfg.DetailCap,
			TopN:           cfg.TopN,
			EnrichCount:    cfg.EnrichCount,
			EnrichWorkers:  cfg.EnrichWorkers,
			CacheTTLSec:    int(cfg.CacheTTL.Seconds()),
		},
	)

	const sid = "cli"
	if err := bus.Begin(sid); err != nil {
		log.Fatal().Err(err).Msg("session begin failed")
	}
	defer bus.End(sid)

	log.Info().Str("location", req.Location).Msg("search starting")
	go svc.SearchProperties(ctx, req, sid)

	v, err := bus.AwaitResult(ctx, sid, session.KindSearch, cfg.SearchWait)
	if err != nil {
		log.Fatal().Err(err).Msg("no search result")
	}
	outcome, ok := v.(app.SearchOutcome)
	if !ok {
		log.Fatal().Msg("unexpected outcome type")
	}
	if outcome.Status == app.StatusFailed {
		log.Fatal().Str("error", outcome.Error).Msg("search failed")
	}

	mergeEnrichment(ctx, bus, sid, cfg, &outcome)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		log.Fatal().Err(err).Msg("encode result failed")
	}
}

func mergeEnrichment(ctx context.Context, bus *session.Bus, sid string, cfg shared.Config, outcome *app.SearchOutcome) {
	n := outcome.EnrichCount
	if n <= 0 {
		return
	}
	geos, err := bus.AwaitCount(ctx, sid, session.KindGeocode, n, cfg.GeocodeWait)
	if err != nil && !errors.Is(err, session.ErrAwaitTimeout) {
		return
	}
	for _, g := range geos {
		if o, ok := g.(app.GeocodeOutcome); ok && o.OK && o.Index >= 0 && o.Index < len(outcome.Properties) {
			lat, lon := o.Latitude, o.Longitude
			outcome.Properties[o.Index].Latitude = &lat
			outcome.Properties[o.Index].Longitude = &lon
		}
	}
	pois, err := bus.AwaitCount(ctx, sid, session.KindPOI, n, cfg.POIWait)
	if err != nil && !errors.Is(err, session.ErrAwaitTimeout) {
		return
	}
	for _, p := range pois {
		if o, ok := p.(app.POIOutcome); ok && o.Index >= 0 && o.Index < len(outcome.Properties) {
			outcome.Properties[o.Index].POIs = o.POIs
		}
	}
}
