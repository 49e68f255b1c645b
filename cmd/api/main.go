package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"estate_search/internal/adapters/brightdata"
	"estate_search/internal/adapters/fetchproxy"
	"estate_search/internal/adapters/firecrawl"
	server "estate_search/internal/adapters/http_server"
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
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// deps
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

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	bus := session.NewBus(250*time.Millisecond, cfg.SessionTTL)
	defer bus.Close()

	svc := app.NewSearchService(
		bright,
		scrape.NewChain(cfg.ScrapeConcurrency, backends...),
		extract.NewRegistry(),
		geocoder, pois, cache,
		nil, // no summarizer configured; the deterministic fallback is used
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

	// http
	srv := server.New(cfg.RequestTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Svc:         svc,
		Bus:         bus,
		SearchWait:  cfg.SearchWait,
		GeocodeWait: cfg.GeocodeWait,
		POIWait:     cfg.POIWait,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
