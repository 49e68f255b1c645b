package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr string
	RedisDB   int
	RedisPass string

	BrightDataBase string
	BrightDataKey  string
	BrightDataRPS  int
	FirecrawlBase  string
	FirecrawlKey   string
	MapboxBase     string
	MapboxToken    string

	AllowedDomains []string
	POICategories  []string

	ScrapeConcurrency int
	DetailCap         int
	TopN              int
	EnrichCount       int
	EnrichWorkers     int

	RequestTimeout time.Duration
	SearchWait     time.Duration
	GeocodeWait    time.Duration
	POIWait        time.Duration
	SessionTTL     time.Duration
	CacheTTL       time.Duration
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	csv := func(k string, def []string) []string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		var out []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisDB:   atoi("REDIS_DB", 0),
		RedisPass: env("REDIS_PASSWORD", ""),

		BrightDataBase: env("BRIGHTDATA_BASE_URL", "https://api.brightdata.com"),
		BrightDataKey:  env("BRIGHTDATA_API_KEY", ""),
		BrightDataRPS:  atoi("BRIGHTDATA_RPS", 5),
		FirecrawlBase:  env("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
		FirecrawlKey:   env("FIRECRAWL_API_KEY", ""),
		MapboxBase:     env("MAPBOX_BASE_URL", "https://api.mapbox.com"),
		MapboxToken:    env("MAPBOX_ACCESS_TOKEN", ""),

		AllowedDomains: csv("ALLOWED_DOMAINS",
			[]string{"idealista.pt", "imovirtual.com", "casasapo.pt", "casa.sapo.pt", "olx.pt"}),
		POICategories: csv("POI_CATEGORIES", []string{"grocery", "restaurant", "transport"}),

		ScrapeConcurrency: atoi("SCRAPE_CONCURRENCY", 8),
		DetailCap:         atoi("DETAIL_CAP", 30),
		TopN:              atoi("TOP_N", 20),
		EnrichCount:       atoi("ENRICH_COUNT", 5),
		EnrichWorkers:     atoi("ENRICH_WORKERS", 4),

		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 90)) * time.Second,
		SearchWait:     time.Duration(atoi("SEARCH_WAIT_SECONDS", 30)) * time.Second,
		GeocodeWait:    time.Duration(atoi("GEOCODE_WAIT_SECONDS", 15)) * time.Second,
		POIWait:        time.Duration(atoi("POI_WAIT_SECONDS", 20)) * time.Second,
		SessionTTL:     time.Duration(atoi("SESSION_TTL_SECONDS", 600)) * time.Second,
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 86400)) * time.Second,
	}
	if c.BrightDataKey == "" {
		log.Warn().Msg("BRIGHTDATA_API_KEY is empty")
	}
	if c.MapboxToken == "" {
		log.Warn().Msg("MAPBOX_ACCESS_TOKEN is empty; enrichment will be skipped")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
