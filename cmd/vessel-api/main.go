// Package main provides the vessel-api server for the AIS vessel registry.
//
// This is a standalone REST API server over the PostgreSQL vessel table
// maintained by "ais_parser ingest --postgres". It answers lookups by MMSI
// and simple searches by name, area and recency.
//
// Usage:
//
//	vessel-api [options]
//
// Options:
//
//	-config FILE        YAML configuration (env: AIS_CONFIG)
//	-pg-host HOST       PostgreSQL host (default: localhost, env: POSTGRES_HOST)
//	-pg-port PORT       PostgreSQL port (default: 5432, env: POSTGRES_PORT)
//	-pg-database DB     PostgreSQL database (default: ais_state, env: POSTGRES_DATABASE)
//	-pg-user USER       PostgreSQL user (default: ais, env: POSTGRES_USER)
//	-pg-password PASS   PostgreSQL password (default: ais, env: POSTGRES_PASSWORD)
//	-port N             HTTP port (default: 8081, env: AIS_API_PORT)
//	-auth               Enable API key authentication
//	-api-keys KEYS      Comma-separated list of valid API keys (env: AIS_API_KEYS)
//	-metrics            Serve Prometheus metrics on /metrics
//
// API Endpoints:
//
//	GET /api/v1/health
//	    Health check with the number of known vessels.
//
//	GET /api/v1/vessels?name=&geohash=&since=&limit=
//	    Search vessels. since is a duration ("1h") or an RFC 3339 time.
//
//	GET /api/v1/vessels/{mmsi}
//	    Get one vessel.
//
//	POST /api/v1/vessels/batch
//	    Batch lookup. Body: {"mmsi": [366730000, 244000000]}
//
// Authentication:
//
//	When -auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ais_parser/internal/api"
	"ais_parser/internal/config"
	"ais_parser/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("AIS_CONFIG"), "YAML configuration file")

	// PostgreSQL connection flags. Empty or zero keeps the configured value.
	pgHost := flag.String("pg-host", "", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 0, "PostgreSQL port")
	pgUser := flag.String("pg-user", "", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-database", "", "PostgreSQL database")

	// API server flags.
	port := flag.Int("port", 0, "HTTP port for API server")
	authEnabled := flag.Bool("auth", false, "Enable API key authentication")
	apiKeys := flag.String("api-keys", "", "Comma-separated list of valid API keys (when auth enabled)")
	metrics := flag.Bool("metrics", false, "Serve Prometheus metrics on /metrics")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	pgCfg := cfg.Storage.Postgres
	setString(&pgCfg.Host, *pgHost)
	setString(&pgCfg.User, *pgUser)
	setString(&pgCfg.Password, *pgPassword)
	setString(&pgCfg.Database, *pgDB)
	if *pgPort > 0 {
		pgCfg.Port = *pgPort
	}

	apiCfg := cfg.API
	if *port > 0 {
		apiCfg.Port = *port
	}
	apiCfg.AuthEnabled = apiCfg.AuthEnabled || *authEnabled
	apiCfg.Metrics = apiCfg.Metrics || *metrics
	if *apiKeys != "" {
		apiCfg.APIKeys = nil
		for _, k := range strings.Split(*apiKeys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				apiCfg.APIKeys = append(apiCfg.APIKeys, k)
			}
		}
	}

	log, err := cfg.Logging.Prepare()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing logs: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(pgCfg, apiCfg, log); err != nil {
		log.Error("vessel API stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(pgCfg storage.PostgresConfig, apiCfg config.APIConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := storage.OpenPostgres(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer pg.Close()

	var gatherer prometheus.Gatherer
	if apiCfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
		gatherer = reg
	}

	server := api.NewVesselServer(pg, api.Config{
		Port:        apiCfg.Port,
		AuthEnabled: apiCfg.AuthEnabled,
		APIKeys:     apiCfg.APIKeys,
		Gatherer:    gatherer,
		Logger:      log,
	})
	return server.Run(ctx)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
