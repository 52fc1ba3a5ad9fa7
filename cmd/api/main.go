package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "monobook/internal/adapters/http_server"
	"monobook/internal/adapters/mcp"
	"monobook/internal/adapters/observability"
	redisad "monobook/internal/adapters/redis"
	"monobook/internal/app"
	"monobook/internal/shared"
	mysqlrepo "monobook/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// the currency table is fixed; one read at startup feeds the resolver
	table, err := repo.CurrencyTable(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("loading currency table failed")
	}
	resolver := app.NewCurrencyResolver(table)

	avail := app.NewAvailabilityService(repo)
	search := app.NewSearchService(repo, repo, avail, resolver)
	bookings := app.NewBookingService(repo, repo, repo, avail, resolver, cache)
	queries := app.NewQueryService(repo, repo, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.Mount("/mcp", mcp.New(search, bookings, queries, cfg.MCPRateRPS).Handler())
	srv.MountHandlers(&server.Handlers{Q: queries, B: bookings, S: search, C: resolver})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
