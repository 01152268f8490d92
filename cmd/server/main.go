package main

import (
	"net/http"
	"os"

	"sketch-relay/internal/config"
	"sketch-relay/internal/db"
	"sketch-relay/internal/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()

	conn, err := db.Open()
	if err != nil {
		log.Warn().Err(err).Msg("running without persistence")
		conn = nil
	} else {
		if err := db.ConfigurePool(conn, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeSeconds, cfg.DBConnMaxIdleTimeSeconds); err != nil {
			log.Fatal().Err(err).Msg("failed to configure db pool")
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(conn, cfg)
	log.Info().Str("addr", addr).Msg("sketch-relay listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
