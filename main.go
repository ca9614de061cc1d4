package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guessdle/go-server/internal/catalog"
	"github.com/guessdle/go-server/internal/config"
	"github.com/guessdle/go-server/internal/database"
	"github.com/guessdle/go-server/internal/httpserver"
	"github.com/guessdle/go-server/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// Catalogs: an empty catalog or empty secret pool is fatal — no game
	// can start without eligible secrets.
	reg := catalog.NewRegistry(cfg.CatalogDir)
	if err := reg.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load catalogs")
	}
	log.Info().Strs("games", reg.Games()).Msg("catalogs loaded")

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	mem := store.NewMemoryStore()
	srv := httpserver.New(mem, db, reg, cfg)
	log.Info().Str("port", cfg.Port).Msg("starting guessdle server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
