package main

import (
	"os"

	"github.com/Rrens/chatwidget/internal/config"
	"github.com/Rrens/chatwidget/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Usage: migrate [up|down]
func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("direction", direction).
		Msg("Migrating chat history database")

	switch direction {
	case "up":
		err = postgres.RunMigrations(cfg.Database.DSN())
	case "down":
		err = postgres.RollbackMigration(cfg.Database.DSN())
	default:
		log.Fatal().Str("direction", direction).Msg("Unknown migration direction, use up or down")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
