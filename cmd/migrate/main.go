// Command migrate applies the embedded goose migrations.
//
//	migrate [-d DSN] up|down|status
package main

import (
	"context"
	"flag"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/pg"
)

func main() {
	cfg := config.New()

	cmd := pg.MigrateUp
	if flag.NArg() > 0 {
		cmd = pg.MigrationCommand(flag.Arg(0))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Can't build pgx pool")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Can't reach database")
	}

	if err := pg.Migrate(pool, cmd); err != nil {
		log.Fatal().Err(err).Str("command", string(cmd)).Msg("Migration failed")
	}
	log.Info().Str("command", string(cmd)).Msg("Migration finished")
}
