package main

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"fieldtech/internal/auth"
	"fieldtech/internal/config"
	"fieldtech/internal/db"
)

// seedDemo loads demo tickets into an empty database and logs a token the
// tech CLI can use against them.
func seedDemo(ctx context.Context, cfg *config.Config, database *gorm.DB, log zerolog.Logger) {
	inserted, err := db.SeedDemo(ctx, database, demoTechnicianID)
	if err != nil {
		log.Error().Err(err).Msg("failed to seed demo tickets")
		return
	}
	if inserted {
		log.Info().Str("technician_id", demoTechnicianID).Msg("demo tickets seeded")
	}

	token, err := auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.TokenTTL).Issue(demoTechnicianID, "Demo Technician")
	if err != nil {
		log.Error().Err(err).Msg("failed to issue demo token")
		return
	}
	log.Info().Str("token", token).Msg("demo technician token")
}
