package main

import (
	"fmt"

	"github.com/google/logger"
	"github.com/urfave/cli/v2"

	"secretsanta/internal/config"
	"secretsanta/internal/services"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Create the events table and the empty event",
		Action: migrate,
	}
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Store != config.StoreSQLite && cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrate needs the sqlite or postgres store, got %q", cfg.Store)
	}
	// The admin password is not needed to migrate.
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "-"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := openSQL(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.CreateSchema(c.Context); err != nil {
		return err
	}
	ev, err := services.NewEventRepository(s, cfg.EventKey).Read(c.Context)
	if err != nil {
		return fmt.Errorf("initialize event %q: %w", cfg.EventKey, err)
	}
	logger.Infof("Event %q ready: %d participants, drawn=%t", cfg.EventKey, len(ev.Users), ev.IsDrawComplete)
	fmt.Printf("Migrated %s store, event %q has %d participants\n", cfg.Store, cfg.EventKey, len(ev.Users))
	return nil
}
