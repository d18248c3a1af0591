// Package app wires the store, the scrapers and the admin service from one
// configuration, for the server and for the cli in local mode.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"recipes-backend/internal/admin"
	"recipes-backend/internal/components/chrono"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/db"
	"recipes-backend/internal/notify"
	"recipes-backend/internal/scrapers/aprosef"
	"recipes-backend/internal/scrapers/mindmegette"
	"recipes-backend/internal/scrapers/nosalty"
	"recipes-backend/internal/scrapers/sites"
	"recipes-backend/internal/store"
	"recipes-backend/lib/configutil"
	"recipes-backend/lib/configutil/dbconfig"
	"time"

	_ "time/tzdata"
)

type IngestConfig struct {
	// Sites are loaded when a run selects none.
	Sites             []string `json:"sites"`
	LanguageId        int64    `json:"language_id"`
	RetryDelaySeconds float64  `json:"retry_delay_seconds"`
	// MaxSkips bounds consecutive skips, a negative value means unbounded.
	MaxSkips int `json:"max_skips"`
}

type Config struct {
	Database dbconfig.Config `json:"database"`
	TimeZone string          `json:"time_zone"`
	Ingest   IngestConfig    `json:"ingest"`
	Scrapers sites.Config    `json:"scrapers"`
	Notify   notify.Config   `json:"notify"`
}

func DefaultConfig() Config {
	return Config{
		Database: dbconfig.Config{File: "data/recipes.db"},
		TimeZone: "Europe/Budapest",
		Ingest: IngestConfig{
			Sites:             []string{nosalty.NAME, aprosef.NAME, mindmegette.NAME},
			LanguageId:        1,
			RetryDelaySeconds: 2,
			MaxSkips:          25,
		},
	}
}

func (c Config) Validate() error {
	err := c.Database.Validate()
	if err != nil {
		return err
	}
	if c.TimeZone != "" {
		_, err = time.LoadLocation(c.TimeZone)
		if err != nil {
			return fmt.Errorf("time_zone: %w", err)
		}
	}
	if c.Ingest.LanguageId < 0 {
		return fmt.Errorf("ingest.language_id must not be negative")
	}
	if c.Ingest.RetryDelaySeconds < 0 {
		return fmt.Errorf("ingest.retry_delay_seconds must not be negative")
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}

type App struct {
	Config   Config
	DB       *sql.DB
	Store    store.Store
	Registry sites.Registry
	Service  *admin.Service
	Clock    chrono.TimeAPI
	Location *time.Location
}

// New opens the database and creates the admin service, runs started by the
// service live as long as ctx.
func New(ctx context.Context, config Config, tel telemetry.API) (App, error) {
	config, err := configutil.WithDefaults(config, DefaultConfig())
	if err != nil {
		return App{}, err
	}
	err = config.Validate()
	if err != nil {
		return App{}, err
	}
	location, err := config.Location()
	if err != nil {
		return App{}, err
	}
	clock := chrono.NewStandardTime(location)

	database, err := config.Database.Open(ctx, db.Schema)
	if err != nil {
		return App{}, fmt.Errorf("open database: %w", err)
	}
	recipeStore := store.New(database, clock)

	registry := sites.NewRegistry(config.Scrapers)
	catalog, err := registry.NewCatalog(tel)
	if err != nil {
		database.Close()
		return App{}, err
	}

	options := admin.Options{
		Sites:      config.Ingest.Sites,
		LanguageId: config.Ingest.LanguageId,
		RetryDelay: time.Duration(config.Ingest.RetryDelaySeconds * float64(time.Second)),
		MaxSkips:   config.Ingest.MaxSkips,
	}
	if config.Notify.Enabled() {
		options.Notifier = notify.NewMailer(config.Notify)
	}
	service := admin.NewService(ctx, registry, recipeStore, catalog, options, clock, tel)

	return App{
		Config:   config,
		DB:       database,
		Store:    recipeStore,
		Registry: registry,
		Service:  service,
		Clock:    clock,
		Location: location,
	}, nil
}

func (a App) Close() error {
	return a.DB.Close()
}
