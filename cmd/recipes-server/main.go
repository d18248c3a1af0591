package main

import (
	"flag"
	"net/http"
	"recipes-backend/internal/app"
	"recipes-backend/internal/components/chrono"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/lib/configutil"
	"recipes-backend/lib/serviceutil"
)

type Config struct {
	App    app.Config   `json:"app"`
	Server ServerConfig `json:"server"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	initialScrape := flag.Bool("scrape", false, "Trigger an ingestion run immediately on start.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	cfg.Server, err = configutil.WithDefaults(cfg.Server, DefaultServerConfig())
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	tel := telemetry.SlogAPI{}
	recipes, err := app.New(ctx, cfg.App, tel)
	if err != nil {
		serviceutil.Fatal("init app", err)
	}
	defer recipes.Close()

	mux := http.NewServeMux()
	InitAdmin(mux, cfg.Server, recipes.Service)

	cron := chrono.NewStandardCron(recipes.Location, tel)
	defer func() { <-cron.Stop() }()
	err = InitSchedule(cron, cfg.Server.Schedule, recipes.Service, tel)
	if err != nil {
		serviceutil.Fatal("init schedule", err)
	}
	if *initialScrape {
		startScheduledRun(recipes.Service, tel)
	}

	err = serviceutil.StartHttpServer(ctx, cfg.Server.Port, mux)
	if err != nil {
		serviceutil.Fatal("serve", err)
	}
}
