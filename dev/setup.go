package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	devenv "recipes-backend/dev/env"
	"recipes-backend/internal/db"
	"recipes-backend/lib/configutil/dbconfig"
)

const devConfig = `{
  app: {
    database: { file: "recipes.db" },
    time_zone: "Europe/Budapest",
    ingest: {
      sites: ["nosalty", "aprosef", "mindmegette"],
      language_id: 1,
      retry_delay_seconds: 2,
      max_skips: 25,
    },
    scrapers: {
      nosalty: { client: { dump_dir: "resty/nosalty" } },
    },
  },
  server: {
    port: 8000,
    schedule: "",
  },
}
`

const devLiveSites = `{
  sites: ["nosalty", "aprosef", "mindmegette"],
  recipes: 3,
}
`

const devTelemetry = `{
  otlp: {
    // traces: { grpc_endpoint: "http://localhost:4317" },
    // metrics: { http_endpoint: "http://localhost:4318/v1/metrics" },
    metric_interval_seconds: 10,
  },
}
`

func CreateRecipesDB() error {
	path, err := devenv.ResolvePath("<dev_state>/recipes.db")
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	database, err := dbconfig.Config{File: path}.Open(context.Background(), db.Schema)
	if err != nil {
		return err
	}
	return database.Close()
}

func writeIfMissing(name, contents string) error {
	path, err := devenv.ResolvePath("<dev_state>/" + name)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("config already exists at", path)
		return nil
	}
	fmt.Println("writing", path)
	return os.WriteFile(path, []byte(contents), 0666)
}

func WriteConfigs() error {
	err := writeIfMissing("config.json5", devConfig)
	if err != nil {
		return err
	}
	err = writeIfMissing("telemetry.json5", devTelemetry)
	if err != nil {
		return err
	}
	return writeIfMissing("live_sites.json5", devLiveSites)
}

func PrintConfigLocations() {
	slog.Info("run the server or the cli from dev/.state to use the dev config, the live scraper tests read dev/.state/live_sites.json5.")
}
