package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"recipes-backend/internal/admin"
	"recipes-backend/internal/app"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/lib/configutil"
	"recipes-backend/lib/serviceutil"
	libtelemetry "recipes-backend/lib/telemetry"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
)

var (
	configPath  *string
	serverUrl   *string
	accessToken *string
	verbose     *bool
	languageId  *int64
)

// fileConfig is the part of the server's config.json5 used in local mode.
type fileConfig struct {
	App app.Config `json:"app"`
}

// state is set up before every command runs.
var state struct {
	api       admin.API
	local     *app.App
	telemetry libtelemetry.Telemetry
}

func init() {
	flags := rootCmd.PersistentFlags()
	configPath = flags.String("config", "config.json5", "The config file used when running locally.")
	serverUrl = flags.String("server", os.Getenv("RECIPES_SERVER"), "Base url of a recipes server, runs locally when empty.")
	accessToken = flags.String("token", os.Getenv("RECIPES_TOKEN"), "Access token of the recipes server.")
	verbose = flags.BoolP("verbose", "v", false, "Enable verbose logging.")
	languageId = flags.Int64("language", 0, "Language id of ingredient names, 0 uses the configured default.")
}

var rootCmd = &cobra.Command{
	Use:   "recipes-cli",
	Short: "recipes-cli ingests recipes from cooking sites and manages the ingredient vocabulary.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(*verbose)
		tel, err := libtelemetry.SetupFromEnv(cmd.Context(), "recipes-cli")
		if err != nil {
			serviceutil.Fatal("setup telemetry", err)
		}
		state.telemetry = tel

		if *serverUrl != "" {
			slog.Debug("using remote server", "url", *serverUrl)
			state.api = admin.NewClient(
				http.DefaultClient,
				*serverUrl,
				connect.WithInterceptors(serviceutil.ProvideAccessTokenInterceptor(*accessToken)),
			)
			return
		}

		cfg, err := configutil.ReadConfig[fileConfig](*configPath)
		if os.IsNotExist(err) {
			slog.Warn("config file not found, using defaults", "path", *configPath)
			err = nil
		}
		if err != nil {
			serviceutil.Fatal("read config", err)
		}
		// interrupts stop runs through the API so the current recipe finishes
		local, err := app.New(context.WithoutCancel(cmd.Context()), cfg.App, telemetry.SlogAPI{})
		if err != nil {
			serviceutil.Fatal("initialize", err)
		}
		state.local = &local
		state.api = admin.Local{Service: local.Service}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if state.local != nil {
			state.local.Close()
		}
		state.telemetry.Shutdown(context.Background())
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
