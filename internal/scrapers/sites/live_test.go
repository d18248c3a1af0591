package sites

import (
	"context"
	"os"
	devenv "recipes-backend/dev/env"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/scraping"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLiveSites scrapes a few recipes from the real sites, it only runs
// when the dev environment provides live_sites.json5.
func TestLiveSites(t *testing.T) {
	config, err := devenv.GetStateConfig[devenv.LiveSitesConfig]("live_sites.json5")
	if os.IsNotExist(err) {
		t.Skip("dev/.state/live_sites.json5 not found, run the dev setup to enable live tests")
	}
	if err != nil {
		t.Fatal(err)
	}
	if config.Recipes <= 0 {
		config.Recipes = 1
	}

	registry := NewRegistry(Config{})
	for _, site := range config.Sites {
		t.Run(site, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			tel := &telemetry.Recorder{Forward: telemetry.SlogAPI{}}
			visitor, err := registry.NewVisitor(site, 0, tel)
			if err != nil {
				t.Fatal(err)
			}
			err = visitor.Connect(ctx)
			if err != nil {
				t.Fatal(err)
			}

			var recipes []scraping.ScrapedRecipe
			for attempts := 0; len(recipes) < config.Recipes && attempts < config.Recipes*5; attempts++ {
				recipe, ok := visitor.Next(ctx)
				if ok {
					recipes = append(recipes, recipe)
					continue
				}
				if visitor.State() != scraping.STATE_ERROR {
					break
				}
				t.Log("skipping element", visitor.ErrorCode())
				visitor.Recover()
				visitor.SkipCurrentElement()
			}

			require.NotEmpty(t, recipes)
			for _, recipe := range recipes {
				t.Log(recipe)
				require.NotEmpty(t, recipe.Name)
				require.NotEmpty(t, recipe.Ingredients)
				require.Greater(t, recipe.Servings, 0)
			}
		})
	}
}
