package commands

import (
	"fmt"
	"os"
	"recipes-backend/internal/admin"
	"recipes-backend/lib/serviceutil"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recipeCmd)
}

var recipeCmd = &cobra.Command{
	Use:   "recipe <url>",
	Short: "Prints a stored recipe with its resolved ingredients.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := state.api.GetRecipe(cmd.Context(), &admin.GetRecipeRequest{
			Url:        args[0],
			LanguageId: *languageId,
		})
		if err != nil {
			serviceutil.Fatal("get recipe", err)
		}
		if !res.Found {
			fmt.Printf("No recipe is stored for %s.\n", args[0])
			os.Exit(1)
		}

		recipe := res.Recipe
		fmt.Printf(
			"%s (%s, %d servings, scraped %s)\n",
			recipe.Name,
			recipe.Source,
			recipe.Servings,
			time.Unix(recipe.ScrapedAt, 0).Format(time.DateTime),
		)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Amount", "Measure", "Scraped name", "Ingredient"})
		for _, ingredient := range recipe.Ingredients {
			t.AppendRow(table.Row{
				strconv.FormatFloat(ingredient.Amount, 'f', -1, 64),
				ingredient.Measure,
				ingredient.ScrapedName,
				fmt.Sprintf("%s (%d)", ingredient.CanonicalName, ingredient.IngredientID),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
