package commands

import (
	"fmt"
	"os"
	"recipes-backend/internal/admin"
	"recipes-backend/lib/serviceutil"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	ingredientsCmd.AddCommand(ingredientsListCmd)
	ingredientsCmd.AddCommand(ingredientsResolveCmd)
	ingredientsCmd.AddCommand(ingredientsAliasCmd)
	ingredientsCmd.AddCommand(ingredientsSeedCmd)
	rootCmd.AddCommand(ingredientsCmd)
}

var ingredientsCmd = &cobra.Command{
	Use:   "ingredients",
	Short: "Manages the canonical ingredient vocabulary.",
}

var ingredientsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Scrapes the ingredient catalog and adds the names that are not known yet.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := state.api.SeedIngredients(cmd.Context(), &admin.SeedIngredientsRequest{
			LanguageId: *languageId,
		})
		if err != nil {
			serviceutil.Fatal("seed ingredients", err)
		}
		fmt.Printf("Scraped %d names (%d unique), created %d ingredients.\n", res.Scraped, res.Unique, res.Created)
	},
}

var ingredientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the canonical ingredients with their aliases.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := state.api.ListIngredients(cmd.Context(), &admin.ListIngredientsRequest{
			LanguageId: *languageId,
		})
		if err != nil {
			serviceutil.Fatal("list ingredients", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name", "Aliases"})
		for _, ingredient := range res.Ingredients {
			t.AppendRow(table.Row{ingredient.Id, ingredient.Name, strings.Join(ingredient.Aliases, ", ")})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var ingredientsResolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Shows which canonical ingredient a scraped name resolves to.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := strings.Join(args, " ")
		res, err := state.api.ResolveIngredient(cmd.Context(), &admin.ResolveIngredientRequest{
			Name:       name,
			LanguageId: *languageId,
		})
		if err != nil {
			serviceutil.Fatal("resolve ingredient", err)
		}

		via := "name"
		if res.ByAlias {
			via = "alias"
		}
		if !res.Found {
			if res.CanonicalName == "" {
				fmt.Printf("%q does not resolve, the vocabulary is empty.\n", name)
				os.Exit(1)
			}
			fmt.Printf("%q does not resolve, closest %s is %q (%d) with score %.3f.\n", name, via, res.CanonicalName, res.IngredientId, res.Score)
			os.Exit(1)
		}
		fmt.Printf("%q resolves to %q (%d) by %s with score %.3f.\n", name, res.CanonicalName, res.IngredientId, via, res.Score)
	},
}

var ingredientsAliasCmd = &cobra.Command{
	Use:   "alias <canonical name> <alias>",
	Short: "Adds an alias to a canonical ingredient.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := state.api.AddAlias(cmd.Context(), &admin.AddAliasRequest{
			CanonicalName: args[0],
			Alias:         args[1],
			LanguageId:    *languageId,
		})
		if err != nil {
			serviceutil.Fatal("add alias", err)
		}
		fmt.Printf("Added alias %q to ingredient %d.\n", args[1], res.IngredientId)
	},
}
