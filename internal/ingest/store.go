package ingest

import (
	"context"
	"recipes-backend/internal/resolve"
)

// IngredientRecord is one resolved ingredient of a recipe together with the
// quantity that was scraped for it.
type IngredientRecord struct {
	IngredientID int64
	ScrapedName  string
	Measure      string
	Amount       float64
}

type RecipeRecord struct {
	Source      string
	Url         string
	Name        string
	Servings    int
	Ingredients []IngredientRecord
}

// Store is what the loader needs from persistence. Saving a url that
// already exists replaces the previous recipe.
type Store interface {
	resolve.Source
	SaveRecipe(ctx context.Context, recipe RecipeRecord) (int64, error)
}
