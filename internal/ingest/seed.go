package ingest

import (
	"context"
	"fmt"
	"recipes-backend/internal/resolve"
	"recipes-backend/internal/scraping"
)

// Catalog is a source of canonical ingredient names.
type Catalog interface {
	Ingredients(ctx context.Context) ([]scraping.ScrapedIngredient, error)
}

// Seeder creates canonical ingredients for names that are not known yet in
// the given language and returns how many were created.
type Seeder interface {
	SeedIngredients(ctx context.Context, languageId int64, names []string) (int, error)
}

type SeedSummary struct {
	Scraped int
	Unique  int
	Created int
}

// Seed reads the catalog and adds its ingredients to the canonical
// vocabulary. Names are normalized and deduplicated before they are stored.
func Seed(ctx context.Context, catalog Catalog, seeder Seeder, languageId int64) (SeedSummary, error) {
	ctx, span := tracer.Start(ctx, "Seed")
	defer span.End()

	ingredients, err := catalog.Ingredients(ctx)
	if err != nil {
		return SeedSummary{}, fmt.Errorf("read ingredient catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(ingredients))
	var names []string
	for _, ingredient := range ingredients {
		name := resolve.Normalize(ingredient.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	created, err := seeder.SeedIngredients(ctx, languageId, names)
	if err != nil {
		return SeedSummary{}, fmt.Errorf("seed %d ingredients: %w", len(names), err)
	}
	return SeedSummary{
		Scraped: len(ingredients),
		Unique:  len(names),
		Created: created,
	}, nil
}
