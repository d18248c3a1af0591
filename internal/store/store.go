// Package store persists recipes and the canonical ingredient vocabulary.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"recipes-backend/internal/assert"
	"recipes-backend/internal/components/chrono"
	"recipes-backend/internal/db"
	"recipes-backend/internal/ingest"
	"recipes-backend/internal/resolve"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("internal/store")

type Store struct {
	db    *sql.DB
	qry   *db.Queries
	clock chrono.TimeAPI
}

func New(database *sql.DB, clock chrono.TimeAPI) Store {
	assert.NotNil(database)
	assert.NotNil(clock)
	return Store{
		db:    database,
		qry:   db.New(database),
		clock: clock,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// SaveRecipe stores the recipe with its ingredients in one transaction,
// replacing a previous recipe with the same url.
func (s Store) SaveRecipe(ctx context.Context, recipe ingest.RecipeRecord) (int64, error) {
	ctx, span := tracer.Start(ctx, "SaveRecipe")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", recipe.Url),
		attribute.Int("ingredients", len(recipe.Ingredients)),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fail(span, err)
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	id, err := txqry.UpsertRecipe(ctx, db.UpsertRecipeParams{
		Url:       recipe.Url,
		Name:      recipe.Name,
		Servings:  int64(recipe.Servings),
		Source:    recipe.Source,
		ScrapedAt: s.clock.Now().Unix(),
	})
	if err != nil {
		return 0, fail(span, fmt.Errorf("upsert recipe: %w", err))
	}
	err = txqry.DeleteRecipeIngredients(ctx, id)
	if err != nil {
		return 0, fail(span, fmt.Errorf("delete previous ingredients: %w", err))
	}
	for i, ingredient := range recipe.Ingredients {
		err = txqry.CreateRecipeIngredient(ctx, db.CreateRecipeIngredientParams{
			RecipeID:     id,
			Position:     int64(i),
			IngredientID: ingredient.IngredientID,
			ScrapedName:  ingredient.ScrapedName,
			Measure:      ingredient.Measure,
			Amount:       ingredient.Amount,
		})
		if err != nil {
			return 0, fail(span, fmt.Errorf("create ingredient %q: %w", ingredient.ScrapedName, err))
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, fail(span, err)
	}
	return id, nil
}

func (s Store) FindCanonicalNamesByLanguage(ctx context.Context, languageId int64) ([]resolve.Candidate, error) {
	ctx, span := tracer.Start(ctx, "FindCanonicalNamesByLanguage")
	defer span.End()

	rows, err := s.qry.GetCanonicalNamesByLanguage(ctx, languageId)
	if err != nil {
		return nil, fail(span, err)
	}
	out := make([]resolve.Candidate, len(rows))
	for i, r := range rows {
		out[i] = resolve.Candidate{IngredientID: r.IngredientID, Name: r.Name}
	}
	return out, nil
}

func (s Store) FindAliasesByLanguage(ctx context.Context, languageId int64) ([]resolve.Candidate, error) {
	ctx, span := tracer.Start(ctx, "FindAliasesByLanguage")
	defer span.End()

	rows, err := s.qry.GetAliasesByLanguage(ctx, languageId)
	if err != nil {
		return nil, fail(span, err)
	}
	out := make([]resolve.Candidate, len(rows))
	for i, r := range rows {
		out[i] = resolve.Candidate{IngredientID: r.IngredientID, Name: r.Name}
	}
	return out, nil
}

// SeedIngredients creates an ingredient for every name that has no
// ingredient in the language yet.
func (s Store) SeedIngredients(ctx context.Context, languageId int64, names []string) (int, error) {
	ctx, span := tracer.Start(ctx, "SeedIngredients")
	defer span.End()
	span.SetAttributes(attribute.Int("names", len(names)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fail(span, err)
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	now := s.clock.Now().Unix()
	created := 0
	for _, name := range names {
		_, err := txqry.GetIngredientIdByName(ctx, db.GetIngredientIdByNameParams{
			LanguageID: languageId,
			Name:       name,
		})
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fail(span, err)
		}

		id, err := txqry.CreateIngredient(ctx, now)
		if err != nil {
			return 0, fail(span, err)
		}
		err = txqry.CreateIngredientName(ctx, db.CreateIngredientNameParams{
			IngredientID: id,
			LanguageID:   languageId,
			Name:         name,
		})
		if err != nil {
			return 0, fail(span, fmt.Errorf("create name %q: %w", name, err))
		}
		created++
	}

	err = tx.Commit()
	if err != nil {
		return 0, fail(span, err)
	}
	return created, nil
}

func (s Store) AddAlias(ctx context.Context, ingredientId, languageId int64, alias string) error {
	ctx, span := tracer.Start(ctx, "AddAlias")
	defer span.End()

	err := s.qry.CreateIngredientAlias(ctx, db.CreateIngredientAliasParams{
		IngredientID: ingredientId,
		LanguageID:   languageId,
		Name:         resolve.Normalize(alias),
	})
	if err != nil {
		return fail(span, err)
	}
	return nil
}

// IngredientId returns the ingredient with the exact canonical name.
func (s Store) IngredientId(ctx context.Context, languageId int64, name string) (int64, bool, error) {
	id, err := s.qry.GetIngredientIdByName(ctx, db.GetIngredientIdByNameParams{
		LanguageID: languageId,
		Name:       resolve.Normalize(name),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s Store) LanguageId(ctx context.Context, code string) (int64, error) {
	language, err := s.qry.GetLanguageByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("unknown language %q", code)
	}
	if err != nil {
		return 0, err
	}
	return language.ID, nil
}

type RecipeIngredient struct {
	IngredientID  int64
	CanonicalName string
	ScrapedName   string
	Measure       string
	Amount        float64
}

type Recipe struct {
	ID          int64
	Url         string
	Name        string
	Servings    int
	Source      string
	ScrapedAt   int64
	Ingredients []RecipeIngredient
}

// GetRecipe returns the recipe stored for url with the canonical names of
// its ingredients in the given language.
func (s Store) GetRecipe(ctx context.Context, url string, languageId int64) (Recipe, bool, error) {
	ctx, span := tracer.Start(ctx, "GetRecipe")
	defer span.End()

	row, err := s.qry.GetRecipeByUrl(ctx, url)
	if errors.Is(err, sql.ErrNoRows) {
		return Recipe{}, false, nil
	}
	if err != nil {
		return Recipe{}, false, fail(span, err)
	}

	ingredients, err := s.qry.GetRecipeIngredients(ctx, db.GetRecipeIngredientsParams{
		LanguageID: languageId,
		RecipeID:   row.ID,
	})
	if err != nil {
		return Recipe{}, false, fail(span, err)
	}

	recipe := Recipe{
		ID:        row.ID,
		Url:       row.Url,
		Name:      row.Name,
		Servings:  int(row.Servings),
		Source:    row.Source,
		ScrapedAt: row.ScrapedAt,
	}
	for _, ingredient := range ingredients {
		recipe.Ingredients = append(recipe.Ingredients, RecipeIngredient{
			IngredientID:  ingredient.IngredientID,
			CanonicalName: ingredient.CanonicalName,
			ScrapedName:   ingredient.ScrapedName,
			Measure:       ingredient.Measure,
			Amount:        ingredient.Amount,
		})
	}
	return recipe, true, nil
}

func (s Store) CountRecipes(ctx context.Context) (int64, error) {
	return s.qry.CountRecipes(ctx)
}

// CountRecipesBySource returns the number of stored recipes per source site.
func (s Store) CountRecipesBySource(ctx context.Context) (map[string]int64, error) {
	rows, err := s.qry.CountRecipesBySource(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Source] = r.Count
	}
	return out, nil
}
