package admin

import (
	"recipes-backend/internal/ingest"
	"recipes-backend/internal/store"
)

type StartIngestionRequest struct {
	// Sites defaults to the configured sites when empty.
	Sites      []string `json:"sites"`
	StartPage  int      `json:"start_page"`
	LanguageId int64    `json:"language_id"`
}

type StartIngestionResponse struct {
	RunId string   `json:"run_id"`
	Sites []string `json:"sites"`
}

type GetStatusRequest struct{}

type SiteStatus struct {
	Site    string         `json:"site"`
	Working bool           `json:"working"`
	Error   bool           `json:"error"`
	Summary ingest.Summary `json:"summary"`
}

type GetStatusResponse struct {
	RunId   string       `json:"run_id"`
	Working bool         `json:"working"`
	Sites   []SiteStatus `json:"sites"`
}

type StopIngestionRequest struct{}

type StopIngestionResponse struct {
	Stopped bool `json:"stopped"`
}

type SeedIngredientsRequest struct {
	LanguageId int64 `json:"language_id"`
}

type SeedIngredientsResponse struct {
	Scraped int `json:"scraped"`
	Unique  int `json:"unique"`
	Created int `json:"created"`
}

type ResolveIngredientRequest struct {
	Name       string `json:"name"`
	LanguageId int64  `json:"language_id"`
}

type ResolveIngredientResponse struct {
	Found         bool    `json:"found"`
	IngredientId  int64   `json:"ingredient_id"`
	CanonicalName string  `json:"canonical_name"`
	Score         float64 `json:"score"`
	ByAlias       bool    `json:"by_alias"`
}

type AddAliasRequest struct {
	CanonicalName string `json:"canonical_name"`
	Alias         string `json:"alias"`
	LanguageId    int64  `json:"language_id"`
}

type AddAliasResponse struct {
	IngredientId int64 `json:"ingredient_id"`
}

type ListIngredientsRequest struct {
	LanguageId int64 `json:"language_id"`
}

type Ingredient struct {
	Id      int64    `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

type ListIngredientsResponse struct {
	Ingredients []Ingredient `json:"ingredients"`
}

type GetRecipeRequest struct {
	Url        string `json:"url"`
	LanguageId int64  `json:"language_id"`
}

type GetRecipeResponse struct {
	Found  bool         `json:"found"`
	Recipe store.Recipe `json:"recipe"`
}

type GetStatsRequest struct{}

type GetStatsResponse struct {
	RecipesBySource map[string]int64 `json:"recipes_by_source"`
}
