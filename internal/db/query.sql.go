package db

import (
	"context"
)

const countRecipes = `-- name: CountRecipes :one
select count(*) from recipe
`

func (q *Queries) CountRecipes(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countRecipes)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countRecipesBySource = `-- name: CountRecipesBySource :many
select source, count(*) as count from recipe
group by source
order by source
`

type CountRecipesBySourceRow struct {
	Source string
	Count  int64
}

func (q *Queries) CountRecipesBySource(ctx context.Context) ([]CountRecipesBySourceRow, error) {
	rows, err := q.db.QueryContext(ctx, countRecipesBySource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountRecipesBySourceRow
	for rows.Next() {
		var i CountRecipesBySourceRow
		if err := rows.Scan(&i.Source, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createIngredient = `-- name: CreateIngredient :one
insert into ingredient (created_at) values (?)
returning id
`

func (q *Queries) CreateIngredient(ctx context.Context, createdAt int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, createIngredient, createdAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createIngredientAlias = `-- name: CreateIngredientAlias :exec
insert into ingredient_alias (ingredient_id, language_id, name)
values (?, ?, ?)
on conflict do nothing
`

type CreateIngredientAliasParams struct {
	IngredientID int64
	LanguageID   int64
	Name         string
}

func (q *Queries) CreateIngredientAlias(ctx context.Context, arg CreateIngredientAliasParams) error {
	_, err := q.db.ExecContext(ctx, createIngredientAlias, arg.IngredientID, arg.LanguageID, arg.Name)
	return err
}

const createIngredientName = `-- name: CreateIngredientName :exec
insert into ingredient_name (ingredient_id, language_id, name)
values (?, ?, ?)
`

type CreateIngredientNameParams struct {
	IngredientID int64
	LanguageID   int64
	Name         string
}

func (q *Queries) CreateIngredientName(ctx context.Context, arg CreateIngredientNameParams) error {
	_, err := q.db.ExecContext(ctx, createIngredientName, arg.IngredientID, arg.LanguageID, arg.Name)
	return err
}

const createRecipeIngredient = `-- name: CreateRecipeIngredient :exec
insert into recipe_ingredient (recipe_id, position, ingredient_id, scraped_name, measure, amount)
values (?, ?, ?, ?, ?, ?)
`

type CreateRecipeIngredientParams struct {
	RecipeID     int64
	Position     int64
	IngredientID int64
	ScrapedName  string
	Measure      string
	Amount       float64
}

func (q *Queries) CreateRecipeIngredient(ctx context.Context, arg CreateRecipeIngredientParams) error {
	_, err := q.db.ExecContext(ctx, createRecipeIngredient,
		arg.RecipeID,
		arg.Position,
		arg.IngredientID,
		arg.ScrapedName,
		arg.Measure,
		arg.Amount,
	)
	return err
}

const deleteRecipeIngredients = `-- name: DeleteRecipeIngredients :exec
delete from recipe_ingredient where recipe_id = ?
`

func (q *Queries) DeleteRecipeIngredients(ctx context.Context, recipeID int64) error {
	_, err := q.db.ExecContext(ctx, deleteRecipeIngredients, recipeID)
	return err
}

const getAliasesByLanguage = `-- name: GetAliasesByLanguage :many
select ingredient_id, name from ingredient_alias
where language_id = ?
order by ingredient_id, name
`

type GetAliasesByLanguageRow struct {
	IngredientID int64
	Name         string
}

func (q *Queries) GetAliasesByLanguage(ctx context.Context, languageID int64) ([]GetAliasesByLanguageRow, error) {
	rows, err := q.db.QueryContext(ctx, getAliasesByLanguage, languageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetAliasesByLanguageRow
	for rows.Next() {
		var i GetAliasesByLanguageRow
		if err := rows.Scan(&i.IngredientID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCanonicalNamesByLanguage = `-- name: GetCanonicalNamesByLanguage :many
select ingredient_id, name from ingredient_name
where language_id = ?
order by ingredient_id
`

type GetCanonicalNamesByLanguageRow struct {
	IngredientID int64
	Name         string
}

func (q *Queries) GetCanonicalNamesByLanguage(ctx context.Context, languageID int64) ([]GetCanonicalNamesByLanguageRow, error) {
	rows, err := q.db.QueryContext(ctx, getCanonicalNamesByLanguage, languageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetCanonicalNamesByLanguageRow
	for rows.Next() {
		var i GetCanonicalNamesByLanguageRow
		if err := rows.Scan(&i.IngredientID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getIngredientIdByName = `-- name: GetIngredientIdByName :one
select ingredient_id from ingredient_name
where language_id = ? and name = ?
`

type GetIngredientIdByNameParams struct {
	LanguageID int64
	Name       string
}

func (q *Queries) GetIngredientIdByName(ctx context.Context, arg GetIngredientIdByNameParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, getIngredientIdByName, arg.LanguageID, arg.Name)
	var ingredient_id int64
	err := row.Scan(&ingredient_id)
	return ingredient_id, err
}

const getLanguageByCode = `-- name: GetLanguageByCode :one
select id, code from language where code = ?
`

func (q *Queries) GetLanguageByCode(ctx context.Context, code string) (Language, error) {
	row := q.db.QueryRowContext(ctx, getLanguageByCode, code)
	var i Language
	err := row.Scan(&i.ID, &i.Code)
	return i, err
}

const getRecipeByUrl = `-- name: GetRecipeByUrl :one
select id, url, name, servings, source, scraped_at from recipe where url = ?
`

func (q *Queries) GetRecipeByUrl(ctx context.Context, url string) (Recipe, error) {
	row := q.db.QueryRowContext(ctx, getRecipeByUrl, url)
	var i Recipe
	err := row.Scan(
		&i.ID,
		&i.Url,
		&i.Name,
		&i.Servings,
		&i.Source,
		&i.ScrapedAt,
	)
	return i, err
}

const getRecipeIngredients = `-- name: GetRecipeIngredients :many
select recipe_ingredient.recipe_id, recipe_ingredient.position, recipe_ingredient.ingredient_id, recipe_ingredient.scraped_name, recipe_ingredient.measure, recipe_ingredient.amount, coalesce(ingredient_name.name, '') as canonical_name
from recipe_ingredient
left join ingredient_name on ingredient_name.ingredient_id = recipe_ingredient.ingredient_id
    and ingredient_name.language_id = ?
where recipe_ingredient.recipe_id = ?
order by recipe_ingredient.position
`

type GetRecipeIngredientsParams struct {
	LanguageID int64
	RecipeID   int64
}

type GetRecipeIngredientsRow struct {
	RecipeID      int64
	Position      int64
	IngredientID  int64
	ScrapedName   string
	Measure       string
	Amount        float64
	CanonicalName string
}

func (q *Queries) GetRecipeIngredients(ctx context.Context, arg GetRecipeIngredientsParams) ([]GetRecipeIngredientsRow, error) {
	rows, err := q.db.QueryContext(ctx, getRecipeIngredients, arg.LanguageID, arg.RecipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetRecipeIngredientsRow
	for rows.Next() {
		var i GetRecipeIngredientsRow
		if err := rows.Scan(
			&i.RecipeID,
			&i.Position,
			&i.IngredientID,
			&i.ScrapedName,
			&i.Measure,
			&i.Amount,
			&i.CanonicalName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertRecipe = `-- name: UpsertRecipe :one
insert into recipe (url, name, servings, source, scraped_at)
values (?, ?, ?, ?, ?)
on conflict (url) do update set
    name = excluded.name,
    servings = excluded.servings,
    source = excluded.source,
    scraped_at = excluded.scraped_at
returning id
`

type UpsertRecipeParams struct {
	Url       string
	Name      string
	Servings  int64
	Source    string
	ScrapedAt int64
}

func (q *Queries) UpsertRecipe(ctx context.Context, arg UpsertRecipeParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertRecipe,
		arg.Url,
		arg.Name,
		arg.Servings,
		arg.Source,
		arg.ScrapedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}
