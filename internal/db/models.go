package db

type Ingredient struct {
	ID        int64
	CreatedAt int64
}

type IngredientAlias struct {
	IngredientID int64
	LanguageID   int64
	Name         string
}

type IngredientName struct {
	IngredientID int64
	LanguageID   int64
	Name         string
}

type Language struct {
	ID   int64
	Code string
}

type Recipe struct {
	ID        int64
	Url       string
	Name      string
	Servings  int64
	Source    string
	ScrapedAt int64
}

type RecipeIngredient struct {
	RecipeID     int64
	Position     int64
	IngredientID int64
	ScrapedName  string
	Measure      string
	Amount       float64
}
