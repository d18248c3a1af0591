package admin

import "context"

// API is implemented by Client for a remote service and by Local for one
// running in the same process.
type API interface {
	StartIngestion(ctx context.Context, req *StartIngestionRequest) (*StartIngestionResponse, error)
	GetStatus(ctx context.Context) (*GetStatusResponse, error)
	StopIngestion(ctx context.Context) (*StopIngestionResponse, error)
	SeedIngredients(ctx context.Context, req *SeedIngredientsRequest) (*SeedIngredientsResponse, error)
	ResolveIngredient(ctx context.Context, req *ResolveIngredientRequest) (*ResolveIngredientResponse, error)
	AddAlias(ctx context.Context, req *AddAliasRequest) (*AddAliasResponse, error)
	ListIngredients(ctx context.Context, req *ListIngredientsRequest) (*ListIngredientsResponse, error)
	GetRecipe(ctx context.Context, req *GetRecipeRequest) (*GetRecipeResponse, error)
	GetStats(ctx context.Context) (*GetStatsResponse, error)
}

var _ API = Client{}
var _ API = Local{}

// Local calls a Service directly.
type Local struct {
	Service *Service
}

func (l Local) StartIngestion(ctx context.Context, req *StartIngestionRequest) (*StartIngestionResponse, error) {
	id, selected, err := l.Service.Start(req.Sites, req.StartPage, req.LanguageId)
	if err != nil {
		return nil, err
	}
	return &StartIngestionResponse{RunId: id, Sites: selected}, nil
}

func (l Local) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	status := l.Service.Status()
	return &status, nil
}

func (l Local) StopIngestion(ctx context.Context) (*StopIngestionResponse, error) {
	return &StopIngestionResponse{Stopped: l.Service.Stop()}, nil
}

func (l Local) SeedIngredients(ctx context.Context, req *SeedIngredientsRequest) (*SeedIngredientsResponse, error) {
	summary, err := l.Service.Seed(ctx, req.LanguageId)
	if err != nil {
		return nil, err
	}
	return &SeedIngredientsResponse{
		Scraped: summary.Scraped,
		Unique:  summary.Unique,
		Created: summary.Created,
	}, nil
}

func (l Local) ResolveIngredient(ctx context.Context, req *ResolveIngredientRequest) (*ResolveIngredientResponse, error) {
	res, err := l.Service.Resolve(ctx, req.Name, req.LanguageId)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (l Local) AddAlias(ctx context.Context, req *AddAliasRequest) (*AddAliasResponse, error) {
	id, err := l.Service.AddAlias(ctx, req.CanonicalName, req.Alias, req.LanguageId)
	if err != nil {
		return nil, err
	}
	return &AddAliasResponse{IngredientId: id}, nil
}

func (l Local) ListIngredients(ctx context.Context, req *ListIngredientsRequest) (*ListIngredientsResponse, error) {
	ingredients, err := l.Service.Ingredients(ctx, req.LanguageId)
	if err != nil {
		return nil, err
	}
	return &ListIngredientsResponse{Ingredients: ingredients}, nil
}

func (l Local) GetRecipe(ctx context.Context, req *GetRecipeRequest) (*GetRecipeResponse, error) {
	recipe, found, err := l.Service.Recipe(ctx, req.Url, req.LanguageId)
	if err != nil {
		return nil, err
	}
	return &GetRecipeResponse{Found: found, Recipe: recipe}, nil
}

func (l Local) GetStats(ctx context.Context) (*GetStatsResponse, error) {
	counts, err := l.Service.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &GetStatsResponse{RecipesBySource: counts}, nil
}
