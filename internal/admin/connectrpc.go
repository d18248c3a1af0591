package admin

import (
	"context"
	"errors"
	"net/http"
	"recipes-backend/internal/scrapers/sites"

	"connectrpc.com/connect"
)

const ServiceName = "recipes.admin.v1.AdminService"

const (
	StartIngestionProcedure    = "/" + ServiceName + "/StartIngestion"
	GetStatusProcedure         = "/" + ServiceName + "/GetStatus"
	StopIngestionProcedure     = "/" + ServiceName + "/StopIngestion"
	SeedIngredientsProcedure   = "/" + ServiceName + "/SeedIngredients"
	ResolveIngredientProcedure = "/" + ServiceName + "/ResolveIngredient"
	AddAliasProcedure          = "/" + ServiceName + "/AddAlias"
	ListIngredientsProcedure   = "/" + ServiceName + "/ListIngredients"
	GetRecipeProcedure         = "/" + ServiceName + "/GetRecipe"
	GetStatsProcedure          = "/" + ServiceName + "/GetStats"
)

// NewHandler returns the path the service is mounted on and its handler.
func NewHandler(service *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, connect.WithCodec(jsonCodec{}))
	h := handler{service: service}

	mux := http.NewServeMux()
	mux.Handle(StartIngestionProcedure, connect.NewUnaryHandler(StartIngestionProcedure, h.StartIngestion, opts...))
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, h.GetStatus, opts...))
	mux.Handle(StopIngestionProcedure, connect.NewUnaryHandler(StopIngestionProcedure, h.StopIngestion, opts...))
	mux.Handle(SeedIngredientsProcedure, connect.NewUnaryHandler(SeedIngredientsProcedure, h.SeedIngredients, opts...))
	mux.Handle(ResolveIngredientProcedure, connect.NewUnaryHandler(ResolveIngredientProcedure, h.ResolveIngredient, opts...))
	mux.Handle(AddAliasProcedure, connect.NewUnaryHandler(AddAliasProcedure, h.AddAlias, opts...))
	mux.Handle(ListIngredientsProcedure, connect.NewUnaryHandler(ListIngredientsProcedure, h.ListIngredients, opts...))
	mux.Handle(GetRecipeProcedure, connect.NewUnaryHandler(GetRecipeProcedure, h.GetRecipe, opts...))
	mux.Handle(GetStatsProcedure, connect.NewUnaryHandler(GetStatsProcedure, h.GetStats, opts...))
	return "/" + ServiceName + "/", mux
}

type handler struct {
	service *Service
}

func connectError(err error) error {
	var unknownSite sites.UnknownSiteError
	switch {
	case errors.Is(err, ErrRunInProgress):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ErrNoSites), errors.Is(err, sites.ErrNegativeStartPage), errors.As(err, &unknownSite):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrUnknownIngredient):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrNoIngredientSource):
		return connect.NewError(connect.CodeUnimplemented, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func (h handler) StartIngestion(ctx context.Context, req *connect.Request[StartIngestionRequest]) (*connect.Response[StartIngestionResponse], error) {
	id, selected, err := h.service.Start(req.Msg.Sites, req.Msg.StartPage, req.Msg.LanguageId)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&StartIngestionResponse{
		RunId: id,
		Sites: selected,
	}), nil
}

func (h handler) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error) {
	status := h.service.Status()
	return connect.NewResponse(&status), nil
}

func (h handler) StopIngestion(ctx context.Context, req *connect.Request[StopIngestionRequest]) (*connect.Response[StopIngestionResponse], error) {
	return connect.NewResponse(&StopIngestionResponse{
		Stopped: h.service.Stop(),
	}), nil
}

func (h handler) SeedIngredients(ctx context.Context, req *connect.Request[SeedIngredientsRequest]) (*connect.Response[SeedIngredientsResponse], error) {
	summary, err := h.service.Seed(ctx, req.Msg.LanguageId)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&SeedIngredientsResponse{
		Scraped: summary.Scraped,
		Unique:  summary.Unique,
		Created: summary.Created,
	}), nil
}

func (h handler) ResolveIngredient(ctx context.Context, req *connect.Request[ResolveIngredientRequest]) (*connect.Response[ResolveIngredientResponse], error) {
	res, err := h.service.Resolve(ctx, req.Msg.Name, req.Msg.LanguageId)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&res), nil
}

func (h handler) AddAlias(ctx context.Context, req *connect.Request[AddAliasRequest]) (*connect.Response[AddAliasResponse], error) {
	id, err := h.service.AddAlias(ctx, req.Msg.CanonicalName, req.Msg.Alias, req.Msg.LanguageId)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&AddAliasResponse{IngredientId: id}), nil
}

func (h handler) ListIngredients(ctx context.Context, req *connect.Request[ListIngredientsRequest]) (*connect.Response[ListIngredientsResponse], error) {
	ingredients, err := h.service.Ingredients(ctx, req.Msg.LanguageId)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&ListIngredientsResponse{Ingredients: ingredients}), nil
}

func (h handler) GetRecipe(ctx context.Context, req *connect.Request[GetRecipeRequest]) (*connect.Response[GetRecipeResponse], error) {
	recipe, found, err := h.service.Recipe(ctx, req.Msg.Url, req.Msg.LanguageId)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GetRecipeResponse{
		Found:  found,
		Recipe: recipe,
	}), nil
}

func (h handler) GetStats(ctx context.Context, req *connect.Request[GetStatsRequest]) (*connect.Response[GetStatsResponse], error) {
	counts, err := h.service.Stats(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GetStatsResponse{RecipesBySource: counts}), nil
}
