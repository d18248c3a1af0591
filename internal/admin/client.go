package admin

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote admin service.
type Client struct {
	startIngestion    *connect.Client[StartIngestionRequest, StartIngestionResponse]
	getStatus         *connect.Client[GetStatusRequest, GetStatusResponse]
	stopIngestion     *connect.Client[StopIngestionRequest, StopIngestionResponse]
	seedIngredients   *connect.Client[SeedIngredientsRequest, SeedIngredientsResponse]
	resolveIngredient *connect.Client[ResolveIngredientRequest, ResolveIngredientResponse]
	addAlias          *connect.Client[AddAliasRequest, AddAliasResponse]
	listIngredients   *connect.Client[ListIngredientsRequest, ListIngredientsResponse]
	getRecipe         *connect.Client[GetRecipeRequest, GetRecipeResponse]
	getStats          *connect.Client[GetStatsRequest, GetStatsResponse]
}

func NewClient(httpClient connect.HTTPClient, baseUrl string, opts ...connect.ClientOption) Client {
	baseUrl = strings.TrimRight(baseUrl, "/")
	opts = append(opts, connect.WithCodec(jsonCodec{}))
	return Client{
		startIngestion:    connect.NewClient[StartIngestionRequest, StartIngestionResponse](httpClient, baseUrl+StartIngestionProcedure, opts...),
		getStatus:         connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseUrl+GetStatusProcedure, opts...),
		stopIngestion:     connect.NewClient[StopIngestionRequest, StopIngestionResponse](httpClient, baseUrl+StopIngestionProcedure, opts...),
		seedIngredients:   connect.NewClient[SeedIngredientsRequest, SeedIngredientsResponse](httpClient, baseUrl+SeedIngredientsProcedure, opts...),
		resolveIngredient: connect.NewClient[ResolveIngredientRequest, ResolveIngredientResponse](httpClient, baseUrl+ResolveIngredientProcedure, opts...),
		addAlias:          connect.NewClient[AddAliasRequest, AddAliasResponse](httpClient, baseUrl+AddAliasProcedure, opts...),
		listIngredients:   connect.NewClient[ListIngredientsRequest, ListIngredientsResponse](httpClient, baseUrl+ListIngredientsProcedure, opts...),
		getRecipe:         connect.NewClient[GetRecipeRequest, GetRecipeResponse](httpClient, baseUrl+GetRecipeProcedure, opts...),
		getStats:          connect.NewClient[GetStatsRequest, GetStatsResponse](httpClient, baseUrl+GetStatsProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c Client) StartIngestion(ctx context.Context, req *StartIngestionRequest) (*StartIngestionResponse, error) {
	return call(ctx, c.startIngestion, req)
}

func (c Client) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	return call(ctx, c.getStatus, &GetStatusRequest{})
}

func (c Client) StopIngestion(ctx context.Context) (*StopIngestionResponse, error) {
	return call(ctx, c.stopIngestion, &StopIngestionRequest{})
}

func (c Client) SeedIngredients(ctx context.Context, req *SeedIngredientsRequest) (*SeedIngredientsResponse, error) {
	return call(ctx, c.seedIngredients, req)
}

func (c Client) ResolveIngredient(ctx context.Context, req *ResolveIngredientRequest) (*ResolveIngredientResponse, error) {
	return call(ctx, c.resolveIngredient, req)
}

func (c Client) AddAlias(ctx context.Context, req *AddAliasRequest) (*AddAliasResponse, error) {
	return call(ctx, c.addAlias, req)
}

func (c Client) ListIngredients(ctx context.Context, req *ListIngredientsRequest) (*ListIngredientsResponse, error) {
	return call(ctx, c.listIngredients, req)
}

func (c Client) GetRecipe(ctx context.Context, req *GetRecipeRequest) (*GetRecipeResponse, error) {
	return call(ctx, c.getRecipe, req)
}

func (c Client) GetStats(ctx context.Context) (*GetStatsResponse, error) {
	return call(ctx, c.getStats, &GetStatsRequest{})
}
