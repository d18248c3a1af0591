package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/db"
	"recipes-backend/internal/ingest"
	"recipes-backend/internal/scrapers/sites"
	"recipes-backend/internal/scraping"
	"recipes-backend/internal/store"
	"recipes-backend/lib/serviceutil"
	libtelemetry "recipes-backend/lib/telemetry"
	"recipes-backend/lib/testutil"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
)

// staticAdapter serves its recipes on a single page. When gate is set the
// page is only served once the gate is closed.
type staticAdapter struct {
	recipes []scraping.ScrapedRecipe
	gate    chan struct{}
}

func (a staticAdapter) FirstPage() int {
	return 0
}

func (a staticAdapter) FetchPage(ctx context.Context, page int) ([]scraping.ScrapedRecipe, error) {
	if page > 0 {
		return nil, nil
	}
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return a.recipes, nil
}

func (a staticAdapter) Extract(ctx context.Context, recipe scraping.ScrapedRecipe) (*scraping.ScrapedRecipe, error) {
	return &recipe, nil
}

func recipe(url string, ingredients ...string) scraping.ScrapedRecipe {
	out := scraping.ScrapedRecipe{Url: url, Name: url, Servings: 2}
	for _, name := range ingredients {
		out.Ingredients = append(out.Ingredients, scraping.ScrapedIngredient{
			Name:    name,
			Measure: "g",
			Amount:  100,
		})
	}
	return out
}

type fakeCatalog struct{}

func (fakeCatalog) Ingredients(ctx context.Context) ([]scraping.ScrapedIngredient, error) {
	return []scraping.ScrapedIngredient{
		{Name: "Cukor", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "liszt", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "tojás", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "cukor ", Measure: scraping.MEASURE_UNKNOWN},
	}, nil
}

type recordingNotifier struct {
	mutex   sync.Mutex
	reports []ingest.RunReport
}

func (n *recordingNotifier) NotifyRun(ctx context.Context, report ingest.RunReport) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.reports = append(n.reports, report)
	return nil
}

type fixture struct {
	service  *Service
	client   Client
	notifier *recordingNotifier
	gate     chan struct{}
}

func setup(t *testing.T, token string) fixture {
	t.Cleanup(libtelemetry.SetupForTesting(t, "test:internal/admin"))
	database := testutil.SetupDB(t, db.Schema)
	recipeStore := store.New(database, testutil.Clock())

	gate := make(chan struct{})
	registry := sites.NewRegistry(sites.Config{})
	registry.Register("test_site", func(startPage int, tel telemetry.API) (scraping.Visitor, error) {
		adapter := staticAdapter{recipes: []scraping.ScrapedRecipe{
			recipe("palacsinta", "liszt", "tojás", "cukor"),
			recipe("rantotta", "tojás"),
			recipe("ismeretlen", "sárkánygyümölcs"),
		}}
		visitor := scraping.NewPagedVisitor[scraping.ScrapedRecipe]("test_site", adapter, tel)
		visitor.Seek(startPage)
		return visitor, nil
	})
	registry.Register("slow_site", func(startPage int, tel telemetry.API) (scraping.Visitor, error) {
		adapter := staticAdapter{
			recipes: []scraping.ScrapedRecipe{recipe("lassu", "liszt")},
			gate:    gate,
		}
		return scraping.NewPagedVisitor[scraping.ScrapedRecipe]("slow_site", adapter, tel), nil
	})

	notifier := &recordingNotifier{}
	service := NewService(
		context.Background(),
		registry,
		recipeStore,
		fakeCatalog{},
		Options{
			Sites:    []string{"test_site"},
			Notifier: notifier,
		},
		testutil.Clock(),
		&telemetry.Recorder{Forward: telemetry.SlogAPI{}},
	)

	path, handler := NewHandler(service, connect.WithInterceptors(serviceutil.VerifyAccessTokenInterceptor(token)))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(
		server.Client(),
		server.URL,
		connect.WithInterceptors(serviceutil.ProvideAccessTokenInterceptor(token)),
	)
	return fixture{
		service:  service,
		client:   client,
		notifier: notifier,
		gate:     gate,
	}
}

func TestIngestionRun(t *testing.T) {
	f := setup(t, "")
	ctx := context.Background()

	seeded, err := f.client.SeedIngredients(ctx, &SeedIngredientsRequest{LanguageId: 1})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SeedIngredientsResponse{Scraped: 4, Unique: 3, Created: 3}, *seeded)

	started, err := f.client.StartIngestion(ctx, &StartIngestionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	require.NotEmpty(t, started.RunId)
	require.Equal(t, []string{"test_site"}, started.Sites)

	report, err := f.service.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, started.RunId, report.Id)
	require.Len(t, report.Summaries, 1)
	require.Equal(t, 2, report.Summaries[0].Persisted)
	require.Equal(t, 1, report.Summaries[0].Dropped)

	status, err := f.client.GetStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, started.RunId, status.RunId)
	require.False(t, status.Working)
	require.Len(t, status.Sites, 1)
	require.Equal(t, "test_site", status.Sites[0].Site)
	require.False(t, status.Sites[0].Error)
	require.Equal(t, 2, status.Sites[0].Summary.Persisted)

	require.Len(t, f.notifier.reports, 1)
	require.Equal(t, started.RunId, f.notifier.reports[0].Id)

	recipe, err := f.client.GetRecipe(ctx, &GetRecipeRequest{Url: "palacsinta"})
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, recipe.Found)
	require.Equal(t, "test_site", recipe.Recipe.Source)
	var names []string
	for _, ingredient := range recipe.Recipe.Ingredients {
		names = append(names, ingredient.CanonicalName)
	}
	require.Equal(t, []string{"liszt", "tojás", "cukor"}, names)

	recipe, err = f.client.GetRecipe(ctx, &GetRecipeRequest{Url: "ismeretlen"})
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, recipe.Found)

	stats, err := f.client.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, map[string]int64{"test_site": 2}, stats.RecipesBySource)
}

func TestLocal(t *testing.T) {
	f := setup(t, "")
	ctx := context.Background()
	local := Local{Service: f.service}

	_, err := local.SeedIngredients(ctx, &SeedIngredientsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = local.AddAlias(ctx, &AddAliasRequest{CanonicalName: "cukor", Alias: "porcukor"})
	if err != nil {
		t.Fatal(err)
	}

	listed, err := local.ListIngredients(ctx, &ListIngredientsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, listed.Ingredients, 3)
	require.Equal(t, "cukor", listed.Ingredients[0].Name)
	require.Equal(t, []string{"porcukor"}, listed.Ingredients[0].Aliases)
	require.Empty(t, listed.Ingredients[1].Aliases)

	_, err = local.StartIngestion(ctx, &StartIngestionRequest{Sites: []string{"unknown"}})
	require.ErrorAs(t, err, &sites.UnknownSiteError{})
}

func TestStartValidation(t *testing.T) {
	f := setup(t, "")
	ctx := context.Background()

	_, err := f.client.StartIngestion(ctx, &StartIngestionRequest{Sites: []string{"unknown"}})
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = f.client.StartIngestion(ctx, &StartIngestionRequest{Sites: []string{"test_site"}, StartPage: -1})
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestRunInProgress(t *testing.T) {
	f := setup(t, "")
	ctx := context.Background()

	_, err := f.client.StartIngestion(ctx, &StartIngestionRequest{Sites: []string{"slow_site"}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.client.StartIngestion(ctx, &StartIngestionRequest{Sites: []string{"test_site"}})
	require.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	status, err := f.client.GetStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, status.Working)

	stopped, err := f.client.StopIngestion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, stopped.Stopped)
	close(f.gate)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	report, err := f.service.Wait(waitCtx)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, report.Summaries[0].Stopped)

	stopped, err = f.client.StopIngestion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, stopped.Stopped)
}

func TestResolveAndAlias(t *testing.T) {
	f := setup(t, "")
	ctx := context.Background()

	_, err := f.client.SeedIngredients(ctx, &SeedIngredientsRequest{})
	if err != nil {
		t.Fatal(err)
	}

	resolved, err := f.client.ResolveIngredient(ctx, &ResolveIngredientRequest{Name: " Cukor"})
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, resolved.Found)
	require.Equal(t, "cukor", resolved.CanonicalName)

	resolved, err = f.client.ResolveIngredient(ctx, &ResolveIngredientRequest{Name: "kristálycukor"})
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, resolved.Found)

	_, err = f.client.AddAlias(ctx, &AddAliasRequest{CanonicalName: "sárkánygyümölcs", Alias: "pitaja"})
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	added, err := f.client.AddAlias(ctx, &AddAliasRequest{CanonicalName: "cukor", Alias: "Kristálycukor"})
	if err != nil {
		t.Fatal(err)
	}

	resolved, err = f.client.ResolveIngredient(ctx, &ResolveIngredientRequest{Name: "kristálycukor"})
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, resolved.Found)
	require.True(t, resolved.ByAlias)
	require.Equal(t, added.IngredientId, resolved.IngredientId)
}

func TestAccessToken(t *testing.T) {
	f := setup(t, "secret")
	ctx := context.Background()

	_, err := f.client.GetStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(func() http.Handler {
		path, handler := NewHandler(f.service, connect.WithInterceptors(serviceutil.VerifyAccessTokenInterceptor("secret")))
		mux := http.NewServeMux()
		mux.Handle(path, handler)
		return mux
	}())
	defer server.Close()

	anonymous := NewClient(server.Client(), server.URL)
	_, err = anonymous.GetStatus(ctx)
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}
