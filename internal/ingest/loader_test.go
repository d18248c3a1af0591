package ingest

import (
	"context"
	"errors"
	"fmt"
	"recipes-backend/internal/components/chrono"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/resolve"
	"recipes-backend/internal/scraping"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const always = -1

type memStore struct {
	names   []resolve.Candidate
	aliases []resolve.Candidate
	saved   []RecipeRecord
	saveErr error
}

func (s *memStore) FindCanonicalNamesByLanguage(ctx context.Context, languageId int64) ([]resolve.Candidate, error) {
	return s.names, nil
}

func (s *memStore) FindAliasesByLanguage(ctx context.Context, languageId int64) ([]resolve.Candidate, error) {
	return s.aliases, nil
}

func (s *memStore) SaveRecipe(ctx context.Context, recipe RecipeRecord) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.saved = append(s.saved, recipe)
	return int64(len(s.saved)), nil
}

func newMemStore() *memStore {
	return &memStore{
		names: []resolve.Candidate{
			{IngredientID: 1, Name: "cukor"},
			{IngredientID: 2, Name: "liszt"},
			{IngredientID: 3, Name: "tojás"},
		},
		aliases: []resolve.Candidate{
			{IngredientID: 1, Name: "kristálycukor"},
		},
	}
}

// listAdapter serves recipes in pages, failure counts of `always` never run out.
type listAdapter struct {
	pages           [][]scraping.ScrapedRecipe
	extractFailures map[string]int
	fetchFailures   map[int]int
}

func (a *listAdapter) FirstPage() int {
	return 0
}

func (a *listAdapter) FetchPage(ctx context.Context, page int) ([]scraping.ScrapedRecipe, error) {
	n := a.fetchFailures[page]
	if n != 0 {
		if n > 0 {
			a.fetchFailures[page]--
		}
		return nil, fmt.Errorf("page %d: 503 service unavailable", page)
	}
	if page >= len(a.pages) {
		return nil, nil
	}
	return a.pages[page], nil
}

func (a *listAdapter) Extract(ctx context.Context, element scraping.ScrapedRecipe) (*scraping.ScrapedRecipe, error) {
	n := a.extractFailures[element.Url]
	if n != 0 {
		if n > 0 {
			a.extractFailures[element.Url]--
		}
		return nil, errors.New("ingredient list not found")
	}
	return &element, nil
}

// countingVisitor counts the recovery protocol calls made by the loader.
type countingVisitor struct {
	scraping.Visitor
	recovers     int
	elementSkips int
	pageSkips    int
}

func (v *countingVisitor) Recover() {
	v.recovers++
	v.Visitor.Recover()
}

func (v *countingVisitor) SkipCurrentElement() {
	v.elementSkips++
	v.Visitor.SkipCurrentElement()
}

func (v *countingVisitor) SkipCurrentPage() {
	v.pageSkips++
	v.Visitor.SkipCurrentPage()
}

func recipe(url string, ingredients ...string) scraping.ScrapedRecipe {
	r := scraping.ScrapedRecipe{Url: url, Name: "recipe " + url, Servings: 4}
	for _, name := range ingredients {
		r.Ingredients = append(r.Ingredients, scraping.ScrapedIngredient{
			Name:    name,
			Measure: scraping.MEASURE_PIECE,
			Amount:  1,
		})
	}
	return r
}

func setupLoader(adapter *listAdapter, store Store, options Options) (*Loader, *countingVisitor, *telemetry.Recorder) {
	tel := &telemetry.Recorder{}
	visitor := &countingVisitor{
		Visitor: scraping.NewPagedVisitor[scraping.ScrapedRecipe]("test_site", adapter, tel),
	}
	clock := chrono.NewManualTime(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	return NewLoader(visitor, store, options, clock, tel), visitor, tel
}

func TestLoaderPersistsOnlyResolvedRecipes(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{
			{
				recipe("a", "cukor", "liszt"),
				recipe("b", "cukor", "paradicsom"),
			},
			{
				recipe("c", "Tojás", " ", "Kristálycukor"),
				recipe("d"),
			},
		},
	}
	store := newMemStore()

	var observed []string
	loader, _, tel := setupLoader(adapter, store, Options{
		LanguageId: 1,
		OnRecipeScraped: func(recipe scraping.ScrapedRecipe) {
			observed = append(observed, recipe.Url)
		},
	})

	summary := loader.Load(context.Background())
	require.Equal(t, 2, summary.Persisted)
	require.Equal(t, 2, summary.Dropped)
	require.False(t, summary.Error)
	require.False(t, loader.IsError())
	require.False(t, loader.IsWorking())
	require.Equal(t, []string{"a", "c"}, observed)

	expected := []RecipeRecord{
		{
			Source:   "test_site",
			Url:      "a",
			Name:     "recipe a",
			Servings: 4,
			Ingredients: []IngredientRecord{
				{IngredientID: 1, ScrapedName: "cukor", Measure: scraping.MEASURE_PIECE, Amount: 1},
				{IngredientID: 2, ScrapedName: "liszt", Measure: scraping.MEASURE_PIECE, Amount: 1},
			},
		},
		{
			Source:   "test_site",
			Url:      "c",
			Name:     "recipe c",
			Servings: 4,
			Ingredients: []IngredientRecord{
				{IngredientID: 3, ScrapedName: "Tojás", Measure: scraping.MEASURE_PIECE, Amount: 1},
				{IngredientID: 1, ScrapedName: "Kristálycukor", Measure: scraping.MEASURE_PIECE, Amount: 1},
			},
		},
	}
	diff := cmp.Diff(expected, store.saved)
	if diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_loader_unresolved), 2)
}

func TestLoaderSkipsElementAfterMaxRetries(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{
			{recipe("a", "cukor"), recipe("b", "liszt")},
		},
		extractFailures: map[string]int{"a": always},
	}
	store := newMemStore()
	loader, visitor, tel := setupLoader(adapter, store, Options{LanguageId: 1})

	summary := loader.Load(context.Background())
	require.Equal(t, 1, visitor.elementSkips)
	require.Equal(t, 0, visitor.pageSkips)
	require.Equal(t, MAX_RETRIES+1, visitor.recovers)
	require.Equal(t, 1, summary.SkippedElements)
	require.Equal(t, MAX_RETRIES+1, summary.Retries)
	require.Equal(t, 1, summary.Persisted)
	require.False(t, summary.Error)
	require.Equal(t, "b", store.saved[0].Url)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_loader_skip), 1)
}

func TestLoaderExhaustedAfterSkip(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{
			{recipe("a", "cukor"), recipe("b", "liszt")},
		},
		extractFailures: map[string]int{"b": always},
	}
	store := newMemStore()
	loader, visitor, tel := setupLoader(adapter, store, Options{LanguageId: 1})

	summary := loader.Load(context.Background())
	require.Equal(t, 1, visitor.elementSkips)
	require.Equal(t, 1, summary.Persisted)
	require.False(t, summary.Error)
	require.False(t, loader.IsError())
	require.False(t, visitor.HasMore())
	require.Empty(t, tel.Find(telemetry.REPORT_BROKEN, report_loader_retry))
}

func TestLoaderRecoversTransientFailure(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{
			{recipe("a", "cukor"), recipe("b", "liszt")},
		},
		extractFailures: map[string]int{"b": 2},
	}
	store := newMemStore()
	loader, visitor, _ := setupLoader(adapter, store, Options{LanguageId: 1})

	summary := loader.Load(context.Background())
	require.Equal(t, 2, visitor.recovers)
	require.Equal(t, 0, visitor.elementSkips)
	require.Equal(t, 2, summary.Persisted)
}

func TestLoaderSkipsUnreadablePage(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{
			{recipe("a", "cukor")},
			{recipe("b", "liszt")},
			{recipe("c", "tojás")},
		},
		fetchFailures: map[int]int{1: always},
	}
	store := newMemStore()
	loader, visitor, _ := setupLoader(adapter, store, Options{LanguageId: 1})

	summary := loader.Load(context.Background())
	require.Equal(t, 1, visitor.pageSkips)
	require.Equal(t, 1, summary.SkippedPages)
	require.Equal(t, 2, summary.Persisted)
	require.Equal(t, "c", store.saved[1].Url)
}

func TestLoaderConnectFailure(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{
			{recipe("a", "cukor")},
			{recipe("b", "liszt")},
		},
		fetchFailures: map[int]int{0: 3},
	}
	store := newMemStore()
	loader, visitor, tel := setupLoader(adapter, store, Options{LanguageId: 1})

	summary := loader.Load(context.Background())
	require.True(t, visitor.IsConnected())
	require.Equal(t, 0, visitor.pageSkips)
	require.Equal(t, 2, summary.Persisted)
	require.Len(t, tel.Find(telemetry.REPORT_WARNING, report_loader_connect), 1)
}

func TestLoaderBoundedSkips(t *testing.T) {
	var page []scraping.ScrapedRecipe
	failures := map[string]int{}
	for i := 0; i < 10; i++ {
		url := fmt.Sprintf("broken-%d", i)
		page = append(page, recipe(url, "cukor"))
		failures[url] = always
	}

	t.Run("bounded", func(t *testing.T) {
		adapter := &listAdapter{
			pages:           [][]scraping.ScrapedRecipe{page},
			extractFailures: copyFailures(failures),
		}
		loader, visitor, tel := setupLoader(adapter, newMemStore(), Options{LanguageId: 1, MaxSkips: 3})

		summary := loader.Load(context.Background())
		require.Equal(t, 3, visitor.elementSkips)
		require.True(t, summary.Error)
		require.True(t, loader.IsError())
		require.Len(t, tel.Find(telemetry.REPORT_BROKEN, report_loader_retry), 1)
	})

	t.Run("unbounded", func(t *testing.T) {
		adapter := &listAdapter{
			pages:           [][]scraping.ScrapedRecipe{page},
			extractFailures: copyFailures(failures),
		}
		loader, visitor, _ := setupLoader(adapter, newMemStore(), Options{LanguageId: 1})

		summary := loader.Load(context.Background())
		require.Equal(t, 10, visitor.elementSkips)
		require.False(t, summary.Error)
		require.Equal(t, 0, summary.Persisted)
	})
}

func copyFailures(failures map[string]int) map[string]int {
	out := make(map[string]int, len(failures))
	for k, v := range failures {
		out[k] = v
	}
	return out
}

func TestLoaderStop(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{
			{recipe("a", "cukor"), recipe("b", "liszt"), recipe("c", "tojás")},
		},
	}
	store := newMemStore()

	var loader *Loader
	stopped := false
	loader, _, _ = setupLoader(adapter, store, Options{
		LanguageId: 1,
		OnRecipeScraped: func(recipe scraping.ScrapedRecipe) {
			if !stopped {
				stopped = true
				loader.Stop()
			}
		},
	})

	summary := loader.Load(context.Background())
	require.True(t, summary.Stopped)
	require.Equal(t, 1, summary.Persisted)
	require.False(t, loader.IsWorking())

	// the stop request does not outlive the run it stopped
	summary = loader.Load(context.Background())
	require.False(t, summary.Stopped)
	require.Equal(t, 2, summary.Persisted)
	require.Len(t, store.saved, 3)
}

func TestLoaderContextCancelled(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{{recipe("a", "cukor")}},
	}
	store := newMemStore()
	loader, _, _ := setupLoader(adapter, store, Options{LanguageId: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary := loader.Load(ctx)
	require.True(t, summary.Stopped)
	require.Empty(t, store.saved)
}

func TestLoaderSaveFailure(t *testing.T) {
	adapter := &listAdapter{
		pages: [][]scraping.ScrapedRecipe{{recipe("a", "cukor")}},
	}
	store := newMemStore()
	store.saveErr = errors.New("disk I/O error")

	called := false
	loader, _, tel := setupLoader(adapter, store, Options{
		LanguageId:      1,
		OnRecipeScraped: func(scraping.ScrapedRecipe) { called = true },
	})

	summary := loader.Load(context.Background())
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 0, summary.Persisted)
	require.False(t, called)
	require.Len(t, tel.Find(telemetry.REPORT_BROKEN, report_loader_save), 1)
}

type staticCatalog []scraping.ScrapedIngredient

func (c staticCatalog) Ingredients(ctx context.Context) ([]scraping.ScrapedIngredient, error) {
	return c, nil
}

type recordingSeeder struct {
	names []string
}

func (s *recordingSeeder) SeedIngredients(ctx context.Context, languageId int64, names []string) (int, error) {
	s.names = names
	return len(names), nil
}

func TestSeed(t *testing.T) {
	catalog := staticCatalog{
		{Name: "Alma", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "alma ", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "Zöld  paprika", Measure: scraping.MEASURE_UNKNOWN},
	}
	seeder := &recordingSeeder{}

	summary, err := Seed(context.Background(), catalog, seeder, 1)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, SeedSummary{Scraped: 4, Unique: 2, Created: 2}, summary)
	require.Equal(t, []string{"alma", "zöld paprika"}, seeder.names)
}
