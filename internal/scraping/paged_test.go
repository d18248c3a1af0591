package scraping

import (
	"context"
	"errors"
	"fmt"
	"recipes-backend/internal/components/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAdapter serves pages of urls, pages[i] is page FirstPage()+i.
type fakeAdapter struct {
	first int
	pages [][]string

	// failures per url / page that are returned before succeeding
	extractFailures map[string]int
	fetchFailures   map[int]int
	panicOn         string

	fetched []int
}

func (a *fakeAdapter) FirstPage() int {
	return a.first
}

func (a *fakeAdapter) FetchPage(ctx context.Context, page int) ([]string, error) {
	a.fetched = append(a.fetched, page)
	if a.fetchFailures[page] > 0 {
		a.fetchFailures[page]--
		return nil, errors.New("connection reset")
	}
	i := page - a.first
	if i < 0 || i >= len(a.pages) {
		return nil, nil
	}
	return a.pages[i], nil
}

func (a *fakeAdapter) Extract(ctx context.Context, url string) (*ScrapedRecipe, error) {
	if url == a.panicOn {
		panic("selector returned nothing")
	}
	if a.extractFailures[url] > 0 {
		a.extractFailures[url]--
		return nil, fmt.Errorf("could not parse %s", url)
	}
	if url == "" {
		return nil, nil
	}
	return &ScrapedRecipe{Url: url, Name: "recipe " + url, Servings: 4}, nil
}

func newFakeVisitor(adapter *fakeAdapter) *PagedVisitor[string] {
	return NewPagedVisitor[string]("fake", adapter, &telemetry.Recorder{})
}

func drain(t *testing.T, v Visitor) []string {
	t.Helper()
	ctx := context.Background()
	var urls []string
	for {
		recipe, ok := v.Next(ctx)
		if !ok {
			return urls
		}
		urls = append(urls, recipe.Url)
	}
}

func TestPagedVisitorTraversal(t *testing.T) {
	adapter := &fakeAdapter{
		first: 1,
		pages: [][]string{
			{"a", "b", "c"},
			{"d"},
			{"e", "f"},
		},
	}
	v := newFakeVisitor(adapter)
	require.Equal(t, STATE_INIT, v.State())
	require.False(t, v.IsConnected())

	_, ok := v.Next(context.Background())
	require.False(t, ok, "next must be a no-op before connecting")

	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, v.IsConnected())
	require.Equal(t, STATE_WORK, v.State())
	require.True(t, v.HasMore())

	urls := drain(t, v)
	require.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, urls)
	require.False(t, v.HasMore())
	require.Equal(t, STATE_WORK, v.State())
	require.Equal(t, []int{1, 2, 3, 4}, adapter.fetched)

	seen := map[string]bool{}
	for _, url := range urls {
		require.False(t, seen[url], "visited %s twice", url)
		seen[url] = true
	}
}

func TestPagedVisitorEmptyPageExhausts(t *testing.T) {
	v := newFakeVisitor(&fakeAdapter{})
	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, v.IsConnected())
	require.False(t, v.HasMore())

	_, ok := v.Next(context.Background())
	require.False(t, ok)
	require.False(t, v.HasMore())
	require.Equal(t, ERROR_NONE, v.ErrorCode())
}

func TestPagedVisitorConnectFailure(t *testing.T) {
	adapter := &fakeAdapter{
		pages:         [][]string{{"a"}},
		fetchFailures: map[int]int{0: 1},
	}
	v := newFakeVisitor(adapter)

	err := v.Connect(context.Background())
	require.Error(t, err)
	require.False(t, v.IsConnected())
	require.Equal(t, STATE_ERROR, v.State())
	require.Equal(t, ERROR_INIT_FAILED, v.ErrorCode())
	require.False(t, v.HasMore())

	v.Recover()
	require.Equal(t, []string{"a"}, drain(t, v))
	require.True(t, v.IsConnected())
}

func TestPagedVisitorRecoverRetriesSamePosition(t *testing.T) {
	adapter := &fakeAdapter{
		pages:           [][]string{{"a", "b", "c"}},
		extractFailures: map[string]int{"b": 1},
	}
	v := newFakeVisitor(adapter)
	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	recipe, ok := v.Next(context.Background())
	require.True(t, ok)
	require.Equal(t, "a", recipe.Url)

	_, ok = v.Next(context.Background())
	require.False(t, ok)
	require.Equal(t, STATE_ERROR, v.State())
	require.Equal(t, ERROR_SCRAPE_FAILED, v.ErrorCode())
	require.False(t, v.HasMore())
	before := v.Cursor()

	_, ok = v.Next(context.Background())
	require.False(t, ok, "next must be a no-op in the error state")
	require.Equal(t, before, v.Cursor())

	v.Recover()
	require.Equal(t, STATE_WORK, v.State())
	require.Equal(t, ERROR_NONE, v.ErrorCode())
	require.Equal(t, before, v.Cursor())

	recipe, ok = v.Next(context.Background())
	require.True(t, ok)
	require.Equal(t, "b", recipe.Url)
	require.Equal(t, before.Page, v.Cursor().Page)
	require.Equal(t, []int{0}, adapter.fetched)
}

func TestPagedVisitorPageLoadFailure(t *testing.T) {
	adapter := &fakeAdapter{
		pages:         [][]string{{"a"}, {"b"}},
		fetchFailures: map[int]int{1: 1},
	}
	v := newFakeVisitor(adapter)
	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	_, ok := v.Next(context.Background())
	require.True(t, ok)
	_, ok = v.Next(context.Background())
	require.False(t, ok)
	require.Equal(t, ERROR_PAGE_LOAD_FAILED, v.ErrorCode())
	require.Equal(t, 1, v.Cursor().Page)

	v.Recover()
	recipe, ok := v.Next(context.Background())
	require.True(t, ok)
	require.Equal(t, "b", recipe.Url)
}

func TestPagedVisitorSkipCurrentElement(t *testing.T) {
	adapter := &fakeAdapter{
		pages:           [][]string{{"a", "b", "c"}},
		extractFailures: map[string]int{"b": 100},
	}
	v := newFakeVisitor(adapter)
	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	_, _ = v.Next(context.Background())
	_, ok := v.Next(context.Background())
	require.False(t, ok)

	before := v.Cursor()
	v.SkipCurrentElement()
	after := v.Cursor()
	require.Equal(t, before.Index+1, after.Index)
	require.Equal(t, before.Page, after.Page)

	v.Recover()
	require.Equal(t, []string{"c"}, drain(t, v))
}

func TestPagedVisitorSkipCurrentPage(t *testing.T) {
	adapter := &fakeAdapter{
		pages:           [][]string{{"a", "b"}, {"c"}},
		extractFailures: map[string]int{"a": 100},
	}
	v := newFakeVisitor(adapter)
	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	_, ok := v.Next(context.Background())
	require.False(t, ok)

	before := v.Cursor()
	require.Equal(t, 2, before.Buffered)
	v.SkipCurrentPage()
	after := v.Cursor()
	require.Greater(t, after.Page, before.Page)
	require.Equal(t, 0, after.Index)
	require.Equal(t, 0, after.Buffered)

	v.Recover()
	require.Equal(t, []string{"c"}, drain(t, v))
}

func TestPagedVisitorAdapterPanics(t *testing.T) {
	adapter := &fakeAdapter{
		pages:   [][]string{{"a", "boom", "c"}},
		panicOn: "boom",
	}
	v := newFakeVisitor(adapter)
	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, []string{"a"}, drain(t, v))
	require.Equal(t, ERROR_SCRAPE_FAILED, v.ErrorCode())
}

func TestPagedVisitorNilRecipe(t *testing.T) {
	v := newFakeVisitor(&fakeAdapter{pages: [][]string{{""}}})
	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	_, ok := v.Next(context.Background())
	require.False(t, ok)
	require.Equal(t, STATE_ERROR, v.State())
	require.Equal(t, ERROR_SCRAPE_FAILED, v.ErrorCode())
}

func TestPagedVisitorSeek(t *testing.T) {
	adapter := &fakeAdapter{
		first: 1,
		pages: [][]string{{"a"}, {"b"}, {"c"}},
	}
	v := newFakeVisitor(adapter)
	v.Seek(2)
	err := v.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{"c"}, drain(t, v))
	require.Equal(t, 3, adapter.fetched[0])
}

func TestParseAmount(t *testing.T) {
	table := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{input: "2", expected: 2, ok: true},
		{input: " 0,5 ", expected: 0.5, ok: true},
		{input: "1.25", expected: 1.25, ok: true},
		{input: "1/2", expected: 0.5, ok: true},
		{input: "1/0", ok: false},
		{input: "", ok: false},
		{input: "egy", ok: false},
	}

	for _, row := range table {
		amount, ok := ParseAmount(row.input)
		require.Equal(t, row.ok, ok, row.input)
		require.InDelta(t, row.expected, amount, 1e-9, row.input)
	}
}
