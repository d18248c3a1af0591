package kaloriaguru

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/scraping"
	"recipes-backend/lib/restyutil"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func table(names ...string) string {
	rows := ""
	for _, name := range names {
		rows += fmt.Sprintf("<tr><td>%s</td><td>100 kcal</td></tr>", name)
	}
	return fmt.Sprintf(`<html><body><table class="calorieTable"><thead><tr><td>Név</td></tr></thead><tbody>%s</tbody></table></body></html>`, rows)
}

func TestIngredients(t *testing.T) {
	pages := map[string]string{
		"/tojas.php":  table("Tojás", "Tojássárgája"),
		"/fuszer.php": table("Só", " Fekete  bors "),
		"/gombak.php": table("Csiperke"),
	}
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(page))
	}))
	defer server.Close()

	recorder := &telemetry.Recorder{}
	scraper, err := NewScraper(Config{
		Client: restyutil.Options{
			BaseUrl:        server.URL,
			RequestsPerSec: 1000,
			Burst:          10,
		},
		Pages:       []string{"/tojas.php", "/hianyzik.php", "/fuszer.php", "/gombak.php"},
		Concurrency: 2,
	}, recorder)
	if err != nil {
		t.Fatal(err)
	}

	ingredients, err := scraper.Ingredients(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	expected := []scraping.ScrapedIngredient{
		{Name: "tojás", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "tojássárgája", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "só", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "fekete bors", Measure: scraping.MEASURE_UNKNOWN},
		{Name: "csiperke", Measure: scraping.MEASURE_UNKNOWN},
	}
	diff := cmp.Diff(expected, ingredients)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Len(t, recorder.Find(telemetry.REPORT_WARNING, report_catalog_page), 1)

	// only the failed table is fetched again
	fetched := requests.Load()
	ingredients, err = scraper.Ingredients(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, fetched+1, requests.Load())
	require.Len(t, recorder.Find(telemetry.REPORT_WARNING, report_catalog_page), 2)
	diff = cmp.Diff(expected, ingredients)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestIngredientsAfterOutage(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(table("Tojás")))
	}))
	defer server.Close()

	scraper, err := NewScraper(Config{
		Client: restyutil.Options{
			BaseUrl:        server.URL,
			RequestsPerSec: 1000,
			Burst:          10,
		},
		Pages: []string{"/tojas.php"},
	}, &telemetry.Recorder{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = scraper.Ingredients(context.Background())
	require.ErrorIs(t, err, ErrNoTables)

	down.Store(false)
	ingredients, err := scraper.Ingredients(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	diff := cmp.Diff([]scraping.ScrapedIngredient{
		{Name: "tojás", Measure: scraping.MEASURE_UNKNOWN},
	}, ingredients)
	if diff != "" {
		t.Fatal(diff)
	}
}
