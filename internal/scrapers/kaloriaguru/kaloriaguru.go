// Package kaloriaguru scrapes the calorie tables of kalóriaguru.hu into a
// catalog of ingredient names used to seed canonical ingredients.
package kaloriaguru

import (
	"context"
	"errors"
	"fmt"
	"recipes-backend/internal/assert"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/scraping"
	"recipes-backend/lib/configutil"
	"recipes-backend/lib/htmlutil"
	"recipes-backend/lib/restyutil"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const NAME = "kaloriaguru"

const report_catalog_page = "catalog.page"

var tracer = otel.Tracer("internal/scrapers/kaloriaguru")

var ErrNoTables = errors.New("no calorie table could be loaded")

type Config struct {
	Client      restyutil.Options `json:"client"`
	Pages       []string          `json:"pages"`
	RowSelector string            `json:"row_selector"`
	// Concurrency bounds the number of tables fetched at once.
	Concurrency int `json:"concurrency"`
}

func DefaultConfig() Config {
	tables := []string{
		"pekaruk",
		"etelizesitok-es-hozzavalok",
		"gabonatermekek",
		"szoszok-ontetek-kremek",
		"tojas",
		"fuszerek",
		"tesztak",
		"barany",
		"gyumolcsok-es-gyumolcskeszitmenyek",
		"borju",
		"zoldsegek-es-huvelyesek",
		"halak-es-tenger-gyumolcsei",
		"diofelek-es-olajos-magvak",
		"huskeszitmenyek",
		"zsirok-es-olajok",
		"marha",
		"gombak",
		"sertes",
		"szoja",
		"szarnyasok",
		"alkoholos-italok",
		"vad-es-egyeb-husok",
		"kave-tea-kakao",
	}
	pages := make([]string, len(tables))
	for i, table := range tables {
		pages[i] = fmt.Sprintf("/kaloriatablazat/%s-kaloriatablazat.php", table)
	}

	return Config{
		Client: restyutil.Options{
			BaseUrl:        "http://www.xn--kalriaguru-ibb.hu",
			UserAgent:      "Mozilla",
			TimeoutSeconds: 10,
			RequestsPerSec: 4,
			Burst:          4,
		},
		Pages:       pages,
		RowSelector: "table.calorieTable tbody tr",
		Concurrency: 4,
	}
}

// Scraper implements ingest.Catalog. Loaded tables are kept, later calls
// only fetch the tables that failed before.
type Scraper struct {
	config Config
	http   *resty.Client
	tel    telemetry.API

	mutex sync.Mutex
	// tables holds the rows of every table loaded so far, keyed by page.
	tables map[string][]scraping.ScrapedIngredient
}

func NewScraper(config Config, tel telemetry.API) (*Scraper, error) {
	assert.NotNil(tel)

	config, err := configutil.WithDefaults(config, DefaultConfig())
	if err != nil {
		return nil, err
	}
	tel = telemetry.NewScopedAPI(NAME, tel)

	client, err := restyutil.NewClient(config.Client, tel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NAME, err)
	}
	return &Scraper{
		config: config,
		http:   client,
		tel:    tel,
		tables: map[string][]scraping.ScrapedIngredient{},
	}, nil
}

// Ingredients returns the ingredient names of every table in configured
// order. Tables that fail to load are reported, left out and fetched again
// by the next call. It fails with ErrNoTables when no table has loaded.
func (s *Scraper) Ingredients(ctx context.Context) ([]scraping.ScrapedIngredient, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ctx, span := tracer.Start(ctx, "Ingredients")
	defer span.End()

	var missing []string
	for _, page := range s.config.Pages {
		if _, ok := s.tables[page]; !ok {
			missing = append(missing, page)
		}
	}

	results := make([][]scraping.ScrapedIngredient, len(missing))
	failed := make([]bool, len(missing))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.Concurrency)
	for i, page := range missing {
		group.Go(func() error {
			ingredients, err := s.scrapePage(groupCtx, page)
			if err != nil {
				s.tel.ReportWarning(report_catalog_page, err, page)
				failed[i] = true
				return nil
			}
			results[i] = ingredients
			return nil
		})
	}
	group.Wait()

	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	failures := 0
	for i, page := range missing {
		if failed[i] {
			failures++
			continue
		}
		s.tables[page] = results[i]
	}
	if len(s.tables) == 0 {
		err = fmt.Errorf("%w: %d pages failed", ErrNoTables, failures)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := []scraping.ScrapedIngredient{}
	for _, page := range s.config.Pages {
		out = append(out, s.tables[page]...)
	}
	span.SetAttributes(
		attribute.Int("ingredients", len(out)),
		attribute.Int("failed_pages", failures),
	)
	return out, nil
}

func (s *Scraper) scrapePage(ctx context.Context, page string) ([]scraping.ScrapedIngredient, error) {
	doc, err := htmlutil.GetDocument(ctx, s.http, page)
	if err != nil {
		return nil, err
	}

	var out []scraping.ScrapedIngredient
	doc.Find(s.config.RowSelector).Each(func(_ int, row *goquery.Selection) {
		name := strings.ToLower(htmlutil.Text(row.Find("td").First()))
		if name == "" {
			return
		}
		out = append(out, scraping.ScrapedIngredient{
			Name:    name,
			Measure: scraping.MEASURE_UNKNOWN,
		})
	})
	s.tel.ReportDebug("scraped calorie table", "page", page, "ingredients", len(out))
	return out, nil
}
