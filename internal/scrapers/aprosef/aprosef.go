// Package aprosef scrapes recipes from aprosef.hu, a drupal site with a
// paged recipe view.
package aprosef

import (
	"context"
	"fmt"
	"recipes-backend/internal/assert"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/scraping"
	"recipes-backend/lib/configutil"
	"recipes-backend/lib/htmlutil"
	"recipes-backend/lib/restyutil"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const NAME = "aprosef"

const (
	report_adapter_amount   = "adapter.parse-amount"
	report_adapter_servings = "adapter.parse-servings"
)

type Config struct {
	Client restyutil.Options `json:"client"`
	// ListPath is a format string taking the page index.
	ListPath           string `json:"list_path"`
	ItemSelector       string `json:"item_selector"`
	LinkSelector       string `json:"link_selector"`
	TitleSelector      string `json:"title_selector"`
	IngredientSelector string `json:"ingredient_selector"`
	AmountSelector     string `json:"amount_selector"`
	ServingsSelector   string `json:"servings_selector"`
	ServingsInput      string `json:"servings_input"`
	// DefaultServings is used when the page has no serving counter.
	DefaultServings int `json:"default_servings"`
}

func DefaultConfig() Config {
	return Config{
		Client: restyutil.Options{
			BaseUrl:        "http://aprosef.hu",
			TimeoutSeconds: 10,
			RequestsPerSec: 2,
			Burst:          2,
		},
		ListPath:           "/receptek?combine=All&sort_by=nid&page=%d",
		ItemSelector:       "#leftside .view-content .views-row",
		LinkSelector:       ".views-field-title a",
		TitleSelector:      ".recipetitle",
		IngredientSelector: ".field_counted_ingredients ul li",
		AmountSelector:     "#mertek_",
		ServingsSelector:   ".counterbox",
		ServingsInput:      "#number",
		DefaultServings:    2,
	}
}

type Adapter struct {
	config Config
	http   *resty.Client
	tel    telemetry.API
}

func NewAdapter(config Config, tel telemetry.API) (*Adapter, error) {
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
	return &Adapter{
		config: config,
		http:   client,
		tel:    tel,
	}, nil
}

func NewVisitor(config Config, startPage int, tel telemetry.API) (*scraping.PagedVisitor[htmlutil.Anchor], error) {
	adapter, err := NewAdapter(config, tel)
	if err != nil {
		return nil, err
	}
	visitor := scraping.NewPagedVisitor[htmlutil.Anchor](NAME, adapter, tel)
	visitor.Seek(startPage)
	return visitor, nil
}

func (a *Adapter) FirstPage() int {
	return 0
}

func (a *Adapter) FetchPage(ctx context.Context, page int) ([]htmlutil.Anchor, error) {
	doc, err := htmlutil.GetDocument(ctx, a.http, fmt.Sprintf(a.config.ListPath, page))
	if err != nil {
		return nil, err
	}

	var out []htmlutil.Anchor
	doc.Find(a.config.ItemSelector).Each(func(_ int, row *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, doc.Url, row.Find(a.config.LinkSelector))
		if len(anchors) != 1 {
			out = append(out, htmlutil.Anchor{Name: htmlutil.Text(row)})
			return
		}
		out = append(out, anchors[0])
	})
	return out, nil
}

func (a *Adapter) Extract(ctx context.Context, element htmlutil.Anchor) (*scraping.ScrapedRecipe, error) {
	if element.Href == "" {
		return nil, fmt.Errorf("expected exactly one recipe link in %q", element.Name)
	}

	doc, err := htmlutil.GetDocument(ctx, a.http, element.Href)
	if err != nil {
		return nil, err
	}
	return a.ScrapeRecipe(element.Href, doc)
}

func (a *Adapter) ScrapeRecipe(url string, doc *goquery.Document) (*scraping.ScrapedRecipe, error) {
	titles := doc.Find(a.config.TitleSelector)
	if titles.Length() != 1 {
		return nil, fmt.Errorf("%s: expected one %q, got %d", url, a.config.TitleSelector, titles.Length())
	}

	items := doc.Find(a.config.IngredientSelector)
	if items.Length() == 0 {
		return nil, fmt.Errorf("%s: no ingredients", url)
	}
	ingredients := make([]scraping.ScrapedIngredient, 0, items.Length())
	var err error
	items.EachWithBreak(func(_ int, li *goquery.Selection) bool {
		var ingredient scraping.ScrapedIngredient
		ingredient, err = a.parseIngredient(li)
		if err != nil {
			return false
		}
		ingredients = append(ingredients, ingredient)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	return &scraping.ScrapedRecipe{
		Url:         url,
		Name:        htmlutil.Text(titles),
		Servings:    a.parseServings(doc),
		Ingredients: ingredients,
	}, nil
}

// parseIngredient reads "<span id="mertek_">20</span> dkg liszt", a line
// without an amount is a to taste ingredient.
func (a *Adapter) parseIngredient(li *goquery.Selection) (scraping.ScrapedIngredient, error) {
	combined := htmlutil.Text(li)
	amountElement := li.Find(a.config.AmountSelector)
	if amountElement.Length() != 1 {
		return scraping.ScrapedIngredient{
			Name:    combined,
			Measure: scraping.MEASURE_TO_TASTE,
		}, nil
	}

	amountText := htmlutil.Text(amountElement)
	amount, ok := scraping.ParseAmount(amountText)
	if !ok {
		a.tel.ReportWarning(report_adapter_amount, amountText, combined)
	}

	_, rest, found := strings.Cut(combined, amountText)
	fields := strings.Fields(rest)
	if amountText == "" || !found || len(fields) < 2 {
		return scraping.ScrapedIngredient{}, fmt.Errorf("cannot split measure and name of %q", combined)
	}
	return scraping.ScrapedIngredient{
		Name:    strings.Join(fields[1:], " "),
		Measure: fields[0],
		Amount:  amount,
	}, nil
}

func (a *Adapter) parseServings(doc *goquery.Document) int {
	counters := doc.Find(a.config.ServingsSelector)
	if counters.Length() != 1 || !strings.Contains(htmlutil.Text(counters), "adag") {
		return a.config.DefaultServings
	}
	input := counters.Find(a.config.ServingsInput)
	if input.Length() != 1 {
		return a.config.DefaultServings
	}
	value, _ := input.Attr("value")
	servings, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		a.tel.ReportWarning(report_adapter_servings, err, value)
		return a.config.DefaultServings
	}
	return servings
}
