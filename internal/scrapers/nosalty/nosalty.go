// Package nosalty scrapes recipes from nosalty.hu.
//
// The listing is a plain paged list. Asking for a page past the last one
// returns the last page again, so the adapter remembers the first recipe of
// the previous page and treats a repeat as the end of the list.
package nosalty

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

const NAME = "nosalty"

const (
	report_adapter_last_page = "adapter.last-page"
	report_adapter_amount    = "adapter.parse-amount"
	report_adapter_servings  = "adapter.parse-servings"
)

type Config struct {
	Client restyutil.Options `json:"client"`
	// ListPath is a format string taking the page index.
	ListPath     string `json:"list_path"`
	ListSelector string `json:"list_selector"`
	ItemSelector string `json:"item_selector"`
	// LinkIndex picks the recipe link among the anchors of a list item.
	LinkIndex          int    `json:"link_index"`
	TitleSelector      string `json:"title_selector"`
	TitleSuffix        string `json:"title_suffix"`
	IngredientSelector string `json:"ingredient_selector"`
	ServingsSelector   string `json:"servings_selector"`
}

func DefaultConfig() Config {
	return Config{
		Client: restyutil.Options{
			BaseUrl:        "https://www.nosalty.hu",
			TimeoutSeconds: 10,
			RequestsPerSec: 2,
			Burst:          2,
		},
		ListPath:           "/receptek/adag/osszes?page=0%%2C%d",
		ListSelector:       ".article-list-horizontal",
		ItemSelector:       "li",
		LinkIndex:          1,
		TitleSelector:      "h1",
		TitleSuffix:        " recept",
		IngredientSelector: ".recept-hozzavalok li",
		ServingsSelector:   ".recept-hozzavalok > h2 span",
	}
}

type Adapter struct {
	config Config
	http   *resty.Client
	tel    telemetry.API

	firstRecipeUrl string
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

// NewVisitor creates a visitor over the whole recipe list starting at the
// given page.
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
	list := doc.Find(a.config.ListSelector).First()
	if list.Length() == 0 {
		return nil, fmt.Errorf("page %d: %q not found", page, a.config.ListSelector)
	}

	var out []htmlutil.Anchor
	list.Find(a.config.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, doc.Url, item.Find("a"))
		if len(anchors) <= a.config.LinkIndex {
			// extraction reports the missing link
			out = append(out, htmlutil.Anchor{Name: htmlutil.Text(item)})
			return
		}
		out = append(out, anchors[a.config.LinkIndex])
	})
	if len(out) == 0 {
		return nil, nil
	}

	if out[0].Href != "" && out[0].Href == a.firstRecipeUrl {
		a.tel.ReportDebug(report_adapter_last_page, page)
		return nil, nil
	}
	a.firstRecipeUrl = out[0].Href
	return out, nil
}

func (a *Adapter) Extract(ctx context.Context, element htmlutil.Anchor) (*scraping.ScrapedRecipe, error) {
	if element.Href == "" {
		return nil, fmt.Errorf("missing recipe link in %q", element.Name)
	}

	doc, err := htmlutil.GetDocument(ctx, a.http, element.Href)
	if err != nil {
		return nil, err
	}
	return a.ScrapeRecipe(element.Href, doc)
}

// ScrapeRecipe reads a recipe detail page.
func (a *Adapter) ScrapeRecipe(url string, doc *goquery.Document) (*scraping.ScrapedRecipe, error) {
	title := doc.Find(a.config.TitleSelector).First()
	if title.Length() == 0 {
		return nil, fmt.Errorf("%s: %q not found", url, a.config.TitleSelector)
	}
	name := strings.ReplaceAll(htmlutil.Text(title), a.config.TitleSuffix, "")

	var ingredients []scraping.ScrapedIngredient
	doc.Find(a.config.IngredientSelector).Each(func(_ int, li *goquery.Selection) {
		ingredient, ok := a.parseIngredient(li)
		if ok {
			ingredients = append(ingredients, ingredient)
		}
	})
	if len(ingredients) == 0 {
		return nil, fmt.Errorf("%s: no ingredients", url)
	}

	return &scraping.ScrapedRecipe{
		Url:         url,
		Name:        name,
		Servings:    a.parseServings(doc),
		Ingredients: ingredients,
	}, nil
}

// parseIngredient reads lines like "2 ek <a>cukor</a>". The ingredient is
// the first non empty link, without one the first two words are taken as
// amount and measure.
func (a *Adapter) parseIngredient(li *goquery.Selection) (scraping.ScrapedIngredient, bool) {
	allText := htmlutil.Text(li)

	name := ""
	li.Find("a").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		name = htmlutil.Text(anchor)
		return name == ""
	})
	if name == "" {
		words := strings.Fields(allText)
		switch {
		case len(words) > 2:
			name = strings.Join(words[2:], " ")
		case len(words) > 0:
			name = words[len(words)-1]
		}
	}
	if name == "" {
		return scraping.ScrapedIngredient{}, false
	}

	ingredient := scraping.ScrapedIngredient{
		Name:    name,
		Measure: scraping.MEASURE_TO_TASTE,
	}
	prefix, _, _ := strings.Cut(allText, name)
	fields := strings.Fields(prefix)
	amountText := ""
	switch {
	case len(fields) >= 2:
		amountText = fields[0]
		ingredient.Measure = fields[1]
	case len(fields) == 1:
		amountText = fields[0]
		ingredient.Measure = scraping.MEASURE_PIECE
	}
	if amountText != "" {
		amount, ok := scraping.ParseAmount(amountText)
		if !ok {
			a.tel.ReportWarning(report_adapter_amount, amountText, allText)
		}
		ingredient.Amount = amount
	}
	return ingredient, true
}

func (a *Adapter) parseServings(doc *goquery.Document) int {
	text := htmlutil.Text(doc.Find(a.config.ServingsSelector).First())
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	servings, err := strconv.Atoi(fields[0])
	if err != nil {
		a.tel.ReportWarning(report_adapter_servings, err, text)
		return 0
	}
	return servings
}
