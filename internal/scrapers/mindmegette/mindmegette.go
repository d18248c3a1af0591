// Package mindmegette scrapes recipes from mindmegette.hu.
//
// Recipes are listed per category, each category with its own pager. The
// adapter flattens the categories into one global page index: global page g
// is page g-offset of the first category whose page count reaches past g.
// Page counts are learned lazily from the first page of each category, a
// category whose first page cannot be loaded counts as one broken page so
// skipping that page moves on to the next category.
package mindmegette

import (
	"context"
	"fmt"
	"net/url"
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

const NAME = "mindmegette"

// SERVINGS is used for every recipe, the site does not publish servings.
const SERVINGS = 4

const (
	report_adapter_categories = "adapter.categories"
	report_adapter_category   = "adapter.category"
	report_adapter_amount     = "adapter.parse-amount"
)

type Config struct {
	Client             restyutil.Options `json:"client"`
	IndexPath          string            `json:"index_path"`
	CollectionSelector string            `json:"collection_selector"`
	CategorySelector   string            `json:"category_selector"`
	PagerSelector      string            `json:"pager_selector"`
	ItemSelector       string            `json:"item_selector"`
	TitleSelector      string            `json:"title_selector"`
	// IngredientSelector matches the current ingredient markup.
	IngredientSelector string `json:"ingredient_selector"`
	// LegacyIngredientSelector matches the markup of older recipes, where
	// the first item is a header.
	LegacyIngredientSelector string `json:"legacy_ingredient_selector"`
}

func DefaultConfig() Config {
	return Config{
		Client: restyutil.Options{
			BaseUrl:        "https://www.mindmegette.hu",
			TimeoutSeconds: 10,
			RequestsPerSec: 2,
			Burst:          2,
		},
		IndexPath:                "/receptek-a-z-ig/osszes/",
		CollectionSelector:       "#collection",
		CategorySelector:         "dd",
		PagerSelector:            ".current-page h4",
		ItemSelector:             ".recipe-item",
		TitleSelector:            "h1",
		IngredientSelector:       "#ingredient-lists .list ul",
		LegacyIngredientSelector: "#ingredient-lists .hozzavalok-lista",
	}
}

type category struct {
	url *url.URL
	// pages is 0 until the first page was loaded.
	pages int
	first *goquery.Document
	// broken is set while the first page fails to load, the category then
	// occupies a single page.
	broken bool
}

type Adapter struct {
	config Config
	http   *resty.Client
	tel    telemetry.API

	categories []*category
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
	if a.categories == nil {
		err := a.loadCategories(ctx)
		if err != nil {
			return nil, err
		}
	}

	counts := make([]int, 0, len(a.categories))
	for _, cat := range a.categories {
		var failed error
		if cat.pages == 0 {
			failed = a.loadFirstPage(ctx, cat)
			if failed != nil {
				a.tel.ReportWarning(report_adapter_category, failed, cat.url.String())
				cat.pages = 1
				cat.broken = true
			}
		}
		counts = append(counts, cat.pages)
		index, categoryPage, ok := locatePage(counts, page)
		if !ok {
			continue
		}

		// earlier categories were passed, so the page falls into cat
		if cat.broken && failed == nil {
			failed = a.loadFirstPage(ctx, cat)
			if failed == nil {
				cat.broken = false
			}
		}
		if cat.broken {
			return nil, fmt.Errorf("%s: %w", cat.url, failed)
		}
		return a.fetchCategoryPage(ctx, a.categories[index], categoryPage)
	}
	return nil, nil
}

// locatePage maps a global page index onto the category holding it and the
// 1-based page within that category, given the page counts of the leading
// categories.
func locatePage(counts []int, page int) (category int, categoryPage int, ok bool) {
	offset := page
	for i, count := range counts {
		if offset < count {
			return i, offset + 1, true
		}
		offset -= count
	}
	return 0, 0, false
}

func (a *Adapter) Extract(ctx context.Context, element htmlutil.Anchor) (*scraping.ScrapedRecipe, error) {
	if element.Href == "" {
		return nil, fmt.Errorf("recipe item %q has no link", element.Name)
	}

	doc, err := htmlutil.GetDocument(ctx, a.http, element.Href)
	if err != nil {
		return nil, err
	}
	recipe, err := a.ScrapeRecipe(element.Href, doc)
	if err != nil {
		return nil, err
	}
	if element.Name != "" {
		recipe.Name = element.Name
	}
	return recipe, nil
}

func (a *Adapter) ScrapeRecipe(url string, doc *goquery.Document) (*scraping.ScrapedRecipe, error) {
	var ingredients []scraping.ScrapedIngredient
	current := doc.Find(a.config.IngredientSelector).First()
	if current.Length() > 0 {
		current.Find("li").Each(func(_ int, li *goquery.Selection) {
			ingredients = append(ingredients, a.parseIngredient(li))
		})
	} else {
		legacy := doc.Find(a.config.LegacyIngredientSelector).First()
		if legacy.Length() == 0 {
			return nil, fmt.Errorf("%s: no ingredient list", url)
		}
		legacy.Find("li").Each(func(i int, li *goquery.Selection) {
			if i == 0 {
				return
			}
			ingredients = append(ingredients, a.parseLegacyIngredient(li))
		})
	}

	return &scraping.ScrapedRecipe{
		Url:         url,
		Name:        htmlutil.Text(doc.Find(a.config.TitleSelector).First()),
		Servings:    SERVINGS,
		Ingredients: ingredients,
	}, nil
}

func (a *Adapter) parseIngredient(li *goquery.Selection) scraping.ScrapedIngredient {
	measure := li.Find(".ingredient-measure")
	amountText := htmlutil.Text(measure.Find(".amount").First())
	unit := htmlutil.Text(measure.Find(".unit").First())
	if unit == "" {
		unit = scraping.MEASURE_TO_TASTE
	}

	var amount float64
	if amountText != "" {
		var ok bool
		amount, ok = scraping.ParseAmount(amountText)
		if !ok {
			a.tel.ReportWarning(report_adapter_amount, amountText, htmlutil.Text(li))
		}
	}
	return scraping.ScrapedIngredient{
		Name:    htmlutil.Text(li.Find(".ingredient-name")),
		Measure: unit,
		Amount:  amount,
	}
}

// parseLegacyIngredient reads "<amount> <measure> <name...>", anything
// shorter is a to taste ingredient.
func (a *Adapter) parseLegacyIngredient(li *goquery.Selection) scraping.ScrapedIngredient {
	text := htmlutil.Text(li)
	fields := strings.Fields(text)
	if len(fields) <= 2 {
		return scraping.ScrapedIngredient{
			Name:    text,
			Measure: scraping.MEASURE_TO_TASTE,
		}
	}

	amount, ok := scraping.ParseAmount(fields[0])
	if !ok {
		a.tel.ReportWarning(report_adapter_amount, fields[0], text)
	}
	return scraping.ScrapedIngredient{
		Name:    strings.Join(fields[2:], " "),
		Measure: fields[1],
		Amount:  amount,
	}
}

func (a *Adapter) loadCategories(ctx context.Context) error {
	doc, err := htmlutil.GetDocument(ctx, a.http, a.config.IndexPath)
	if err != nil {
		return err
	}
	collection := doc.Find(a.config.CollectionSelector)
	if collection.Length() != 1 {
		return fmt.Errorf("expected one category collection, got %d", collection.Length())
	}

	var categories []*category
	collection.Find(a.config.CategorySelector).Each(func(_ int, dd *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, doc.Url, dd.Find("a").First())
		if len(anchors) == 0 {
			return
		}
		link, err := url.Parse(anchors[0].Href)
		if err != nil {
			a.tel.ReportWarning(report_adapter_categories, err, anchors[0].Href)
			return
		}
		categories = append(categories, &category{url: link})
	})
	// no categories is a markup change, not an empty site
	if len(categories) == 0 {
		return fmt.Errorf("no categories in %s", a.config.IndexPath)
	}
	a.tel.ReportDebug("found categories", "count", len(categories))
	a.categories = categories
	return nil
}

func (a *Adapter) loadFirstPage(ctx context.Context, cat *category) error {
	doc, err := htmlutil.GetDocument(ctx, a.http, pageUrl(cat.url, 1))
	if err != nil {
		return err
	}
	pages, err := a.parsePageCount(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", cat.url, err)
	}
	cat.pages = pages
	cat.first = doc
	return nil
}

func (a *Adapter) fetchCategoryPage(ctx context.Context, cat *category, page int) ([]htmlutil.Anchor, error) {
	doc := cat.first
	if page == 1 && doc != nil {
		cat.first = nil
	} else {
		var err error
		doc, err = htmlutil.GetDocument(ctx, a.http, pageUrl(cat.url, page))
		if err != nil {
			return nil, err
		}
	}

	var out []htmlutil.Anchor
	doc.Find(a.config.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, doc.Url, item.Find("a").First())
		if len(anchors) == 0 {
			out = append(out, htmlutil.Anchor{Name: htmlutil.Text(item)})
			return
		}
		out = append(out, anchors[0])
	})
	// an empty page would end the traversal, a category page always has items
	if len(out) == 0 {
		return nil, fmt.Errorf("%s page %d: no recipe items", cat.url, page)
	}
	return out, nil
}

// parsePageCount reads the pager "3 / 12", a category without a pager has
// one page.
func (a *Adapter) parsePageCount(doc *goquery.Document) (int, error) {
	pager := doc.Find(a.config.PagerSelector).First()
	if pager.Length() == 0 {
		return 1, nil
	}
	_, total, found := strings.Cut(htmlutil.Text(pager), "/")
	if !found {
		return 0, fmt.Errorf("unexpected pager %q", htmlutil.Text(pager))
	}
	pages, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil {
		return 0, fmt.Errorf("parse page count: %w", err)
	}
	if pages < 1 {
		return 0, fmt.Errorf("invalid page count %d", pages)
	}
	return pages, nil
}

func pageUrl(category *url.URL, page int) string {
	out := *category
	query := out.Query()
	query.Set("p", strconv.Itoa(page))
	out.RawQuery = query.Encode()
	return out.String()
}
