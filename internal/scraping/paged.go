package scraping

import (
	"context"
	"fmt"
	"recipes-backend/internal/assert"
	"recipes-backend/internal/components/telemetry"
)

const (
	report_paged_fetch   = "paged.fetch"
	report_paged_extract = "paged.extract"
)

// Adapter supplies the site specific part of a paged traversal. E is the
// raw element type a listing page is split into (usually a goquery
// selection of one listing entry).
type Adapter[E any] interface {
	// FirstPage is the index of the first listing page on the site.
	FirstPage() int
	// FetchPage returns the elements listed on the given page. An empty
	// result means there are no more pages.
	FetchPage(ctx context.Context, page int) ([]E, error)
	// Extract turns a single listing element into a recipe.
	Extract(ctx context.Context, element E) (*ScrapedRecipe, error)
}

// PagedVisitor implements Visitor over an Adapter. It is not safe for
// concurrent use.
type PagedVisitor[E any] struct {
	name    string
	adapter Adapter[E]
	tel     telemetry.API

	state     State
	errorCode ErrorCode
	connected bool
	exhausted bool

	// page is the page currently buffered, or the page to fetch next when
	// loaded is false.
	page   int
	loaded bool
	index  int
	buffer []E
}

func NewPagedVisitor[E any](name string, adapter Adapter[E], tel telemetry.API) *PagedVisitor[E] {
	assert.NotNil(adapter)
	assert.NotNil(tel)
	assert.NotEmptyStr(name)

	return &PagedVisitor[E]{
		name:    name,
		adapter: adapter,
		tel:     telemetry.NewScopedAPI(name, tel),
		page:    adapter.FirstPage(),
	}
}

func (v *PagedVisitor[E]) Name() string {
	return v.name
}

// Seek moves the page cursor to the given offset from the first page and
// drops whatever is buffered.
func (v *PagedVisitor[E]) Seek(page int) {
	assert.NonNegative("page", page)
	v.page = v.adapter.FirstPage() + page
	v.loaded = false
	v.index = 0
	v.buffer = nil
}

func (v *PagedVisitor[E]) Connect(ctx context.Context) error {
	err := v.load(ctx)
	if err != nil {
		v.fail(ERROR_INIT_FAILED)
		return fmt.Errorf("connect %s: %w", v.name, err)
	}
	v.state = STATE_WORK
	v.errorCode = ERROR_NONE
	return nil
}

func (v *PagedVisitor[E]) IsConnected() bool {
	return v.connected
}

func (v *PagedVisitor[E]) Next(ctx context.Context) (ScrapedRecipe, bool) {
	if v.state != STATE_WORK || v.exhausted {
		return ScrapedRecipe{}, false
	}

	if v.index >= len(v.buffer) {
		if v.loaded {
			v.page++
			v.loaded = false
			v.index = 0
			v.buffer = nil
		}
		err := v.load(ctx)
		if err != nil {
			v.fail(ERROR_PAGE_LOAD_FAILED)
			return ScrapedRecipe{}, false
		}
		if v.exhausted {
			return ScrapedRecipe{}, false
		}
	}

	recipe, err := v.extract(ctx, v.buffer[v.index])
	if err != nil {
		v.tel.ReportWarning(report_paged_extract, err, v.Cursor())
		v.fail(ERROR_SCRAPE_FAILED)
		return ScrapedRecipe{}, false
	}
	v.index++
	return recipe, true
}

func (v *PagedVisitor[E]) HasMore() bool {
	return v.state == STATE_WORK && !v.exhausted
}

func (v *PagedVisitor[E]) Recover() {
	v.state = STATE_WORK
	v.errorCode = ERROR_NONE
}

func (v *PagedVisitor[E]) SkipCurrentElement() {
	v.index++
}

func (v *PagedVisitor[E]) SkipCurrentPage() {
	v.page++
	v.loaded = false
	v.index = 0
	v.buffer = nil
}

func (v *PagedVisitor[E]) State() State {
	return v.state
}

func (v *PagedVisitor[E]) ErrorCode() ErrorCode {
	return v.errorCode
}

func (v *PagedVisitor[E]) Cursor() Cursor {
	return Cursor{
		Page:     v.page,
		Index:    v.index,
		Buffered: len(v.buffer),
	}
}

func (v *PagedVisitor[E]) fail(code ErrorCode) {
	v.state = STATE_ERROR
	v.errorCode = code
}

// load fetches the page under the cursor into the buffer.
func (v *PagedVisitor[E]) load(ctx context.Context) error {
	elements, err := v.fetch(ctx, v.page)
	if err != nil {
		v.tel.ReportWarning(report_paged_fetch, err, v.page)
		return err
	}
	v.connected = true
	if len(elements) == 0 {
		v.tel.ReportDebug("no elements, exhausted", v.page)
		v.exhausted = true
		return nil
	}
	v.tel.ReportDebug("page loaded", v.page, len(elements))
	v.buffer = elements
	v.index = 0
	v.loaded = true
	return nil
}

func (v *PagedVisitor[E]) fetch(ctx context.Context, page int) (elements []E, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch page %d: panic: %v", page, r)
		}
	}()
	elements, err = v.adapter.FetchPage(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	return elements, nil
}

func (v *PagedVisitor[E]) extract(ctx context.Context, element E) (recipe ScrapedRecipe, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: panic: %v", r)
		}
	}()
	result, err := v.adapter.Extract(ctx, element)
	if err != nil {
		return ScrapedRecipe{}, fmt.Errorf("extract: %w", err)
	}
	if result == nil {
		return ScrapedRecipe{}, fmt.Errorf("extract: no recipe in element")
	}
	return *result, nil
}
