// Package ingest drives a scraping.Visitor to completion, resolves the
// ingredients of every produced recipe and persists the ones that resolve
// completely.
package ingest

import (
	"context"
	"fmt"
	"recipes-backend/internal/assert"
	"recipes-backend/internal/components/chrono"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/resolve"
	"recipes-backend/internal/scraping"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// MAX_RETRIES is the number of recover attempts in one round of retryScrape,
// the last attempt of a round escalates to a skip.
const MAX_RETRIES = 5

const (
	report_loader_connect    = "loader.connect"
	report_loader_retry      = "loader.retry"
	report_loader_skip       = "loader.skip"
	report_loader_resolve    = "loader.resolve"
	report_loader_unresolved = "loader.unresolved"
	report_loader_save       = "loader.save"
	report_loader_persisted  = "loader.persisted"
)

var tracer = otel.Tracer("internal/ingest")

var meter = otel.Meter("internal/ingest")
var persistedCounter, _ = meter.Int64Counter("recipes_persisted")
var droppedCounter, _ = meter.Int64Counter("recipes_dropped")
var retryCounter, _ = meter.Int64Counter("scrape_retries")
var skipCounter, _ = meter.Int64Counter("scrape_skips")

type Options struct {
	// Source is stored with every recipe, it defaults to the visitor name.
	Source     string
	LanguageId int64
	// RetryDelay is waited before every recover attempt.
	RetryDelay time.Duration
	// MaxSkips bounds the number of skips in one retryScrape call, zero or
	// less means unbounded.
	MaxSkips int
	// OnRecipeScraped is called after a recipe has been persisted.
	OnRecipeScraped func(recipe scraping.ScrapedRecipe)
}

// Summary describes one Load call.
type Summary struct {
	Site            string
	Persisted       int
	Dropped         int
	Failed          int
	SkippedElements int
	SkippedPages    int
	Retries         int
	Error           bool
	Stopped         bool
	StartedAt       time.Time
	Duration        time.Duration
}

type Loader struct {
	visitor scraping.Visitor
	store   Store
	options Options
	clock   chrono.TimeAPI
	tel     telemetry.API

	working atomic.Bool
	failed  atomic.Bool
	stop    atomic.Bool

	progressLock sync.Mutex
	progress     Summary
}

func NewLoader(visitor scraping.Visitor, store Store, options Options, clock chrono.TimeAPI, tel telemetry.API) *Loader {
	assert.NotNil(visitor)
	assert.NotNil(store)
	assert.NotNil(clock)
	assert.NotNil(tel)

	if options.Source == "" {
		options.Source = visitor.Name()
	}

	return &Loader{
		visitor: visitor,
		store:   store,
		options: options,
		clock:   clock,
		tel:     telemetry.NewScopedAPI(visitor.Name(), tel),
	}
}

func (l *Loader) IsWorking() bool {
	return l.working.Load()
}

// IsError is true when the last Load ended because retryScrape gave up.
func (l *Loader) IsError() bool {
	return l.failed.Load()
}

// Stop asks a running Load to return before it persists the next recipe.
func (l *Loader) Stop() {
	l.stop.Store(true)
}

// Progress returns the summary of the running (or last) Load.
func (l *Loader) Progress() Summary {
	l.progressLock.Lock()
	defer l.progressLock.Unlock()
	summary := l.progress
	if l.working.Load() {
		summary.Duration = l.clock.Now().Sub(summary.StartedAt)
	}
	return summary
}

func (l *Loader) update(fn func(s *Summary)) {
	l.progressLock.Lock()
	defer l.progressLock.Unlock()
	fn(&l.progress)
}

func (l *Loader) stopRequested(ctx context.Context) bool {
	return l.stop.Load() || ctx.Err() != nil
}

// Load pulls recipes from the visitor until it is exhausted, gives up or is
// stopped. Failures never abort the run, they are counted in the Summary.
func (l *Loader) Load(ctx context.Context) Summary {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(
		attribute.String("site", l.visitor.Name()),
		attribute.Int64("language_id", l.options.LanguageId),
	)

	l.working.Store(true)
	l.failed.Store(false)
	startedAt := l.clock.Now()
	l.update(func(s *Summary) {
		*s = Summary{Site: l.visitor.Name(), StartedAt: startedAt}
	})
	defer func() {
		l.stop.Store(false)
		l.working.Store(false)
	}()

	resolver := resolve.NewResolver(l.store, l.options.LanguageId)

	if l.visitor.State() == scraping.STATE_INIT {
		err := l.visitor.Connect(ctx)
		if err != nil {
			l.tel.ReportWarning(report_loader_connect, err)
		}
	}

	for {
		if l.stopRequested(ctx) {
			l.update(func(s *Summary) { s.Stopped = true })
			break
		}

		recipe, ok := l.visitor.Next(ctx)
		if !ok && l.visitor.State() == scraping.STATE_ERROR {
			recipe, ok = l.retryScrape(ctx)
		}
		if !ok {
			break
		}

		l.persist(ctx, resolver, recipe)
	}

	finishedAt := l.clock.Now()
	l.update(func(s *Summary) {
		s.Error = l.failed.Load()
		s.Duration = finishedAt.Sub(startedAt)
	})
	summary := l.Progress()
	if summary.Error {
		span.SetStatus(codes.Error, "gave up after repeated scrape failures")
	}
	span.SetAttributes(
		attribute.Int("persisted", summary.Persisted),
		attribute.Int("dropped", summary.Dropped),
	)
	return summary
}

func (l *Loader) wait(ctx context.Context) {
	if l.options.RetryDelay <= 0 {
		return
	}
	timer := time.NewTimer(l.options.RetryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// retryScrape recovers the visitor and retries up to MAX_RETRIES times. The
// last attempt of a round skips the element or page that keeps failing and
// starts a new round.
//
// Load only calls it for a miss that left the visitor in STATE_ERROR, and a
// visitor that runs out of elements after a skip ends the run without
// setting IsError: exhaustion is the normal end of a site, not a failure.
// IsError is set when MaxSkips is reached or the error cannot be skipped.
func (l *Loader) retryScrape(ctx context.Context) (scraping.ScrapedRecipe, bool) {
	skips := 0
	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		if l.stopRequested(ctx) {
			return scraping.ScrapedRecipe{}, false
		}
		l.wait(ctx)

		l.visitor.Recover()
		recipe, ok := l.visitor.Next(ctx)
		l.update(func(s *Summary) { s.Retries++ })
		retryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("site", l.visitor.Name())))
		if ok {
			return recipe, true
		}
		if l.visitor.State() != scraping.STATE_ERROR {
			// ran out of elements after a skip
			return scraping.ScrapedRecipe{}, false
		}

		if attempt < MAX_RETRIES-1 {
			continue
		}
		if l.options.MaxSkips > 0 && skips >= l.options.MaxSkips {
			break
		}

		code := l.visitor.ErrorCode()
		switch code {
		case scraping.ERROR_SCRAPE_FAILED:
			l.visitor.SkipCurrentElement()
			l.update(func(s *Summary) { s.SkippedElements++ })
		case scraping.ERROR_PAGE_LOAD_FAILED:
			l.visitor.SkipCurrentPage()
			l.update(func(s *Summary) { s.SkippedPages++ })
		default:
			continue
		}
		skips++
		skipCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("site", l.visitor.Name()),
			attribute.String("cause", code.String()),
		))
		l.tel.ReportWarning(report_loader_skip, code.String(), l.visitor.Cursor())
		attempt = -1
	}

	l.failed.Store(true)
	l.tel.ReportBroken(report_loader_retry, fmt.Errorf("gave up at %+v: %s", l.visitor.Cursor(), l.visitor.ErrorCode()), skips)
	return scraping.ScrapedRecipe{}, false
}

// persist resolves every named ingredient of the recipe and saves it, a
// recipe with any unresolved ingredient is dropped as a whole.
func (l *Loader) persist(ctx context.Context, resolver *resolve.Resolver, recipe scraping.ScrapedRecipe) {
	ctx, span := tracer.Start(ctx, "persist")
	defer span.End()
	span.SetAttributes(attribute.String("url", recipe.Url))

	siteAttr := metric.WithAttributes(attribute.String("site", l.visitor.Name()))

	record := RecipeRecord{
		Source:   l.options.Source,
		Url:      recipe.Url,
		Name:     recipe.Name,
		Servings: recipe.Servings,
	}
	var unresolved []string
	for _, ingredient := range recipe.Ingredients {
		if strings.TrimSpace(ingredient.Name) == "" {
			continue
		}
		match, ok, err := resolver.Resolve(ctx, ingredient.Name)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			l.tel.ReportBroken(report_loader_resolve, err, recipe.Url)
			l.update(func(s *Summary) { s.Failed++ })
			return
		}
		if !ok {
			unresolved = append(unresolved, ingredient.Name)
			continue
		}
		record.Ingredients = append(record.Ingredients, IngredientRecord{
			IngredientID: match.IngredientID,
			ScrapedName:  ingredient.Name,
			Measure:      ingredient.Measure,
			Amount:       ingredient.Amount,
		})
	}

	if len(unresolved) > 0 {
		l.tel.ReportWarning(report_loader_unresolved, recipe.Url, unresolved)
		l.update(func(s *Summary) { s.Dropped++ })
		droppedCounter.Add(ctx, 1, siteAttr)
		return
	}
	if len(record.Ingredients) == 0 {
		l.tel.ReportWarning(report_loader_unresolved, recipe.Url, "no ingredients")
		l.update(func(s *Summary) { s.Dropped++ })
		droppedCounter.Add(ctx, 1, siteAttr)
		return
	}

	id, err := l.store.SaveRecipe(ctx, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.tel.ReportBroken(report_loader_save, err, recipe.Url)
		l.update(func(s *Summary) { s.Failed++ })
		return
	}
	span.SetAttributes(attribute.Int64("recipe_id", id))

	var persisted int
	l.update(func(s *Summary) {
		s.Persisted++
		persisted = s.Persisted
	})
	persistedCounter.Add(ctx, 1, siteAttr)
	l.tel.ReportCount(report_loader_persisted, int64(persisted))

	if l.options.OnRecipeScraped != nil {
		l.options.OnRecipeScraped(recipe)
	}
}
