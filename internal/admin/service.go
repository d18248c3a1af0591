// Package admin runs and inspects ingestion runs, it is served over connect
// rpc by the server and used in-process by the cli.
package admin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"recipes-backend/internal/assert"
	"recipes-backend/internal/components/chrono"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/ingest"
	"recipes-backend/internal/resolve"
	"recipes-backend/internal/scrapers/sites"
	"recipes-backend/internal/store"
	"slices"
	"sync"
	"time"

	"github.com/mazen160/go-random"
	"golang.org/x/sync/errgroup"
)

const (
	report_run_start  = "run.start"
	report_run_finish = "run.finish"
	report_run_notify = "run.notify"
)

var (
	ErrRunInProgress      = errors.New("an ingestion run is already in progress")
	ErrNoSites            = errors.New("no sites selected")
	ErrUnknownIngredient  = errors.New("unknown canonical ingredient")
	ErrNoIngredientSource = errors.New("no ingredient catalog configured")
)

// Store is the persistence the admin actions need.
type Store interface {
	ingest.Store
	ingest.Seeder
	AddAlias(ctx context.Context, ingredientId, languageId int64, alias string) error
	IngredientId(ctx context.Context, languageId int64, name string) (int64, bool, error)
	GetRecipe(ctx context.Context, url string, languageId int64) (store.Recipe, bool, error)
	CountRecipesBySource(ctx context.Context) (map[string]int64, error)
}

// Notifier is told about every finished run.
type Notifier interface {
	NotifyRun(ctx context.Context, report ingest.RunReport) error
}

type Options struct {
	// Sites is used when a start request selects none.
	Sites      []string
	LanguageId int64
	RetryDelay time.Duration
	MaxSkips   int
	// Notifier is optional.
	Notifier Notifier
}

type run struct {
	id        string
	startedAt time.Time
	sites     []string
	loaders   []*ingest.Loader
	done      chan struct{}
	report    ingest.RunReport
}

type Service struct {
	ctx      context.Context
	registry sites.Registry
	store    Store
	catalog  ingest.Catalog
	options  Options
	clock    chrono.TimeAPI
	tel      telemetry.API
	// runTel is handed to visitors and loaders, they scope it themselves.
	runTel telemetry.API

	mutex   sync.Mutex
	current *run
}

// NewService creates a Service, runs are bound to ctx rather than to the
// request that started them. catalog may be nil.
func NewService(
	ctx context.Context,
	registry sites.Registry,
	store Store,
	catalog ingest.Catalog,
	options Options,
	clock chrono.TimeAPI,
	tel telemetry.API,
) *Service {
	assert.NotNil(store)
	assert.NotNil(clock)
	assert.NotNil(tel)

	if options.LanguageId == 0 {
		options.LanguageId = 1
	}

	return &Service{
		ctx:      ctx,
		registry: registry,
		store:    store,
		catalog:  catalog,
		options:  options,
		clock:    clock,
		tel:      telemetry.NewScopedAPI("admin", tel),
		runTel:   tel,
	}
}

// Start loads the given sites concurrently in the background and returns
// the id of the run.
func (s *Service) Start(siteNames []string, startPage int, languageId int64) (string, []string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.current != nil && !s.current.finished() {
		return "", nil, ErrRunInProgress
	}

	if len(siteNames) == 0 {
		siteNames = s.options.Sites
	}
	siteNames = slices.Clone(siteNames)
	slices.Sort(siteNames)
	siteNames = slices.Compact(siteNames)
	if len(siteNames) == 0 {
		return "", nil, ErrNoSites
	}
	if languageId == 0 {
		languageId = s.options.LanguageId
	}

	loaders := make([]*ingest.Loader, len(siteNames))
	for i, name := range siteNames {
		visitor, err := s.registry.NewVisitor(name, startPage, s.runTel)
		if err != nil {
			return "", nil, err
		}
		loaders[i] = ingest.NewLoader(visitor, s.store, ingest.Options{
			LanguageId: languageId,
			RetryDelay: s.options.RetryDelay,
			MaxSkips:   s.options.MaxSkips,
		}, s.clock, s.runTel)
	}

	id, err := random.String(12)
	if err != nil {
		return "", nil, fmt.Errorf("generate run id: %w", err)
	}
	r := &run{
		id:        id,
		startedAt: s.clock.Now(),
		sites:     siteNames,
		loaders:   loaders,
		done:      make(chan struct{}),
	}
	s.current = r
	s.tel.ReportDebug(report_run_start, "run_id", id, "sites", siteNames, "start_page", startPage)

	go s.execute(r)
	return id, siteNames, nil
}

func (s *Service) execute(r *run) {
	defer close(r.done)

	summaries := make([]ingest.Summary, len(r.loaders))
	group := errgroup.Group{}
	for i, loader := range r.loaders {
		group.Go(func() error {
			summaries[i] = loader.Load(s.ctx)
			return nil
		})
	}
	group.Wait()

	r.report = ingest.RunReport{
		Id:         r.id,
		StartedAt:  r.startedAt,
		FinishedAt: s.clock.Now(),
		Summaries:  summaries,
	}
	for _, summary := range summaries {
		s.tel.ReportDebug(summary.String(), "run_id", r.id)
	}
	if r.report.Failed() {
		s.tel.ReportWarning(report_run_finish, r.id, r.report.Totals().String())
	}
	s.tel.ReportCount(report_run_finish, int64(r.report.Totals().Persisted))

	if s.options.Notifier != nil {
		err := s.options.Notifier.NotifyRun(s.ctx, r.report)
		if err != nil {
			s.tel.ReportWarning(report_run_notify, err, r.id)
		}
	}
}

func (r *run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the current run finishes and returns its report.
func (s *Service) Wait(ctx context.Context) (ingest.RunReport, error) {
	s.mutex.Lock()
	r := s.current
	s.mutex.Unlock()
	if r == nil {
		return ingest.RunReport{}, nil
	}

	select {
	case <-r.done:
		return r.report, nil
	case <-ctx.Done():
		return ingest.RunReport{}, ctx.Err()
	}
}

func (s *Service) Status() GetStatusResponse {
	s.mutex.Lock()
	r := s.current
	s.mutex.Unlock()
	if r == nil {
		return GetStatusResponse{}
	}

	out := GetStatusResponse{
		RunId:   r.id,
		Working: !r.finished(),
		Sites:   make([]SiteStatus, len(r.loaders)),
	}
	for i, loader := range r.loaders {
		out.Sites[i] = SiteStatus{
			Site:    r.sites[i],
			Working: loader.IsWorking(),
			Error:   loader.IsError(),
			Summary: loader.Progress(),
		}
	}
	return out
}

// Stop asks every loader of the current run to stop, it returns false when
// nothing is running.
func (s *Service) Stop() bool {
	s.mutex.Lock()
	r := s.current
	s.mutex.Unlock()
	if r == nil || r.finished() {
		return false
	}
	for _, loader := range r.loaders {
		loader.Stop()
	}
	return true
}

func (s *Service) Seed(ctx context.Context, languageId int64) (ingest.SeedSummary, error) {
	if s.catalog == nil {
		return ingest.SeedSummary{}, ErrNoIngredientSource
	}
	if languageId == 0 {
		languageId = s.options.LanguageId
	}
	return ingest.Seed(ctx, s.catalog, s.store, languageId)
}

// Resolve matches a single name the way a run would. When nothing is
// accepted the closest canonical name is returned with Found unset.
func (s *Service) Resolve(ctx context.Context, name string, languageId int64) (ResolveIngredientResponse, error) {
	if languageId == 0 {
		languageId = s.options.LanguageId
	}
	resolver := resolve.NewResolver(s.store, languageId)

	match, ok, err := resolver.Resolve(ctx, name)
	if err != nil {
		return ResolveIngredientResponse{}, err
	}
	if !ok {
		match, _, err = resolver.Closest(ctx, name)
		if err != nil {
			return ResolveIngredientResponse{}, err
		}
	}
	return ResolveIngredientResponse{
		Found:         ok,
		IngredientId:  match.IngredientID,
		CanonicalName: match.Name,
		Score:         match.Score,
		ByAlias:       match.ByAlias,
	}, nil
}

func (s *Service) AddAlias(ctx context.Context, canonicalName, alias string, languageId int64) (int64, error) {
	if languageId == 0 {
		languageId = s.options.LanguageId
	}
	if resolve.Normalize(alias) == "" {
		return 0, fmt.Errorf("alias must not be empty")
	}

	id, ok, err := s.store.IngredientId(ctx, languageId, canonicalName)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownIngredient, canonicalName)
	}
	err = s.store.AddAlias(ctx, id, languageId, alias)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Ingredients lists the canonical vocabulary of a language ordered by id.
func (s *Service) Ingredients(ctx context.Context, languageId int64) ([]Ingredient, error) {
	if languageId == 0 {
		languageId = s.options.LanguageId
	}
	names, err := s.store.FindCanonicalNamesByLanguage(ctx, languageId)
	if err != nil {
		return nil, err
	}
	aliases, err := s.store.FindAliasesByLanguage(ctx, languageId)
	if err != nil {
		return nil, err
	}

	byId := make(map[int64][]string, len(aliases))
	for _, alias := range aliases {
		byId[alias.IngredientID] = append(byId[alias.IngredientID], alias.Name)
	}
	out := make([]Ingredient, len(names))
	for i, name := range names {
		out[i] = Ingredient{
			Id:      name.IngredientID,
			Name:    name.Name,
			Aliases: byId[name.IngredientID],
		}
	}
	slices.SortFunc(out, func(a, b Ingredient) int {
		return cmp.Compare(a.Id, b.Id)
	})
	return out, nil
}

func (s *Service) Recipe(ctx context.Context, url string, languageId int64) (store.Recipe, bool, error) {
	if languageId == 0 {
		languageId = s.options.LanguageId
	}
	return s.store.GetRecipe(ctx, url, languageId)
}

func (s *Service) Stats(ctx context.Context) (map[string]int64, error) {
	return s.store.CountRecipesBySource(ctx)
}
