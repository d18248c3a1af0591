package resolve

import (
	"context"
	"fmt"
	"recipes-backend/internal/assert"
	"sync"
)

// Source provides the canonical vocabulary of a language.
type Source interface {
	FindCanonicalNamesByLanguage(ctx context.Context, languageId int64) ([]Candidate, error)
	FindAliasesByLanguage(ctx context.Context, languageId int64) ([]Candidate, error)
}

// Resolver resolves names against the vocabulary of one language. The
// vocabulary is read once and cached until Invalidate is called.
type Resolver struct {
	source     Source
	languageId int64

	mutex   sync.Mutex
	loaded  bool
	names   []Candidate
	aliases []Candidate
}

func NewResolver(source Source, languageId int64) *Resolver {
	assert.NotNil(source)
	return &Resolver{
		source:     source,
		languageId: languageId,
	}
}

func (r *Resolver) LanguageId() int64 {
	return r.languageId
}

// Invalidate drops the cached vocabulary so the next Resolve reads it again.
func (r *Resolver) Invalidate() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.loaded = false
	r.names = nil
	r.aliases = nil
}

func (r *Resolver) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	names, err := r.source.FindCanonicalNamesByLanguage(ctx, r.languageId)
	if err != nil {
		return fmt.Errorf("find canonical names (language %d): %w", r.languageId, err)
	}
	aliases, err := r.source.FindAliasesByLanguage(ctx, r.languageId)
	if err != nil {
		return fmt.Errorf("find aliases (language %d): %w", r.languageId, err)
	}

	r.names = names
	r.aliases = aliases
	r.loaded = true
	return nil
}

// Resolve returns the accepted match for name. The bool is false when
// neither the names nor the aliases reach MATCH_THRESHOLD.
func (r *Resolver) Resolve(ctx context.Context, name string) (Match, bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	err := r.load(ctx)
	if err != nil {
		return Match{}, false, err
	}
	match, ok := Accept(name, r.names, r.aliases)
	return match, ok, nil
}

// Closest returns the best candidate among names and aliases regardless of
// the threshold, it is meant for diagnostics of rejected names.
func (r *Resolver) Closest(ctx context.Context, name string) (Match, bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	err := r.load(ctx)
	if err != nil {
		return Match{}, false, err
	}
	byName, okName := BestMatch(name, r.names)
	byAlias, okAlias := BestMatch(name, r.aliases)
	byAlias.ByAlias = true
	switch {
	case okName && (!okAlias || byName.Score >= byAlias.Score):
		return byName, true, nil
	case okAlias:
		return byAlias, true, nil
	}
	return Match{}, false, nil
}
