// Package sites maps site names to visitor factories.
package sites

import (
	"errors"
	"fmt"
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/scrapers/aprosef"
	"recipes-backend/internal/scrapers/kaloriaguru"
	"recipes-backend/internal/scrapers/mindmegette"
	"recipes-backend/internal/scrapers/nosalty"
	"recipes-backend/internal/scraping"
	"slices"
	"strings"
)

// Config carries the configuration of every scraper, all fields are
// optional and fall back to each scraper's defaults.
type Config struct {
	Nosalty     nosalty.Config     `json:"nosalty"`
	Aprosef     aprosef.Config     `json:"aprosef"`
	Mindmegette mindmegette.Config `json:"mindmegette"`
	Kaloriaguru kaloriaguru.Config `json:"kaloriaguru"`
}

var ErrNegativeStartPage = errors.New("start page must not be negative")

type UnknownSiteError struct {
	Name  string
	Known []string
}

func (e UnknownSiteError) Error() string {
	return fmt.Sprintf("unknown site %q (known sites: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Factory creates a fresh visitor positioned at startPage.
type Factory func(startPage int, tel telemetry.API) (scraping.Visitor, error)

type Registry struct {
	config    Config
	factories map[string]Factory
}

func NewRegistry(config Config) Registry {
	return Registry{
		config: config,
		factories: map[string]Factory{
			nosalty.NAME: func(startPage int, tel telemetry.API) (scraping.Visitor, error) {
				return visitor(nosalty.NewVisitor(config.Nosalty, startPage, tel))
			},
			aprosef.NAME: func(startPage int, tel telemetry.API) (scraping.Visitor, error) {
				return visitor(aprosef.NewVisitor(config.Aprosef, startPage, tel))
			},
			mindmegette.NAME: func(startPage int, tel telemetry.API) (scraping.Visitor, error) {
				return visitor(mindmegette.NewVisitor(config.Mindmegette, startPage, tel))
			},
		},
	}
}

// visitor avoids returning a typed nil inside the interface.
func visitor[V scraping.Visitor](v V, err error) (scraping.Visitor, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Register adds or replaces a factory.
func (r Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Names returns the registered site names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r Registry) NewVisitor(name string, startPage int, tel telemetry.API) (scraping.Visitor, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, UnknownSiteError{Name: name, Known: r.Names()}
	}
	if startPage < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrNegativeStartPage, startPage)
	}
	return factory(startPage, tel)
}

func (r Registry) NewCatalog(tel telemetry.API) (*kaloriaguru.Scraper, error) {
	return kaloriaguru.NewScraper(r.config.Kaloriaguru, tel)
}
