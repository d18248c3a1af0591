// Package scraping contains the site-independent part of recipe ingestion:
// the records produced by site adapters and the visitor state machine that
// drives a traversal over one source site.
package scraping

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MEASURE_TO_TASTE = "to taste"
	MEASURE_PIECE    = "pc"
	MEASURE_UNKNOWN  = "na"
)

type ScrapedIngredient struct {
	Name    string
	Measure string
	Amount  float64
}

func (i ScrapedIngredient) String() string {
	return fmt.Sprintf("%g %s %s", i.Amount, i.Measure, i.Name)
}

// ScrapedRecipe is the content of one recipe detail page, Url is its
// identity key.
type ScrapedRecipe struct {
	Url         string
	Name        string
	Servings    int
	Ingredients []ScrapedIngredient
}

func (r ScrapedRecipe) String() string {
	return fmt.Sprintf("%s (%s, %d servings, %d ingredients)", r.Name, r.Url, r.Servings, len(r.Ingredients))
}

// ParseAmount parses the quantity part of an ingredient line. It accepts
// decimal points or commas ("0,5") and simple fractions ("1/2").
func ParseAmount(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	text = strings.ReplaceAll(text, ",", ".")

	numerator, denominator, isFraction := strings.Cut(text, "/")
	if isFraction {
		n, err := strconv.ParseFloat(numerator, 64)
		if err != nil {
			return 0, false
		}
		d, err := strconv.ParseFloat(denominator, 64)
		if err != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
