// Package resolve maps free text ingredient names to canonical ingredients
// with Jaro-Winkler similarity.
package resolve

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// MATCH_THRESHOLD is the minimum similarity for a scraped name to be
// accepted as a canonical ingredient.
const MATCH_THRESHOLD = 0.88

// Candidate is a canonical name or alias of an ingredient.
type Candidate struct {
	IngredientID int64
	Name         string
}

type Match struct {
	IngredientID int64
	// Name is the canonical name or alias that was matched.
	Name    string
	Score   float64
	ByAlias bool
}

// Normalize lowercases the name, trims it and collapses inner whitespace.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// BestMatch returns the candidate most similar to name. The first candidate
// wins ties. It returns false only when there are no candidates, the caller
// decides whether the score is good enough.
func BestMatch(name string, candidates []Candidate) (Match, bool) {
	name = Normalize(name)

	var best Match
	found := false
	for _, candidate := range candidates {
		similarity := matchr.JaroWinkler(name, Normalize(candidate.Name), false)
		if !found || similarity > best.Score {
			best = Match{
				IngredientID: candidate.IngredientID,
				Name:         candidate.Name,
				Score:        similarity,
			}
			found = true
		}
	}
	return best, found
}

// Accept tries the canonical names first and the aliases second, a pass
// only counts if its best score reaches MATCH_THRESHOLD.
func Accept(name string, names, aliases []Candidate) (Match, bool) {
	match, ok := BestMatch(name, names)
	if ok && match.Score >= MATCH_THRESHOLD {
		return match, true
	}

	match, ok = BestMatch(name, aliases)
	if ok && match.Score >= MATCH_THRESHOLD {
		match.ByAlias = true
		return match, true
	}
	return Match{}, false
}
