package devenv

// LiveSitesConfig selects the sites the live scraper tests visit, the tests
// are skipped when dev/.state/live_sites.json5 does not exist.
type LiveSitesConfig struct {
	Sites []string `json:"sites"`
	// Recipes is the number of recipes pulled from each site.
	Recipes int `json:"recipes"`
}
