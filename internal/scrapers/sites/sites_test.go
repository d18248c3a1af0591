package sites

import (
	"recipes-backend/internal/components/telemetry"
	"recipes-backend/internal/scraping"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry(Config{})
	require.Equal(t, []string{"aprosef", "mindmegette", "nosalty"}, registry.Names())

	for _, name := range registry.Names() {
		visitor, err := registry.NewVisitor(name, 3, &telemetry.Recorder{})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, name, visitor.Name())
		require.Equal(t, scraping.STATE_INIT, visitor.State())
		require.Equal(t, 3, visitor.Cursor().Page)
	}

	_, err := registry.NewVisitor("unknown", 0, &telemetry.Recorder{})
	require.ErrorAs(t, err, &UnknownSiteError{})
	require.ErrorContains(t, err, "known sites: aprosef, mindmegette, nosalty")
	_, err = registry.NewVisitor("nosalty", -1, &telemetry.Recorder{})
	require.ErrorIs(t, err, ErrNegativeStartPage)

	catalog, err := registry.NewCatalog(&telemetry.Recorder{})
	if err != nil {
		t.Fatal(err)
	}
	require.NotNil(t, catalog)
}
