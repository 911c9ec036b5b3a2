package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forentfraps/navigator/internal/models"
)

const fixture = `{
  "countries": [
    {
      "title": "Country",
      "regions": [
        {
          "title": "Region",
          "settlements": [
            {
              "title": "Kazanograd",
              "codes": {"yandex_code": "s1"},
              "stations": [
                {"title": "Central", "codes": {"yandex_code": "st1", "esr_code": "e1"}, "latitude": 55.0, "longitude": 37.0, "transport_type": "train", "station_type": "station"},
                {"title": "North", "codes": {"yandex_code": "st2"}, "latitude": 55.01, "longitude": 37.0, "transport_type": "train", "station_type": "station"}
              ]
            }
          ]
        }
      ]
    }
  ]
}`

func newLoadedCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "resp.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	c := New(path)
	require.NoError(t, c.LoadFromFile())
	return c
}

func TestLoadFromFile_PopulatesIndexes(t *testing.T) {
	c := newLoadedCatalogue(t)

	st, ok := c.Station("st1")
	require.True(t, ok)
	assert.Equal(t, "Central", st.Title)
	assert.Equal(t, "e1", st.ESRCode)

	codes := c.StationsInSettlement("s1")
	assert.ElementsMatch(t, []string{"st1", "st2"}, codes)
}

func TestSearchSettlements_TruncationRetry(t *testing.T) {
	c := newLoadedCatalogue(t)

	exact := c.SearchSettlements("kazano")
	require.Len(t, exact, 1)

	// A trailing typo yields no direct match but should succeed via the
	// truncation-retry fallback (original_source/dumper.py's
	// try_search_settlement behaviour).
	typo := c.SearchSettlements("kazanogradx")
	require.Len(t, typo, 1)
	assert.Equal(t, "Kazanograd", typo[0].Title)
}

func TestWalkCandidates_BoundingBoxAndHaversine(t *testing.T) {
	c := newLoadedCatalogue(t)
	st1, _ := c.Station("st1")

	candidates := c.WalkCandidates(st1, 2.0)
	require.Len(t, candidates, 1)
	assert.Equal(t, "st2", candidates[0].Station.Code)
	assert.InDelta(t, 1.11, candidates[0].DistanceKM, 0.1)

	// A tighter radius excludes the same candidate.
	none := c.WalkCandidates(st1, 0.5)
	assert.Empty(t, none)
}

func TestUpsertStation_AddsUnseenStation(t *testing.T) {
	c := newLoadedCatalogue(t)
	c.UpsertStation(models.Station{Code: "new1", Title: "Freshly Seen", Lat: 55.02, Lon: 37.0})
	st, ok := c.Station("new1")
	require.True(t, ok)
	assert.Equal(t, "Freshly Seen", st.Title)
}
