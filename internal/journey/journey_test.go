package journey

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forentfraps/navigator/internal/catalogue"
	"github.com/forentfraps/navigator/internal/graphstore"
	"github.com/forentfraps/navigator/internal/models"
	"github.com/forentfraps/navigator/internal/routing"
)

// fakeGraph is a minimal Expander + Coordinates double, local to this
// package's tests (mirrors the one in internal/routing/astar_test.go,
// kept separate since it is unexported there).
type fakeGraph struct {
	coords    map[string][2]float64
	transport []models.TransportEdge
}

func (g *fakeGraph) Coordinates(code string) (float64, float64, bool) {
	c, ok := g.coords[code]
	if !ok {
		return 0, 0, false
	}
	return c[0], c[1], true
}

func (g *fakeGraph) Outbound(_ context.Context, station string, at time.Time) ([]graphstore.OutTransportEdge, []graphstore.OutWalkEdge, error) {
	var t []graphstore.OutTransportEdge
	for _, e := range g.transport {
		if e.From == station && !e.Departure.Before(at) {
			t = append(t, graphstore.OutTransportEdge{Neighbour: e.To, ThreadUID: e.ThreadUID, Departure: e.Departure, Arrival: e.Arrival})
		}
	}
	return t, nil, nil
}

func (g *fakeGraph) Inbound(_ context.Context, station string, at time.Time) ([]graphstore.OutTransportEdge, []graphstore.OutWalkEdge, error) {
	var t []graphstore.OutTransportEdge
	for _, e := range g.transport {
		if e.To == station && !e.Arrival.After(at) {
			t = append(t, graphstore.OutTransportEdge{Neighbour: e.From, ThreadUID: e.ThreadUID, Departure: e.Departure, Arrival: e.Arrival})
		}
	}
	return t, nil, nil
}

const twoSettlementFixture = `{
  "countries": [
    {
      "title": "Country",
      "regions": [
        {
          "title": "Region",
          "settlements": [
            {"title": "Origin Town", "codes": {"yandex_code": "sOrigin"}, "stations": [
              {"title": "Origin Station", "codes": {"yandex_code": "A"}, "latitude": 0, "longitude": 0}
            ]},
            {"title": "Dest Town", "codes": {"yandex_code": "sDest"}, "stations": [
              {"title": "Dest Station", "codes": {"yandex_code": "B"}, "latitude": 0, "longitude": 0.01}
            ]}
          ]
        }
      ]
    }
  ]
}`

func newTestCatalogue(t *testing.T) *catalogue.Catalogue {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resp.json")
	require.NoError(t, os.WriteFile(path, []byte(twoSettlementFixture), 0o644))
	c := catalogue.New(path)
	require.NoError(t, c.LoadFromFile())
	return c
}

func TestPlan_ReturnsItineraryForKnownSettlements(t *testing.T) {
	cat := newTestCatalogue(t)
	dep := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	g := &fakeGraph{
		coords: map[string][2]float64{"A": {0, 0}, "B": {0, 0.01}},
		transport: []models.TransportEdge{
			{From: "A", To: "B", ThreadUID: "T1", Departure: dep.Add(30 * time.Minute), Arrival: dep.Add(90 * time.Minute)},
		},
	}
	engine := routing.New(g, g, 160, 1.0, 720, 48*time.Hour)
	svc := New(cat, engine)

	itin, err := svc.Plan(context.Background(), "sOrigin", "sDest", dep, models.ModeTime)
	require.NoError(t, err)
	require.Len(t, itin.Legs, 1)
	assert.Equal(t, "A", itin.Legs[0].From)
	assert.Equal(t, "B", itin.Legs[0].To)
}

func TestPlan_UnknownSettlementFailsFast(t *testing.T) {
	cat := newTestCatalogue(t)
	g := &fakeGraph{coords: map[string][2]float64{}}
	engine := routing.New(g, g, 160, 1.0, 720, 48*time.Hour)
	svc := New(cat, engine)

	_, err := svc.Plan(context.Background(), "does-not-exist", "sDest", time.Now(), models.ModeTime)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSettlement))
}

func TestPlan_UnsupportedModeRejected(t *testing.T) {
	cat := newTestCatalogue(t)
	g := &fakeGraph{coords: map[string][2]float64{}}
	engine := routing.New(g, g, 160, 1.0, 720, 48*time.Hour)
	svc := New(cat, engine)

	_, err := svc.Plan(context.Background(), "sOrigin", "sDest", time.Now(), models.ModeBasic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedMode))
}

func TestPlanMultiLeg_ChainsArrivalToNextDeparture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
	  "countries": [{"title":"C","regions":[{"title":"R","settlements":[
	    {"title":"S1","codes":{"yandex_code":"s1"},"stations":[{"title":"A","codes":{"yandex_code":"A"},"latitude":0,"longitude":0}]},
	    {"title":"S2","codes":{"yandex_code":"s2"},"stations":[{"title":"B","codes":{"yandex_code":"B"},"latitude":0,"longitude":0.01}]},
	    {"title":"S3","codes":{"yandex_code":"s3"},"stations":[{"title":"C","codes":{"yandex_code":"C"},"latitude":0,"longitude":0.02}]}
	  ]}]}]}`), 0o644))
	cat := catalogue.New(path)
	require.NoError(t, cat.LoadFromFile())

	dep := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	g := &fakeGraph{
		coords: map[string][2]float64{"A": {0, 0}, "B": {0, 0.01}, "C": {0, 0.02}},
		transport: []models.TransportEdge{
			{From: "A", To: "B", ThreadUID: "T1", Departure: dep.Add(30 * time.Minute), Arrival: dep.Add(90 * time.Minute)},
			{From: "B", To: "C", ThreadUID: "T2", Departure: dep.Add(120 * time.Minute), Arrival: dep.Add(150 * time.Minute)},
		},
	}
	engine := routing.New(g, g, 160, 1.0, 720, 48*time.Hour)
	svc := New(cat, engine)

	itins, err := svc.PlanMultiLeg(context.Background(), []string{"s1", "s2", "s3"}, dep, models.ModeTime)
	require.NoError(t, err)
	require.Len(t, itins, 2)
	assert.Equal(t, "A", itins[0].Legs[0].From)
	assert.Equal(t, "B", itins[1].Legs[0].From)
}
