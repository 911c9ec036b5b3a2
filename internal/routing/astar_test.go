package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forentfraps/navigator/internal/graphstore"
	"github.com/forentfraps/navigator/internal/models"
)

// fakeGraph is a tiny in-memory Expander + Coordinates fixture used to
// exercise the Search Core against the seed scenarios of spec.md §8
// without a real graph store or schedule source.
type fakeGraph struct {
	coords    map[string][2]float64
	transport []models.TransportEdge
	walk      []models.WalkEdge
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{coords: make(map[string][2]float64)}
}

func (g *fakeGraph) station(code string, lat, lon float64) {
	g.coords[code] = [2]float64{lat, lon}
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
	var w []graphstore.OutWalkEdge
	for _, e := range g.walk {
		if e.From == station {
			w = append(w, graphstore.OutWalkEdge{Neighbour: e.To, DistanceKM: e.DistanceKM, TravelSec: e.DistanceKM * 720})
		}
	}
	return t, w, nil
}

func (g *fakeGraph) Inbound(_ context.Context, station string, at time.Time) ([]graphstore.OutTransportEdge, []graphstore.OutWalkEdge, error) {
	var t []graphstore.OutTransportEdge
	for _, e := range g.transport {
		if e.To == station && !e.Arrival.After(at) {
			t = append(t, graphstore.OutTransportEdge{Neighbour: e.From, ThreadUID: e.ThreadUID, Departure: e.Departure, Arrival: e.Arrival})
		}
	}
	var w []graphstore.OutWalkEdge
	for _, e := range g.walk {
		if e.To == station {
			w = append(w, graphstore.OutWalkEdge{Neighbour: e.From, DistanceKM: e.DistanceKM, TravelSec: e.DistanceKM * 720})
		}
	}
	return t, w, nil
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return ts
}

// S1 — single scheduled hop.
func TestBidirectionalSearch_SingleHop(t *testing.T) {
	g := newFakeGraph()
	g.station("A", 0, 0)
	g.station("B", 0, 0.01)
	g.transport = []models.TransportEdge{
		{From: "A", To: "B", ThreadUID: "T1", Departure: mustParse(t, "2026-01-01 10:00:00"), Arrival: mustParse(t, "2026-01-01 11:00:00")},
	}

	engine := New(g, g, 160, 1.0, 720, 48*time.Hour)
	itin, err := engine.BidirectionalSearch(context.Background(), []string{"A"}, []string{"B"}, mustParse(t, "2026-01-01 09:00:00"), models.ModeTime)
	require.NoError(t, err)
	require.False(t, itin.Empty())
	require.Len(t, itin.Legs, 1)
	assert.Equal(t, models.LegTransport, itin.Legs[0].Kind)
	assert.Equal(t, "A", itin.Legs[0].From)
	assert.Equal(t, "B", itin.Legs[0].To)
	assert.Equal(t, float64(7200), itin.Legs[0].CostSec)
}

// S3 — walk transfer between adjacent stations.
func TestBidirectionalSearch_WalkTransfer(t *testing.T) {
	g := newFakeGraph()
	g.station("A", 0, 0)
	g.station("B", 0, 0.01)
	g.station("C", 0.003, 0.01) // ~0.3km from B
	g.transport = []models.TransportEdge{
		{From: "A", To: "B", ThreadUID: "T1", Departure: mustParse(t, "2026-01-01 09:45:00"), Arrival: mustParse(t, "2026-01-01 10:00:00")},
	}
	g.walk = []models.WalkEdge{
		{From: "B", To: "C", DistanceKM: 0.3},
		{From: "C", To: "B", DistanceKM: 0.3},
	}

	engine := New(g, g, 160, 1.0, 720, 48*time.Hour)
	itin, err := engine.BidirectionalSearch(context.Background(), []string{"A"}, []string{"C"}, mustParse(t, "2026-01-01 09:30:00"), models.ModeTime)
	require.NoError(t, err)
	require.Len(t, itin.Legs, 2)
	assert.Equal(t, models.LegTransport, itin.Legs[0].Kind)
	assert.Equal(t, models.LegWalk, itin.Legs[1].Kind)
	assert.Equal(t, "B", itin.Legs[1].From)
	assert.Equal(t, "C", itin.Legs[1].To)
}

// S4 — multi-origin multi-destination.
func TestBidirectionalSearch_MultiOriginDestination(t *testing.T) {
	g := newFakeGraph()
	for _, c := range []string{"A1", "A2", "B1", "B2"} {
		g.station(c, 0, 0)
	}
	g.transport = []models.TransportEdge{
		{From: "A2", To: "B1", ThreadUID: "T1", Departure: mustParse(t, "2026-01-01 10:00:00"), Arrival: mustParse(t, "2026-01-01 10:30:00")},
	}

	engine := New(g, g, 160, 1.0, 720, 48*time.Hour)
	itin, err := engine.BidirectionalSearch(context.Background(), []string{"A1", "A2"}, []string{"B1", "B2"}, mustParse(t, "2026-01-01 09:00:00"), models.ModeTime)
	require.NoError(t, err)
	require.Len(t, itin.Legs, 1)
	assert.Equal(t, "A2", itin.Legs[0].From)
	assert.Equal(t, "B1", itin.Legs[0].To)
}

// S5 — no feasible path.
func TestBidirectionalSearch_NoPath(t *testing.T) {
	g := newFakeGraph()
	g.station("A", 0, 0)
	g.station("B", 10, 10)

	engine := New(g, g, 160, 1.0, 720, 48*time.Hour)
	itin, err := engine.BidirectionalSearch(context.Background(), []string{"A"}, []string{"B"}, mustParse(t, "2026-01-01 09:00:00"), models.ModeTime)
	require.NoError(t, err)
	assert.True(t, itin.Empty())
}

// S6 — bidirectional meeting: two chains meeting at M.
func TestBidirectionalSearch_MeetingNode(t *testing.T) {
	g := newFakeGraph()
	for _, c := range []string{"A", "X1", "M", "X2", "B"} {
		g.station(c, 0, 0)
	}
	dep := mustParse(t, "2026-01-01 09:00:00")
	g.transport = []models.TransportEdge{
		{From: "A", To: "X1", ThreadUID: "T1", Departure: dep, Arrival: dep.Add(10 * time.Minute)},
		{From: "X1", To: "M", ThreadUID: "T1", Departure: dep.Add(10 * time.Minute), Arrival: dep.Add(20 * time.Minute)},
		{From: "M", To: "X2", ThreadUID: "T2", Departure: dep.Add(25 * time.Minute), Arrival: dep.Add(35 * time.Minute)},
		{From: "X2", To: "B", ThreadUID: "T2", Departure: dep.Add(35 * time.Minute), Arrival: dep.Add(45 * time.Minute)},
	}

	engine := New(g, g, 160, 1.0, 720, 48*time.Hour)
	itin, err := engine.BidirectionalSearch(context.Background(), []string{"A"}, []string{"B"}, dep, models.ModeTime)
	require.NoError(t, err)
	require.Len(t, itin.Legs, 4)
	assert.Equal(t, "A", itin.Legs[0].From)
	assert.Equal(t, "B", itin.Legs[len(itin.Legs)-1].To)
}

func TestUniqueCodes(t *testing.T) {
	got := UniqueCodes([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
