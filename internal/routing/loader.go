package routing

import (
	"context"
	"time"

	"github.com/forentfraps/navigator/internal/catalogue"
	"github.com/forentfraps/navigator/internal/graphstore"
	"github.com/forentfraps/navigator/internal/materialise"
)

// StoreExpander adapts a Materialiser into the Expander interface the
// Search Core consumes, so the engine's hot loop never imports the
// materialise package directly. Grounded on the teacher's loader.go,
// whose role of assembling the data the engine consumes from the
// database is repurposed here into assembling the runtime adapter the
// engine consumes from the store and catalogue instead of a bulk
// in-memory preload.
type StoreExpander struct {
	materialiser *materialise.Materialiser
}

// NewStoreExpander wraps a Materialiser for use as an Engine's Expander.
func NewStoreExpander(m *materialise.Materialiser) *StoreExpander {
	return &StoreExpander{materialiser: m}
}

// Outbound satisfies Expander by delegating to EnsureOutbound.
func (s *StoreExpander) Outbound(ctx context.Context, station string, at time.Time) ([]graphstore.OutTransportEdge, []graphstore.OutWalkEdge, error) {
	return s.materialiser.EnsureOutbound(ctx, station, at)
}

// Inbound satisfies Expander by delegating to EnsureInbound.
func (s *StoreExpander) Inbound(ctx context.Context, station string, at time.Time) ([]graphstore.OutTransportEdge, []graphstore.OutWalkEdge, error) {
	return s.materialiser.EnsureInbound(ctx, station, at)
}

// CatalogueCoordinates adapts the Station Catalogue into the
// Coordinates interface the heuristic consumes.
type CatalogueCoordinates struct {
	catalogue *catalogue.Catalogue
}

// NewCatalogueCoordinates wraps a Catalogue for use as an Engine's
// Coordinates source.
func NewCatalogueCoordinates(c *catalogue.Catalogue) *CatalogueCoordinates {
	return &CatalogueCoordinates{catalogue: c}
}

// Coordinates satisfies Coordinates by looking the station up in the
// catalogue.
func (c *CatalogueCoordinates) Coordinates(code string) (lat, lon float64, ok bool) {
	st, found := c.catalogue.Station(code)
	if !found || !st.HasCoordinates() {
		return 0, 0, false
	}
	return st.Lat, st.Lon, true
}
