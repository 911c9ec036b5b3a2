// Package graphstore provides durable, idempotent persistence for the
// materialised transit graph: Station nodes, WALKABLE edges, and
// TRANSPORT edges, keyed by the natural identities spec.md §3 defines.
package graphstore

import (
	"context"
	"time"

	"github.com/forentfraps/navigator/internal/models"
)

// OutTransportEdge is a neighbour reached by an outbound scheduled hop.
type OutTransportEdge struct {
	Neighbour  string
	ThreadUID  string
	Departure  time.Time
	Arrival    time.Time
	TravelSec  float64
}

// OutWalkEdge is a neighbour reached by a walking transfer.
type OutWalkEdge struct {
	Neighbour  string
	DistanceKM float64
	TravelSec  float64
}

// Store is the durable labelled-graph repository contract (spec.md §4.3).
// The Materialiser depends on this interface, not a concrete driver, so
// it can be tested against an in-memory fake.
type Store interface {
	UpsertStations(ctx context.Context, batch []models.Station) error
	UpsertWalkEdges(ctx context.Context, batch []models.WalkEdge) error
	UpsertTransportEdges(ctx context.Context, batch []models.TransportEdge) error

	OutTransport(ctx context.Context, code string, sinceInstant time.Time) ([]OutTransportEdge, error)
	OutWalk(ctx context.Context, code string, maxKM float64) ([]OutWalkEdge, error)
	InTransport(ctx context.Context, code string, untilInstant time.Time) ([]OutTransportEdge, error)
	InWalk(ctx context.Context, code string, maxKM float64) ([]OutWalkEdge, error)
}
