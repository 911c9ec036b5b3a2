// Package materialise turns Schedule Source responses into durable
// graph-store edges, on demand, the moment the Search Core's frontier
// needs them. Grounded on original_source/lazygraph.py's
// populate_transport_edges/populate_walkable_edges.
package materialise

import (
	"context"
	"fmt"
	"time"

	"github.com/forentfraps/navigator/internal/catalogue"
	"github.com/forentfraps/navigator/internal/graphstore"
	"github.com/forentfraps/navigator/internal/models"
	"github.com/forentfraps/navigator/internal/scheduleclient"
)

// Materialiser ensures the graph store holds enough edges to answer a
// frontier expansion at a given node and time, fetching from the
// remote schedule source when the store comes up empty.
type Materialiser struct {
	client     *scheduleclient.Client
	store      graphstore.Store
	catalogue  *catalogue.Catalogue
	walkRadius float64
	bulkWorkers int
}

// New constructs a Materialiser.
func New(client *scheduleclient.Client, store graphstore.Store, cat *catalogue.Catalogue, walkRadiusKM float64, bulkWorkers int) *Materialiser {
	return &Materialiser{
		client:      client,
		store:       store,
		catalogue:   cat,
		walkRadius:  walkRadiusKM,
		bulkWorkers: bulkWorkers,
	}
}

// EnsureOutbound implements the outbound-at-time protocol of spec.md
// §4.4: query what's already materialised; if both transport and walk
// neighbours are empty, fetch the 48h departure window and expand it,
// then populate walk edges from the station; finally requery and
// return the union.
func (m *Materialiser) EnsureOutbound(ctx context.Context, station string, at time.Time) ([]graphstore.OutTransportEdge, []graphstore.OutWalkEdge, error) {
	transport, err := m.store.OutTransport(ctx, station, at)
	if err != nil {
		return nil, nil, fmt.Errorf("materialise: out_transport: %w", err)
	}
	walk, err := m.store.OutWalk(ctx, station, m.walkRadius)
	if err != nil {
		return nil, nil, fmt.Errorf("materialise: out_walk: %w", err)
	}

	if len(transport) == 0 && len(walk) == 0 {
		if err := m.populateFromSchedule(ctx, station, at, scheduleclient.EventDeparture); err != nil {
			return nil, nil, err
		}
		if err := m.populateWalkEdges(ctx, station, false); err != nil {
			return nil, nil, err
		}
		transport, err = m.store.OutTransport(ctx, station, at)
		if err != nil {
			return nil, nil, fmt.Errorf("materialise: requery out_transport: %w", err)
		}
		walk, err = m.store.OutWalk(ctx, station, m.walkRadius)
		if err != nil {
			return nil, nil, fmt.Errorf("materialise: requery out_walk: %w", err)
		}
	}
	return transport, walk, nil
}

// EnsureInbound is the symmetric inbound-at-time protocol: walk edges
// are written in the reversed direction so (nbr -> s) exists.
func (m *Materialiser) EnsureInbound(ctx context.Context, station string, at time.Time) ([]graphstore.OutTransportEdge, []graphstore.OutWalkEdge, error) {
	transport, err := m.store.InTransport(ctx, station, at)
	if err != nil {
		return nil, nil, fmt.Errorf("materialise: in_transport: %w", err)
	}
	walk, err := m.store.InWalk(ctx, station, m.walkRadius)
	if err != nil {
		return nil, nil, fmt.Errorf("materialise: in_walk: %w", err)
	}

	if len(transport) == 0 && len(walk) == 0 {
		if err := m.populateFromSchedule(ctx, station, at, scheduleclient.EventArrival); err != nil {
			return nil, nil, err
		}
		if err := m.populateWalkEdges(ctx, station, true); err != nil {
			return nil, nil, err
		}
		transport, err = m.store.InTransport(ctx, station, at)
		if err != nil {
			return nil, nil, fmt.Errorf("materialise: requery in_transport: %w", err)
		}
		walk, err = m.store.InWalk(ctx, station, m.walkRadius)
		if err != nil {
			return nil, nil, fmt.Errorf("materialise: requery in_walk: %w", err)
		}
	}
	return transport, walk, nil
}

// populateFromSchedule fetches the 48h schedule window for station,
// expands every thread it names into consecutive-stop transport edges,
// and upserts the stations seen before the edges that reference them
// (spec.md §5 ordering guarantee).
func (m *Materialiser) populateFromSchedule(ctx context.Context, station string, at time.Time, event scheduleclient.Event) error {
	resp, err := m.client.StationScheduleWindow(ctx, station, at, event, 100)
	if err != nil {
		return fmt.Errorf("materialise: station_schedule_window: %w", err)
	}
	if resp == nil {
		return nil
	}

	uids := make(map[string]struct{})
	for _, entry := range resp.Schedule {
		if entry.Thread.UID != "" {
			uids[entry.Thread.UID] = struct{}{}
		}
	}
	uniqueUIDs := make([]string, 0, len(uids))
	for uid := range uids {
		uniqueUIDs = append(uniqueUIDs, uid)
	}
	if len(uniqueUIDs) == 0 {
		return nil
	}

	threads := scheduleclient.Bulk(ctx, uniqueUIDs, m.bulkWorkers, func(ctx context.Context, uid string) (*scheduleclient.ThreadResponse, error) {
		return m.client.ThreadStops(ctx, uid)
	})

	var edges []models.TransportEdge
	stationCodes := make(map[string]struct{})
	for i, thread := range threads {
		if thread == nil {
			continue
		}
		uid := uniqueUIDs[i]
		if thread.UID != "" {
			uid = thread.UID
		}
		for j := 0; j+1 < len(thread.Stops); j++ {
			from := thread.Stops[j]
			to := thread.Stops[j+1]
			fromCode := from.Station.Codes.Yandex
			toCode := to.Station.Codes.Yandex
			if fromCode == "" || toCode == "" || fromCode == toCode {
				continue
			}
			if from.Departure.Time.IsZero() || to.Arrival.Time.IsZero() {
				continue
			}
			edges = append(edges, models.TransportEdge{
				From:      fromCode,
				To:        toCode,
				ThreadUID: uid,
				Departure: from.Departure.Time,
				Arrival:   to.Arrival.Time,
			})
			stationCodes[fromCode] = struct{}{}
			stationCodes[toCode] = struct{}{}
		}
	}

	if len(stationCodes) > 0 {
		codes := make([]string, 0, len(stationCodes))
		for c := range stationCodes {
			codes = append(codes, c)
		}
		stations := m.catalogue.StationInfo(codes)
		known := make(map[string]struct{}, len(stations))
		for _, st := range stations {
			known[st.Code] = struct{}{}
		}
		for _, c := range codes {
			if _, ok := known[c]; !ok {
				stations = append(stations, models.Station{Code: c})
			}
		}
		if len(stations) > 0 {
			if err := m.store.UpsertStations(ctx, stations); err != nil {
				return fmt.Errorf("materialise: upsert stations: %w", err)
			}
		}
	}

	if len(edges) > 0 {
		if err := m.store.UpsertTransportEdges(ctx, edges); err != nil {
			return fmt.Errorf("materialise: upsert transport edges: %w", err)
		}
	}
	return nil
}

// populateWalkEdges fetches walk candidates from the catalogue and
// upserts the candidate stations plus the walk edges themselves. When
// reversed is true, edges are written (candidate -> station) so inbound
// queries observe them, per spec.md §4.4's inbound protocol.
func (m *Materialiser) populateWalkEdges(ctx context.Context, station string, reversed bool) error {
	st, ok := m.catalogue.Station(station)
	if !ok || !st.HasCoordinates() {
		return nil
	}

	candidates := m.catalogue.WalkCandidates(st, m.walkRadius)
	if len(candidates) == 0 {
		return nil
	}

	stations := make([]models.Station, 0, len(candidates))
	edges := make([]models.WalkEdge, 0, len(candidates))
	for _, c := range candidates {
		stations = append(stations, c.Station)
		if reversed {
			edges = append(edges, models.WalkEdge{From: c.Station.Code, To: station, DistanceKM: c.DistanceKM})
		} else {
			edges = append(edges, models.WalkEdge{From: station, To: c.Station.Code, DistanceKM: c.DistanceKM})
		}
	}

	if err := m.store.UpsertStations(ctx, stations); err != nil {
		return fmt.Errorf("materialise: upsert walk-candidate stations: %w", err)
	}
	if err := m.store.UpsertWalkEdges(ctx, edges); err != nil {
		return fmt.Errorf("materialise: upsert walk edges: %w", err)
	}
	return nil
}
