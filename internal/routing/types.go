package routing

import "time"

// Handle is an arena index standing in for a station code inside the
// search's transient maps, so the hot path (g-scores, parent pointers,
// priority-queue entries) is keyed by a small integer rather than a
// string. Spec.md §9 calls for "arena-allocated node
// records keyed by code... not owning pointer graphs" — Handle plus
// Arena below is that arena.
type Handle int32

// Arena maps station codes to stable handles for the lifetime of one
// search. It owns no edges and no cycle: parent maps below store
// predecessor handles, never station pointers.
type Arena struct {
	codeToHandle map[string]Handle
	handleToCode []string
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{codeToHandle: make(map[string]Handle)}
}

// HandleFor returns the handle for code, allocating one if this is the
// first time code has been seen by this arena.
func (a *Arena) HandleFor(code string) Handle {
	if h, ok := a.codeToHandle[code]; ok {
		return h
	}
	h := Handle(len(a.handleToCode))
	a.codeToHandle[code] = h
	a.handleToCode = append(a.handleToCode, code)
	return h
}

// Code returns the station code a handle was allocated for.
func (a *Arena) Code(h Handle) string {
	return a.handleToCode[h]
}

// edgeKind distinguishes a scheduled hop from a walking transfer while
// relaxing a frontier node, mirroring models.LegKind without importing
// the models package into the search's innermost loop.
type edgeKind int

const (
	edgeTransport edgeKind = iota
	edgeWalk
)

// parentEdge records how a station was reached during one direction of
// the search, enough to reconstruct a Leg without re-querying the store.
// departure/arrival are the edge's real-world instants in travel order
// (prev -> cur), independent of which frontier discovered the edge.
type parentEdge struct {
	prev       Handle
	kind       edgeKind
	cost       float64
	threadUID  string
	distanceKM float64
	departure  time.Time
	arrival    time.Time
}

// pqItem is one entry of a direction's open set.
type pqItem struct {
	f       float64
	station Handle
	seq     int // insertion order, breaks ties deterministically
	index   int // heap.Interface bookkeeping
}
