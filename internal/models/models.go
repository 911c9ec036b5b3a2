package models

import "time"

// Station is a transit stop identified by a stable opaque code.
type Station struct {
	Code          string  `json:"code"`
	Title         string  `json:"title"`
	Lat           float64 `json:"lat,omitempty"`
	Lon           float64 `json:"lon,omitempty"`
	TransportType string  `json:"transport_type,omitempty"`
	StationType   string  `json:"station_type,omitempty"`
	ESRCode       string  `json:"esr_code,omitempty"`
}

// HasCoordinates reports whether the station carries usable lat/lon.
func (s Station) HasCoordinates() bool {
	return s.Lat != 0 || s.Lon != 0
}

// Settlement groups one or more stations under a country/region.
type Settlement struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// Mode selects the cost model used by the Search Core.
type Mode string

const (
	ModeTime Mode = "time"
	ModeCost Mode = "cost"
	// ModeBasic is referenced by the external CLI sketch but not
	// implemented by this core; kept only to name it in errors.
	ModeBasic Mode = "basic"
)

// WalkEdge is a directed walking transfer between two nearby stations.
type WalkEdge struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKM float64 `json:"distance_km"`
}

// TransportEdge is a directed scheduled hop between two consecutive
// stops of a thread.
type TransportEdge struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	ThreadUID string    `json:"thread_uid"`
	Departure time.Time `json:"departure_time"`
	Arrival   time.Time `json:"arrival_time"`
}

// LegKind distinguishes a scheduled hop from a walking transfer.
type LegKind string

const (
	LegTransport LegKind = "transport"
	LegWalk      LegKind = "walk"
)

// Leg is one edge of a reconstructed itinerary.
type Leg struct {
	Kind       LegKind   `json:"kind"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ThreadUID  string    `json:"thread_uid,omitempty"`
	Departure  time.Time `json:"departure_time,omitempty"`
	Arrival    time.Time `json:"arrival_time,omitempty"`
	DistanceKM float64   `json:"distance_km,omitempty"`
	CostSec    float64   `json:"cost_seconds,omitempty"`
}

// Itinerary is the ordered list of legs returned by the Journey Service.
type Itinerary struct {
	Legs      []Leg   `json:"legs"`
	TotalCost float64 `json:"total_cost"`
}

// Empty reports whether the itinerary carries no feasible path.
func (i Itinerary) Empty() bool {
	return len(i.Legs) == 0
}
