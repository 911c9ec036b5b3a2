package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forentfraps/navigator/internal/catalogue"
	"github.com/forentfraps/navigator/internal/journey"
	"github.com/forentfraps/navigator/internal/models"
)

// TransportHandler is the HTTP facade onto the Station Catalogue and
// the Journey Service, shaped after the teacher's TransportHandler
// (query-param parsing, plain json.NewEncoder responses, one method
// per route).
type TransportHandler struct {
	Catalogue *catalogue.Catalogue
	Journey   *journey.Service
}

// NewTransportHandler constructs a TransportHandler.
func NewTransportHandler(cat *catalogue.Catalogue, svc *journey.Service) *TransportHandler {
	return &TransportHandler{Catalogue: cat, Journey: svc}
}

// GetSettlements handles GET /api/v1/settlements?q=... — substring
// search over the catalogue's settlement titles.
func (h *TransportHandler) GetSettlements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		http.Error(w, "Missing query parameter q", http.StatusBadRequest)
		return
	}
	results := h.Catalogue.SearchSettlements(q)
	json.NewEncoder(w).Encode(results)
}

// GetStations handles GET /api/v1/stations?q=... — substring search
// over the catalogue's station titles.
func (h *TransportHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		http.Error(w, "Missing query parameter q", http.StatusBadRequest)
		return
	}
	results := h.Catalogue.SearchStations(q)
	json.NewEncoder(w).Encode(results)
}

// GetStationDetails handles GET /api/v1/stations/{code}.
func (h *TransportHandler) GetStationDetails(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	station, ok := h.Catalogue.Station(code)
	if !ok {
		http.Error(w, "Station not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(station)
}

// GetRoute handles GET /api/v1/route?from=<settlement>&to=<settlement>
// &at=<RFC3339>&mode={time|cost}. Mirrors the teacher's GetRoute method
// shape (query-param parsing, defaults, single JSON response), now
// driven by settlement codes and an instant instead of a lat/lon viewport.
func (h *TransportHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		http.Error(w, "Missing from/to settlement codes", http.StatusBadRequest)
		return
	}

	at, err := parseInstant(r.URL.Query().Get("at"))
	if err != nil {
		http.Error(w, "Invalid at instant, expected RFC3339", http.StatusBadRequest)
		return
	}

	mode := parseMode(r.URL.Query().Get("mode"))

	itinerary, err := h.Journey.Plan(r.Context(), from, to, at, mode)
	if err != nil {
		writeJourneyError(w, err)
		return
	}
	json.NewEncoder(w).Encode(itinerary)
}

// postRouteRequest is the body shape for multi-leg waypoint planning.
type postRouteRequest struct {
	Waypoints []string  `json:"waypoints"`
	At        time.Time `json:"at"`
	Mode      string    `json:"mode"`
}

// PostRoute handles POST /api/v1/route — multi-leg planning across an
// ordered list of settlement waypoints, supplementing the CLI's
// waypoint loop (spec.md §4.6) with an HTTP equivalent.
func (h *TransportHandler) PostRoute(w http.ResponseWriter, r *http.Request) {
	var req postRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Waypoints) < 2 {
		http.Error(w, "At least two waypoints required", http.StatusBadRequest)
		return
	}

	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	mode := parseMode(req.Mode)

	itineraries, err := h.Journey.PlanMultiLeg(r.Context(), req.Waypoints, at, mode)
	if err != nil {
		writeJourneyError(w, err)
		return
	}
	json.NewEncoder(w).Encode(itineraries)
}

func parseInstant(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseMode(raw string) models.Mode {
	switch models.Mode(raw) {
	case models.ModeCost:
		return models.ModeCost
	case models.ModeBasic:
		return models.ModeBasic
	default:
		return models.ModeTime
	}
}

func writeJourneyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, journey.ErrUnknownSettlement):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, journey.ErrUnsupportedMode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
