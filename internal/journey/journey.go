// Package journey is the Journey Service facade (spec.md §4.6):
// settlement expansion, fail-fast domain errors, and the single entry
// point external callers use to invoke the Search Core.
package journey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forentfraps/navigator/internal/catalogue"
	"github.com/forentfraps/navigator/internal/models"
	"github.com/forentfraps/navigator/internal/routing"
)

// ErrUnknownSettlement is returned when a settlement code expands to no
// known stations.
var ErrUnknownSettlement = errors.New("journey: unknown settlement")

// ErrUnsupportedMode is returned for modes the Search Core does not
// implement (spec.md §9: basic mode is a CLI placeholder, not built).
var ErrUnsupportedMode = errors.New("journey: unsupported mode")

// Service composes the Station Catalogue and the Search Core into the
// single call external callers use to plan a trip.
type Service struct {
	catalogue *catalogue.Catalogue
	engine    *routing.Engine
}

// New constructs a Journey Service.
func New(cat *catalogue.Catalogue, engine *routing.Engine) *Service {
	return &Service{catalogue: cat, engine: engine}
}

// Plan implements spec.md §4.6's plan operation: expand both settlements
// to station-code sets, fail fast if either is empty, then invoke the
// Search Core with the given instant and mode.
func (s *Service) Plan(ctx context.Context, originSettlement, destSettlement string, startInstant time.Time, mode models.Mode) (models.Itinerary, error) {
	if mode == models.ModeBasic {
		return models.Itinerary{}, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}

	origin := routing.UniqueCodes(s.catalogue.StationsInSettlement(originSettlement))
	if len(origin) == 0 {
		return models.Itinerary{}, fmt.Errorf("%w: %s", ErrUnknownSettlement, originSettlement)
	}
	dest := routing.UniqueCodes(s.catalogue.StationsInSettlement(destSettlement))
	if len(dest) == 0 {
		return models.Itinerary{}, fmt.Errorf("%w: %s", ErrUnknownSettlement, destSettlement)
	}

	itinerary, err := s.engine.BidirectionalSearch(ctx, origin, dest, startInstant, mode)
	if err != nil {
		return models.Itinerary{}, fmt.Errorf("journey: plan %s -> %s: %w", originSettlement, destSettlement, err)
	}
	return itinerary, nil
}

// PlanMultiLeg chains sequential Plan invocations across a waypoint
// list. In time mode, each leg's start instant is the previous leg's
// final arrival instant; in cost mode startInstant is reused unchanged
// for every leg since times carry no meaning (spec.md §4.5: "times are
// irrelevant and stored as null" in cost mode).
func (s *Service) PlanMultiLeg(ctx context.Context, waypoints []string, startInstant time.Time, mode models.Mode) ([]models.Itinerary, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("journey: multi-leg plan needs at least two waypoints, got %d", len(waypoints))
	}

	itineraries := make([]models.Itinerary, 0, len(waypoints)-1)
	currentInstant := startInstant
	for i := 0; i+1 < len(waypoints); i++ {
		leg, err := s.Plan(ctx, waypoints[i], waypoints[i+1], currentInstant, mode)
		if err != nil {
			return nil, err
		}
		itineraries = append(itineraries, leg)
		if mode == models.ModeTime && !leg.Empty() {
			currentInstant = leg.Legs[len(leg.Legs)-1].Arrival
		}
	}
	return itineraries, nil
}
