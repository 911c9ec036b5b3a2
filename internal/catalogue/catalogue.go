// Package catalogue holds the local, persistent snapshot of the remote
// schedule source's station catalogue: settlement -> station expansion,
// station metadata lookup, substring search, and walking-candidate
// discovery.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/forentfraps/navigator/internal/models"
)

// rawPayload mirrors the verbatim JSON shape of the schedule source's
// /stations_list response: country -> region -> settlement -> station.
type rawPayload struct {
	Countries []rawCountry `json:"countries"`
}

type rawCountry struct {
	Title   string      `json:"title"`
	Regions []rawRegion `json:"regions"`
}

type rawRegion struct {
	Title       string          `json:"title"`
	Settlements []rawSettlement `json:"settlements"`
}

type rawSettlement struct {
	Title    string       `json:"title"`
	Codes    rawCodes     `json:"codes"`
	Stations []rawStation `json:"stations"`
}

type rawStation struct {
	Title         string   `json:"title"`
	Codes         rawCodes `json:"codes"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	TransportType string   `json:"transport_type"`
	StationType   string   `json:"station_type"`
}

type rawCodes struct {
	Yandex string `json:"yandex_code"`
	ESR    string `json:"esr_code"`
}

// Refresher fetches the verbatim stations_list payload from the remote
// schedule source. Implemented by scheduleclient.Client; kept as an
// interface here so catalogue does not import scheduleclient directly.
type Refresher interface {
	StationsList(ctx context.Context) ([]byte, error)
}

// Catalogue is a read-mostly, in-memory index built from a single JSON
// snapshot file. Refresh is an explicit operation; all other reads
// are served from memory.
type Catalogue struct {
	path string

	mu               sync.RWMutex
	stationsByCode   map[string]models.Station
	settlementsByCode map[string]models.Settlement
	stationsInSettlement map[string][]string
	settlementTitles []settlementEntry
	stationTitles    []stationEntry
}

type settlementEntry struct {
	code, titleLower string
}

type stationEntry struct {
	code, titleLower string
}

// New constructs an empty catalogue backed by the given snapshot file path.
func New(path string) *Catalogue {
	return &Catalogue{
		path:                 path,
		stationsByCode:       make(map[string]models.Station),
		settlementsByCode:    make(map[string]models.Settlement),
		stationsInSettlement: make(map[string][]string),
	}
}

// LoadFromFile reads the on-disk snapshot, if present, into memory.
// A missing file is not an error: the catalogue starts empty and a
// caller should invoke Refresh.
func (c *Catalogue) LoadFromFile() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("catalogue: read snapshot: %w", err)
	}
	return c.load(data)
}

// Refresh downloads a fresh snapshot via r, persists it atomically
// (write-temp, rename), and reloads the in-memory index from it.
func (c *Catalogue) Refresh(ctx context.Context, r Refresher) error {
	data, err := r.StationsList(ctx)
	if err != nil {
		return fmt.Errorf("catalogue: fetch stations_list: %w", err)
	}
	if err := writeAtomic(c.path, data); err != nil {
		return fmt.Errorf("catalogue: persist snapshot: %w", err)
	}
	return c.load(data)
}

func (c *Catalogue) load(data []byte) error {
	var payload rawPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("catalogue: decode snapshot: %w", err)
	}

	stationsByCode := make(map[string]models.Station)
	settlementsByCode := make(map[string]models.Settlement)
	stationsInSettlement := make(map[string][]string)
	var settlementTitles []settlementEntry
	var stationTitles []stationEntry

	for _, country := range payload.Countries {
		for _, region := range country.Regions {
			for _, settlement := range region.Settlements {
				sc := settlement.Codes.Yandex
				if sc == "" {
					continue
				}
				settlementsByCode[sc] = models.Settlement{
					Code:    sc,
					Title:   settlement.Title,
					Country: country.Title,
					Region:  region.Title,
				}
				settlementTitles = append(settlementTitles, settlementEntry{
					code:      sc,
					titleLower: strings.ToLower(settlement.Title),
				})

				for _, station := range settlement.Stations {
					code := station.Codes.Yandex
					if code == "" {
						continue
					}
					stationsByCode[code] = models.Station{
						Code:          code,
						Title:         station.Title,
						Lat:           station.Latitude,
						Lon:           station.Longitude,
						TransportType: station.TransportType,
						StationType:   station.StationType,
						ESRCode:       station.Codes.ESR,
					}
					stationTitles = append(stationTitles, stationEntry{
						code:      code,
						titleLower: strings.ToLower(station.Title),
					})
					stationsInSettlement[sc] = append(stationsInSettlement[sc], code)
				}
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stationsByCode = stationsByCode
	c.settlementsByCode = settlementsByCode
	c.stationsInSettlement = stationsInSettlement
	c.settlementTitles = settlementTitles
	c.stationTitles = stationTitles
	return nil
}

// UpsertStation refreshes (or inserts) a single station's descriptive
// attributes in the in-memory index, outside of a snapshot load.
func (c *Catalogue) UpsertStation(s models.Station) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stationsByCode[s.Code] = s
}

// StationsInSettlement returns all station codes for the settlement;
// empty if unknown.
func (c *Catalogue) StationsInSettlement(settlementCode string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	codes := c.stationsInSettlement[settlementCode]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// StationInfo performs a batch lookup; codes lacking an entry are
// silently skipped.
func (c *Catalogue) StationInfo(codes []string) []models.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Station, 0, len(codes))
	for _, code := range codes {
		if s, ok := c.stationsByCode[code]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Station looks up a single station by code.
func (c *Catalogue) Station(code string) (models.Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stationsByCode[code]
	return s, ok
}

// WalkCandidate is a nearby station reachable on foot.
type WalkCandidate struct {
	Station    models.Station
	DistanceKM float64
}

// WalkCandidates returns all stations strictly within radiusKM of
// station, excluding the station itself and candidates without
// coordinates. Ordering is unspecified. Uses a bounding-box prefilter
// in degrees followed by haversine refinement, per spec.md §4.1.
func (c *Catalogue) WalkCandidates(station models.Station, radiusKM float64) []WalkCandidate {
	if !station.HasCoordinates() {
		return nil
	}

	dLat := radiusKM / 111.0
	cosLat := math.Cos(station.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := radiusKM / (111.0 * cosLat)

	minLat, maxLat := station.Lat-dLat, station.Lat+dLat
	minLon, maxLon := station.Lon-dLon, station.Lon+dLon

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []WalkCandidate
	for code, cand := range c.stationsByCode {
		if code == station.Code || !cand.HasCoordinates() {
			continue
		}
		if cand.Lat < minLat || cand.Lat > maxLat || cand.Lon < minLon || cand.Lon > maxLon {
			continue
		}
		dist := haversineKM(station.Lat, station.Lon, cand.Lat, cand.Lon)
		if dist > 0 && dist < radiusKM {
			out = append(out, WalkCandidate{Station: cand, DistanceKM: dist})
		}
	}
	return out
}

// SearchSettlements returns settlements whose title contains query
// (case-insensitive). If the query yields no matches, a single
// truncation retry (drop the last rune) is attempted, matching
// original_source/dumper.py's try_search_settlement behaviour — a
// forgiving fallback for a trailing typo or IME artifact.
func (c *Catalogue) SearchSettlements(query string) []models.Settlement {
	results := c.searchSettlementsOnce(query)
	if len(results) > 0 || len(query) < 2 {
		return results
	}
	runes := []rune(query)
	truncated := strings.TrimSpace(string(runes[:len(runes)-1]))
	if len(truncated) > 1 {
		return c.searchSettlementsOnce(truncated)
	}
	return results
}

func (c *Catalogue) searchSettlementsOnce(query string) []models.Settlement {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Settlement
	for _, entry := range c.settlementTitles {
		if strings.Contains(entry.titleLower, q) {
			out = append(out, c.settlementsByCode[entry.code])
		}
	}
	return out
}

// SearchStations returns stations whose title contains query
// (case-insensitive).
func (c *Catalogue) SearchStations(query string) []models.Station {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Station
	for _, entry := range c.stationTitles {
		if strings.Contains(entry.titleLower, q) {
			out = append(out, c.stationsByCode[entry.code])
		}
	}
	return out
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".catalogue-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Distance returns the great-circle distance in km between two
// stations known to the catalogue; 0 if either is unknown or lacks
// coordinates.
func (c *Catalogue) Distance(codeA, codeB string) float64 {
	a, ok := c.Station(codeA)
	if !ok || !a.HasCoordinates() {
		return 0
	}
	b, ok := c.Station(codeB)
	if !ok || !b.HasCoordinates() {
		return 0
	}
	return haversineKM(a.Lat, a.Lon, b.Lat, b.Lon)
}
