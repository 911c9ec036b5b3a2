// Package scheduleclient talks to the remote, rate-limited schedule
// source: per-station departure/arrival schedules, per-thread stop
// sequences, and the static station catalogue. It owns the miss set
// that suppresses repeated failing lookups.
package scheduleclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/forentfraps/navigator/internal/missset"
)

// Event selects which side of a trip a station schedule query reports.
type Event string

const (
	EventDeparture Event = "departure"
	EventArrival   Event = "arrival"
)

const timestampLayout = "2006-01-02 15:04:05"

// Timestamp decodes the schedule source's "YYYY-MM-DD HH:MM:SS" instants.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := time.Parse(timestampLayout, s)
	if err != nil {
		return fmt.Errorf("scheduleclient: parse timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Pagination mirrors the schedule source's pagination envelope.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ScheduleEntry is one row of a station's schedule.
type ScheduleEntry struct {
	Thread struct {
		UID           string `json:"uid"`
		Title         string `json:"title"`
		TransportType string `json:"transport_type"`
	} `json:"thread"`
	Departure Timestamp `json:"departure"`
	Arrival   Timestamp `json:"arrival"`
}

// ScheduleResponse is the /schedule response envelope.
type ScheduleResponse struct {
	Pagination Pagination      `json:"pagination"`
	Schedule   []ScheduleEntry `json:"schedule"`
}

// ThreadStop is one stop of a /thread response.
type ThreadStop struct {
	Station struct {
		Codes struct {
			Yandex string `json:"yandex"`
		} `json:"codes"`
	} `json:"station"`
	Departure Timestamp `json:"departure"`
	Arrival   Timestamp `json:"arrival"`
	Duration  float64   `json:"duration"`
}

// ThreadResponse is the /thread response envelope.
type ThreadResponse struct {
	UID   string       `json:"uid"`
	Stops []ThreadStop `json:"stops"`
}

// Client is a thin wrapper around the schedule source's HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	lang       string
	timeout    time.Duration
	misses     *missset.Set
}

// New constructs a Client. misses may be shared across clients within a
// run; it is mutated additively as lookups fail.
func New(baseURL, apiKey, lang string, timeout time.Duration, misses *missset.Set) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		apiKey:     apiKey,
		lang:       lang,
		timeout:    timeout,
		misses:     misses,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params.Set("apikey", c.apiKey)
	params.Set("format", "json")
	params.Set("lang", c.lang)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scheduleclient: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scheduleclient: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scheduleclient: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scheduleclient: %s returned status %d", endpoint, resp.StatusCode)
	}
	return body, nil
}

// StationsList returns the verbatim JSON payload of /stations_list.
func (c *Client) StationsList(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "stations_list", url.Values{})
}

// StationSchedule fetches the schedule for a station on a given date
// and event kind. Stations in the miss set short-circuit to nil. On
// upstream failure the station is added to the miss set and (nil, nil)
// is returned — a nil response with no error means "no schedule",
// matching spec.md §4.2's failure policy. A non-nil error here means
// the miss set itself could not be persisted.
func (c *Client) StationSchedule(ctx context.Context, code string, date time.Time, event Event, limit int) (*ScheduleResponse, error) {
	if c.misses.Contains(code) {
		return nil, nil
	}

	resp, err := c.fetchSchedule(ctx, code, date, event, 0, limit)
	if err != nil {
		if addErr := c.misses.Add(code); addErr != nil {
			return nil, fmt.Errorf("scheduleclient: record miss for %s: %w (fetch error: %v)", code, addErr, err)
		}
		return nil, nil
	}
	if resp == nil || len(resp.Schedule) == 0 {
		return nil, nil
	}

	if resp.Pagination.Total > limit {
		full, err := c.fetchSchedule(ctx, code, date, event, 0, resp.Pagination.Total)
		if err == nil && full != nil {
			resp = full
		}
	}
	return resp, nil
}

func (c *Client) fetchSchedule(ctx context.Context, code string, date time.Time, event Event, offset, limit int) (*ScheduleResponse, error) {
	params := url.Values{
		"station": {code},
		"date":    {date.Format("2006-01-02")},
		"event":   {string(event)},
		"offset":  {fmt.Sprintf("%d", offset)},
		"limit":   {fmt.Sprintf("%d", limit)},
	}
	body, err := c.get(ctx, "schedule", params)
	if err != nil {
		return nil, err
	}
	var resp ScheduleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("scheduleclient: decode schedule: %w", err)
	}
	return &resp, nil
}

// StationScheduleWindow issues two StationSchedule calls, for instant's
// day and the following day, and merges the results. This 48-hour
// window accommodates legs crossing midnight (spec.md §4.2).
func (c *Client) StationScheduleWindow(ctx context.Context, code string, instant time.Time, event Event, limit int) (*ScheduleResponse, error) {
	day1, err1 := c.StationSchedule(ctx, code, instant, event, limit)
	day2, err2 := c.StationSchedule(ctx, code, instant.Add(24*time.Hour), event, limit)
	if err1 != nil && err2 != nil {
		return nil, err1
	}

	merged := &ScheduleResponse{}
	if day1 != nil {
		merged.Schedule = append(merged.Schedule, day1.Schedule...)
		merged.Pagination.Total += day1.Pagination.Total
	}
	if day2 != nil {
		merged.Schedule = append(merged.Schedule, day2.Schedule...)
		merged.Pagination.Total += day2.Pagination.Total
	}
	if len(merged.Schedule) == 0 {
		return nil, nil
	}
	return merged, nil
}

// ThreadStops fetches the ordered stop sequence for a thread.
func (c *Client) ThreadStops(ctx context.Context, uid string) (*ThreadResponse, error) {
	params := url.Values{"uid": {uid}, "show_systems": {"all"}}
	body, err := c.get(ctx, "thread", params)
	if err != nil {
		return nil, nil
	}
	var resp ThreadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil
	}
	if len(resp.Stops) == 0 {
		return nil, nil
	}
	return &resp, nil
}
