package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/medtrackpro/medtrack/internal/drone"
	"github.com/medtrackpro/medtrack/internal/tracker"
)

// Client is the terminal dashboard's HTTP client for the medtrack API
type Client struct {
	base  string
	token string
	http  *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Dashboard is the aggregated view behind the main tab
type Dashboard struct {
	NextDose      *tracker.NextDoseResult `json:"next_dose"`
	Adherence7d   tracker.AdherenceResult `json:"adherence_7d"`
	Adherence30d  tracker.AdherenceResult `json:"adherence_30d"`
	Inventory     []tracker.InventoryCard `json:"inventory"`
	Schedule      []tracker.ScheduleItem  `json:"schedule"`
	Notifications []tracker.Notification  `json:"notifications"`
	Drone         drone.Snapshot          `json:"drone"`
}

// AdherenceReport is the analytics tab payload
type AdherenceReport struct {
	Window  string                  `json:"window"`
	Overall tracker.AdherenceResult `json:"overall"`
	Daily   []tracker.DailyRate     `json:"daily"`
}

// Connect opens a fresh session and stores its token for later calls
func (c *Client) Connect() error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.do(http.MethodPost, "/api/session", nil, &body); err != nil {
		return err
	}
	c.token = body.Token
	return nil
}

// Disconnect discards the session
func (c *Client) Disconnect() error {
	return c.do(http.MethodDelete, "/api/session", nil, nil)
}

func (c *Client) Dashboard() (*Dashboard, error) {
	var d Dashboard
	if err := c.do(http.MethodGet, "/api/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Medications() ([]tracker.Medication, error) {
	var body struct {
		Medications []tracker.Medication `json:"medications"`
	}
	if err := c.do(http.MethodGet, "/api/medications", nil, &body); err != nil {
		return nil, err
	}
	return body.Medications, nil
}

func (c *Client) Adherence(window string) (*AdherenceReport, error) {
	var r AdherenceReport
	if err := c.do(http.MethodGet, "/api/analytics/adherence?window="+window, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) LogDose(medicationID, status string) error {
	return c.do(http.MethodPost, "/api/doses", map[string]string{
		"medication_id": medicationID,
		"status":        status,
	}, nil)
}

// RequestDelivery dispatches a refill run between the demo addresses
func (c *Client) RequestDelivery() (*drone.Snapshot, error) {
	var snap drone.Snapshot
	req := drone.Request{
		Pickup:  "City Pharmacy",
		Dropoff: "123 Health St, Medical City",
		Details: "Medication refill",
	}
	if err := c.do(http.MethodPost, "/api/drone/deliveries", req, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) DroneStatus() (*drone.Snapshot, error) {
	var snap drone.Snapshot
	if err := c.do(http.MethodGet, "/api/drone", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) do(method, path string, body, out any) error {
	var buf *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	} else {
		buf = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
