package carpark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/parkride/parkride/services/ingest/internal/models"
)

// ErrInvalidFacilityID rejects empty or non-numeric facility ids.
var ErrInvalidFacilityID = errors.New("facility id must be a non-empty number")

// StatusError is returned for non-200 answers.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// Client talks to the car park API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient returns a client authenticating with token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   token,
	}
}

// FetchStationList retrieves the facility list, preserving the order in
// which the API lists them.
func (c *Client) FetchStationList(ctx context.Context) ([]models.StationEntry, error) {
	var entries []models.StationEntry
	err := c.get(ctx, c.baseURL, func(dec *json.Decoder) error {
		var err error
		entries, err = decodeStationList(dec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchFacility retrieves the payload for one facility.
func (c *Client) FetchFacility(ctx context.Context, facilityID string) (models.Facility, error) {
	if !validFacilityID(facilityID) {
		return models.Facility{}, fmt.Errorf("%w: %q", ErrInvalidFacilityID, facilityID)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.Facility{}, err
	}
	q := u.Query()
	q.Set("facility", facilityID)
	u.RawQuery = q.Encode()

	var payload models.Facility
	err = c.get(ctx, u.String(), func(dec *json.Decoder) error {
		return dec.Decode(&payload)
	})
	if err != nil {
		return models.Facility{}, err
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, target string, decode func(*json.Decoder) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "apikey "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request car park api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := decode(json.NewDecoder(resp.Body)); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// decodeStationList reads an object of id to name, keeping key order.
func decodeStationList(dec *json.Decoder) ([]models.StationEntry, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	entries := make([]models.StationEntry, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected facility id, got %v", tok)
		}
		var name string
		if err := dec.Decode(&name); err != nil {
			return nil, fmt.Errorf("facility %s: %w", id, err)
		}
		entries = append(entries, models.StationEntry{FacilityID: id, Name: name})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

func validFacilityID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
