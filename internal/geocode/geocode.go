// Package geocode resolves a postal address to coordinates using a
// Nominatim compatible search service.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/model"
)

// ErrNoMatch is returned when the service answered but found nothing for
// the address.
var ErrNoMatch = errors.New("address could not be geocoded")

// ExternalServiceError reports that the geocoding service could not be
// reached or answered with something other than a result list.
type ExternalServiceError struct {
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *ExternalServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("geocoder returned %d: %v", e.Status, e.Err)
	}
	return "geocoder unavailable: " + e.Err.Error()
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Geocoder turns an address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, addr model.Address) (model.GeoPoint, error)
}

// Client queries the /search endpoint of a Nominatim style service.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the best match for addr.
func (c *Client) Geocode(ctx context.Context, addr model.Address) (model.GeoPoint, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", addr.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.GeoPoint{}, &ExternalServiceError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.GeoPoint{}, &ExternalServiceError{Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return model.GeoPoint{}, &ExternalServiceError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(places) == 0 {
		logger.FromContext(ctx).Info("geocoder found no match", "address", addr.String())
		return model.GeoPoint{}, ErrNoMatch
	}

	lat, err1 := strconv.ParseFloat(places[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(places[0].Lon, 64)
	pt := model.GeoPoint{Latitude: lat, Longitude: lon}
	if err1 != nil || err2 != nil || !pt.Valid() {
		return model.GeoPoint{}, &ExternalServiceError{Status: resp.StatusCode, Err: fmt.Errorf("malformed coordinates %q,%q", places[0].Lat, places[0].Lon)}
	}
	return pt, nil
}
