// Package streetview implements domain.PanoramaProvider against the panorama
// rendering service's HTTP API.
package streetview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roadvision/stopsign-detector/internal/domain"
)

// Client fetches panorama imagery over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a panorama provider client for the given base endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// panoRequest is the provider's rendering request. Zoom and coverage are
// fixed service-wide; coordinates are the caller's raw, unrounded values.
type panoRequest struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Heading  float64 `json:"heading"`
	Zoom     int     `json:"zoom"`
	Coverage float64 `json:"coverage"`
}

// FetchPanorama requests a rendered panorama for the location and heading.
// A 404 from the provider means no imagery exists there and is returned as
// domain.ErrPanoramaNotFound; any other failure is domain.ErrProviderUnavailable.
func (c *Client) FetchPanorama(ctx context.Context, lat, lon, heading float64) ([]byte, error) {
	payload := panoRequest{
		Lat:      lat,
		Lon:      lon,
		Heading:  heading,
		Zoom:     domain.PanoramaZoom,
		Coverage: domain.PanoramaCoverage,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal pano request: %v", domain.ErrProviderUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pano", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create pano request: %v", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to read the image
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: lat=%.6f lon=%.6f heading=%.1f", domain.ErrPanoramaNotFound, lat, lon, heading)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, detail)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read pano body: %v", domain.ErrProviderUnavailable, err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty image", domain.ErrProviderUnavailable)
	}

	c.logger.Debug("panorama fetched", "lat", lat, "lon", lon, "heading", heading, "bytes", len(image))
	return image, nil
}
