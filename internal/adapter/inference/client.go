// Package inference implements domain.SignDetector against the detection
// engine sidecar's HTTP API.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roadvision/stopsign-detector/internal/domain"
)

// Client sends images to the detection engine and reduces its detections to
// a single stop-sign boolean.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a detection engine client for the given base endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type inferRequest struct {
	ImageBase64 string  `json:"image_base64"`
	Confidence  float64 `json:"confidence"`
}

type inferResponse struct {
	Detections []domain.Detection `json:"detections"`
}

// DetectStopSign runs the engine on the image and returns true iff at least
// one detection with confidence at or above the threshold belongs to the
// stop-sign class. Scans short-circuit on the first qualifying detection.
// Any engine or transport failure is domain.ErrDetectionFailed.
func (c *Client) DetectStopSign(ctx context.Context, image []byte, confidence float64) (bool, error) {
	payload := inferRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		Confidence:  confidence,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("%w: marshal infer request: %v", domain.ErrDetectionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: create infer request: %v", domain.ErrDetectionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrDetectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("%w: status %d: %s", domain.ErrDetectionFailed, resp.StatusCode, detail)
	}

	var result inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("%w: decode infer response: %v", domain.ErrDetectionFailed, err)
	}

	for _, d := range result.Detections {
		// The engine filters by the requested threshold already; re-check so
		// a lenient engine cannot widen the contract.
		if d.ClassID == domain.StopSignClassID && d.Confidence >= confidence {
			c.logger.Debug("stop sign detected", "class", d.ClassName, "confidence", d.Confidence)
			return true, nil
		}
	}

	return false, nil
}
