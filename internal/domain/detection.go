package domain

import (
	"context"
	"time"
)

const (
	// DefaultConfidence is applied when a query does not set a threshold.
	DefaultConfidence = 0.25

	// StopSignClassID is the target class index in the detection model.
	StopSignClassID = 0

	// PanoramaZoom and PanoramaCoverage are the fixed rendering parameters
	// sent with every panorama request.
	PanoramaZoom     = 4
	PanoramaCoverage = 0.2
)

// DetectionQuery is an inbound request: a geographic position, a viewing
// heading in degrees, and a minimum detection confidence.
type DetectionQuery struct {
	Lat        float64
	Lon        float64
	Heading    float64
	Confidence float64
}

// WithDefaults returns the query with DefaultConfidence applied when the
// threshold is unset.
func (q DetectionQuery) WithDefaults() DetectionQuery {
	if q.Confidence <= 0 {
		q.Confidence = DefaultConfidence
	}
	return q
}

// DetectionRecord is the persisted outcome of one miss-path run. Records are
// append-only and immutable.
type DetectionRecord struct {
	Key       CacheKey  `json:"key"`
	Detected  bool      `json:"detected"`
	CreatedAt time.Time `json:"created_at"`
}

// DetectionResult is the client-facing answer. Lat, Lon, and Heading echo the
// caller's original unrounded values, never the quantized key.
type DetectionResult struct {
	Lat      float64
	Lon      float64
	Heading  float64
	Detected bool
	CacheHit bool
}

// Detection is a single object reported by the detection engine.
type Detection struct {
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// DetectionStore is the persistent lookaside cache of detection outcomes.
type DetectionStore interface {
	// Lookup returns the record for the key, or found=false when no record
	// exists. When duplicate rows exist for one key (racing inserts from
	// separate processes), the earliest-inserted record is returned.
	Lookup(ctx context.Context, key CacheKey) (DetectionRecord, bool, error)

	// Insert appends a record. It does not check for existing duplicates.
	Insert(ctx context.Context, record DetectionRecord) error

	// Ping checks store connectivity.
	Ping(ctx context.Context) error

	Close() error
}

// PanoramaProvider fetches street-level imagery for a location and heading.
type PanoramaProvider interface {
	// FetchPanorama returns raw image bytes, ErrPanoramaNotFound when no
	// imagery exists at the location, or ErrProviderUnavailable on transport
	// failure.
	FetchPanorama(ctx context.Context, lat, lon, heading float64) ([]byte, error)
}

// SignDetector runs object detection on an image and reduces the result to
// "a stop sign is present at or above the confidence threshold".
type SignDetector interface {
	DetectStopSign(ctx context.Context, image []byte, confidence float64) (bool, error)
}

// RecordPublisher emits freshly persisted records to downstream consumers.
// Publishing is best-effort and never part of the request durability contract.
type RecordPublisher interface {
	Publish(ctx context.Context, record DetectionRecord) error
}
