package domain

import "errors"

// Error taxonomy for the detect pipeline. Each upstream failure maps to a
// distinct sentinel so callers can tell "try a different location" apart from
// "try again later". Adapters wrap these with %w and attach detail.
var (
	// ErrPanoramaNotFound means the imagery provider has no panorama at the
	// queried location. Expected outcome, never cached.
	ErrPanoramaNotFound = errors.New("no panorama found at this location")

	// ErrProviderUnavailable means the imagery provider could not be reached
	// or returned an unexpected response.
	ErrProviderUnavailable = errors.New("street view service unavailable")

	// ErrStoreUnavailable means the detection cache store failed.
	ErrStoreUnavailable = errors.New("detection store unavailable")

	// ErrDetectionFailed means the detection engine failed to process the
	// fetched image.
	ErrDetectionFailed = errors.New("detection engine failure")
)
