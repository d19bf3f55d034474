// Package service contains the detect pipeline: cache lookup, miss-path
// orchestration across the imagery provider and detection engine, and
// persistence of the outcome.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/roadvision/stopsign-detector/internal/domain"
	"github.com/roadvision/stopsign-detector/internal/observability"
)

// DetectionService answers stop-sign queries through a persistent lookaside
// cache. All collaborators are injected at construction; the service holds no
// global state.
type DetectionService struct {
	store     domain.DetectionStore
	provider  domain.PanoramaProvider
	detector  domain.SignDetector
	publisher domain.RecordPublisher // nil when event publishing is disabled
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	// group collapses concurrent misses for one key into a single
	// fetch-detect-persist run within this process. Across processes the
	// lookup-then-insert race remains possible; the store's earliest-insert
	// tie-break keeps it harmless.
	group singleflight.Group
}

// New creates a DetectionService. Pass a nil publisher to disable event
// publishing.
func New(
	store domain.DetectionStore,
	provider domain.PanoramaProvider,
	detector domain.SignDetector,
	publisher domain.RecordPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *DetectionService {
	return &DetectionService{
		store:     store,
		provider:  provider,
		detector:  detector,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Detect answers one query. Pipeline: normalize → lookup → on hit return the
// stored boolean → on miss fetch panorama, run detection, persist, return.
// The response always echoes the caller's original unrounded coordinates.
func (s *DetectionService) Detect(ctx context.Context, query domain.DetectionQuery) (domain.DetectionResult, error) {
	query = query.WithDefaults()
	key := domain.NormalizeKey(query.Lat, query.Lon, query.Heading)

	cached, found, err := s.store.Lookup(ctx, key)
	if err != nil {
		s.metrics.DetectRequests.WithLabelValues("error").Inc()
		return domain.DetectionResult{}, err
	}
	if found {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		s.metrics.DetectRequests.WithLabelValues("hit").Inc()
		return domain.DetectionResult{
			Lat:      query.Lat,
			Lon:      query.Lon,
			Heading:  query.Heading,
			Detected: cached.Detected,
			CacheHit: true,
		}, nil
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	v, err, shared := s.group.Do(key.String(), func() (any, error) {
		return s.runMissPath(ctx, query, key)
	})
	if shared {
		s.metrics.SingleflightShared.Inc()
	}
	if err != nil {
		s.metrics.DetectRequests.WithLabelValues(outcomeLabel(err)).Inc()
		return domain.DetectionResult{}, err
	}

	record := v.(domain.DetectionRecord)
	s.metrics.DetectRequests.WithLabelValues("miss").Inc()

	return domain.DetectionResult{
		Lat:      query.Lat,
		Lon:      query.Lon,
		Heading:  query.Heading,
		Detected: record.Detected,
	}, nil
}

// runMissPath executes fetch → detect → persist for one cache key. A "no
// panorama" or provider failure aborts before any cache write, so future
// callers retry. Persistence is strict: an insert failure fails the request
// even though a result is in hand.
func (s *DetectionService) runMissPath(ctx context.Context, query domain.DetectionQuery, key domain.CacheKey) (any, error) {
	fetchStart := s.clock.Now()
	image, err := s.provider.FetchPanorama(ctx, query.Lat, query.Lon, query.Heading)
	s.metrics.ProviderRequestDuration.Observe(s.clock.Since(fetchStart).Seconds())
	if err != nil {
		return nil, err
	}

	inferStart := s.clock.Now()
	detected, err := s.detector.DetectStopSign(ctx, image, query.Confidence)
	s.metrics.InferenceRequestDuration.Observe(s.clock.Since(inferStart).Seconds())
	if err != nil {
		return nil, err
	}

	record := domain.DetectionRecord{
		Key:       key,
		Detected:  detected,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, err
	}
	s.metrics.RecordsInserted.Inc()

	s.logger.Info("detection cached",
		"lat", key.Lat, "lon", key.Lon, "heading", key.Heading, "detected", detected)

	if s.publisher != nil {
		// Best-effort: a publish failure never fails the request.
		if err := s.publisher.Publish(ctx, record); err != nil {
			s.logger.Warn("publish detection event failed", "error", err)
		}
	}

	return record, nil
}

// CheckReadiness reports whether the cache store is reachable.
func (s *DetectionService) CheckReadiness(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.store.Ping(ctx)
}

// outcomeLabel maps a miss-path error to its request outcome metric label.
func outcomeLabel(err error) string {
	if err == nil {
		return "miss"
	}
	if errors.Is(err, domain.ErrPanoramaNotFound) {
		return "not_found"
	}
	return "error"
}
