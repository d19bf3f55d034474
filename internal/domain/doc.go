// Package domain models stop-sign detection queries and their cached results.
//
// # Cache key quantization
//
// Detection results are cached per location and viewing direction. The cache
// key quantizes latitude and longitude to 5 decimal places (about 1.1 m at the
// equator), so repeated queries for effectively the same spot share one cache
// entry even when the GPS fix jitters beyond the 5th decimal.
//
// Heading is NOT quantized. Two queries whose headings differ by any amount,
// even a floating-point epsilon, use independent cache entries. Callers are
// expected to derive headings from route geometry, which yields repeatable
// values; free-form headings will simply miss the cache and re-run detection.
//
// # Record lifecycle
//
// A DetectionRecord is written once, on the first successful miss-path run for
// its key, and is never updated, invalidated, or expired. "No panorama at this
// location" is deliberately not cached so that future callers retry once
// imagery coverage improves.
//
// # Concurrency
//
// The lookup-then-insert sequence is not guarded by the store. Concurrent
// misses for the same key in different processes can each insert a record;
// stores resolve this by always returning the earliest-inserted row. Within a
// single process the service layer collapses concurrent misses via
// single-flight, so the duplicate window only exists across processes.
package domain
