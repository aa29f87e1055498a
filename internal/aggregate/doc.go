// Package aggregate folds noisy per-frame Regions into stable subtitle
// Tracks.
//
// Regions are bucketed into half-second groups and clustered greedily inside
// each bucket (overlap or same-row adjacency). Every cluster becomes a Track
// with a buffered time window; Tracks from different buckets that occupy the
// same place and touch in time are merged. Oversized envelopes are dropped by
// the trust filter. When nothing survives but raw Regions exist, a relaxed
// pass re-clusters by overlap alone so weak signal still yields blur
// coverage.
package aggregate
