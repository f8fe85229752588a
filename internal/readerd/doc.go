// Package readerd is the long-running reader daemon.
//
// It serves a JSON API over the catalog: manga listings, volume metadata,
// bookmark persistence, and page resolution. Page requests go through a
// per-volume resolver that probes the bucket (or the local output tree when
// uploads are disabled) to distinguish single pages from merged double
// spreads. A flock-based lock prevents a second instance from racing the
// first on the catalog database.
package readerd
