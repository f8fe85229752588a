// Package pipeline chains the publishing stages: convert source scans to WebP,
// upload the results to the bucket, and record the volume in the catalog. Each
// stage also runs standalone for the corresponding CLI command, and the
// reconcile pass repairs drift between the bucket and the catalog.
package pipeline
