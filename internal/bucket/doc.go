// Package bucket talks to the S3-compatible object store (Cloudflare R2) that
// hosts the published page images.
//
// Keys follow the layout produced by internal/naming:
// manga/<slug>/volume-NNN/PPP.webp. Uploads set long-lived immutable cache
// headers because published pages never change in place. The same client
// doubles as the reader's asset existence prober.
package bucket
