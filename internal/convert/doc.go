// Package convert turns source page scans into the published WebP layout.
//
// It scans the source tree for volume folders (v1, Vol 02, volume-003), numbers
// the pages inside each folder in name order, and encodes them with the
// external cwebp binary. Landscape images are treated as pre-merged double
// spreads: they take two consecutive page numbers and are written with the
// hyphenated spread file name, which is what the reader's page resolver probes
// for.
package convert
