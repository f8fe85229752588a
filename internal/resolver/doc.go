// Package resolver maps logical page indices to the physical assets a volume
// actually serves.
//
// A volume declares one single-page URL per logical page, but some pages were
// published as merged double spreads named by joining both zero-padded page
// numbers with a hyphen ("006-007.webp"). The resolver probes for the declared
// asset first, falls back to the two possible merged names, and caches the
// outcome under every logical index the asset covers. Navigation and the
// effective page count respect spread boundaries so a spread is one stop.
//
// A missing asset is never an error: unresolved pages degrade to the declared
// URL so navigation keeps working.
package resolver
