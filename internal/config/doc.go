// Package config loads, normalizes, and validates tanko configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// R2_ACCESS_KEY_ID. The Config type centralizes every knob the CLI and reader
// daemon need, so source/output directories and bucket credentials are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
