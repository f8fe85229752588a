// Package catalog persists manga metadata, volume records, and reading
// bookmarks in a local SQLite database.
//
// The catalog is the system of record the reader API serves from and the
// pipeline writes into after converting and uploading a volume. Page images
// themselves live in the bucket; the catalog only stores counts, labels, and
// the bookmark's physical page URL.
package catalog
