// Package extract turns denormalized observations into per-table tuples.
//
// Extraction runs in dependency order. Lookup values (class names, survey
// object ids) are resolved against the committed parent table, loaded with
// one query per table, and any miss aborts extraction with an
// *skyload.UnresolvedReferenceError naming the offending row.
package extract
