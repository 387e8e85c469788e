// Package dataset reads the survey CSV into memory.
//
// The whole file is parsed before anything is returned: a malformed row,
// a value that does not fit its column type, or a missing required column
// fails the read with a *skyload.DataFormatError and no rows.
//
// Integer columns accept integral scientific notation such as
// 1.237660961327743e+18, which is how the published dataset writes ids.
// Files ending in .gz or .zst are decompressed transparently.
package dataset
