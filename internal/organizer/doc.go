// Package organizer moves ripped files into the final library layout.
//
// The library splits by video classification: movies/, tv/, and
// unidentified/ each hold per-title directories named "Title (Year)". The
// largest ripped file is the main feature and takes the title name; the
// remaining files land in an extras subdirectory, except for series, which
// keep everything flat in the title directory. Existing files are never
// overwritten; a collision skips the file and leaves the source in place.
package organizer
