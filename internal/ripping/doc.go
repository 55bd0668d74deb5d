// Package ripping selects and runs the rip strategy for a classified disc.
//
// Music CDs go through abcde, data discs are imaged with dd, and dvd/bluray
// discs run the configured MakeMKV-style ripper before the organizer files
// the output into the library. Tool output is appended to the job's log
// file; only exit codes decide success.
package ripping
