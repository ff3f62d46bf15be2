// Package storage writes election datasets to CSV files.
//
// Files are written into an output directory (default: the current directory,
// "~/" is expanded). Each file is first written to a temporary file in the same
// directory and renamed into place once complete, so a failed run never leaves
// a partial CSV behind.
package storage
