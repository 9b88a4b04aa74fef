// Package extract implements the per-file extraction job: fetch the raw
// content behind a blob address, compute model.FileStats and save them to
// a Store. Saving is keyed by address, so running a job twice for the same
// file only refreshes its row.
package extract
