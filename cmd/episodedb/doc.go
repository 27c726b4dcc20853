// Command episodedb is the command line entry point for the episode catalog.
//
// It imports video files into the catalog, runs the processing workflow
// (inspection, audio and thumbnail extraction, transcription, segmentation,
// embeddings) for one episode at a time, answers keyword and similarity
// searches, and serves the same operations over HTTP with `episodedb serve`.
// Listing commands print a table on a terminal, tab separated values
// otherwise, and JSON with --json.
package main
