// Package search ranks stored transcript segments against a query.
//
// Cosine and Rank are pure functions: Rank scores every candidate by cosine
// similarity, drops those under the threshold and returns at most limit
// matches, best first. Service layers keyword search and embedding-backed
// similarity search over the catalog.
package search
