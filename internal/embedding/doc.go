// Package embedding turns cleaned transcript segments and search queries into
// vectors.
//
// Batcher submits segment texts to a Provider in fixed-size batches, one batch
// at a time, waiting on a Limiter between batches. Providers may return
// vectors out of order; each vector carries the index of its input text and
// the batcher restores input order before pairing vectors with segments. A
// vector count mismatch or a failed provider call fails the whole request
// with an *EmbeddingError.
//
// OpenAIProvider and CohereProvider bind the two supported remote services.
// QueryEmbedder embeds single queries through a Cache (MemoryCache or
// RedisCache) keyed by model and normalized text.
package embedding
