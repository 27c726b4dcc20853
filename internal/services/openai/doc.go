// Package openai implements the small slice of the OpenAI REST API that
// episodedb needs: audio transcription and text embeddings.
//
// Requests are retried on HTTP 408, 429, and 5xx responses and on network
// timeouts with capped exponential backoff, honouring Retry-After when the
// server provides it. Final errors carry services markers so callers can
// tell configuration problems (bad key) from transient ones.
package openai
