// Package api serves the episode catalog, processing workflow and search over
// HTTP using a chi router.
//
// # Routes
//
//	GET    /health
//	GET    /episodes?status=&limit=&offset=
//	POST   /episodes               {"path": "..."}
//	GET    /episodes/pending
//	GET    /episodes/{id}
//	DELETE /episodes/{id}
//	POST   /episodes/{id}/process  {"skipTranscription": bool, "skipThumbnails": bool}
//	GET    /search?q=&limit=
//	POST   /search/similar         {"text": "...", "threshold": 0.7, "limit": 10}
//
// Every route except /health requires "Authorization: Bearer <token>" when a
// token is configured. Each request carries a correlation id from the
// X-Request-ID header (generated when absent) that is echoed in the response
// and stamped on log lines.
//
// # Design Notes
//
// DTOs use camelCase JSON tags and RFC3339 timestamps with milliseconds.
// Errors are {"error": "..."} objects; service markers map to 400
// (validation), 404 (not found), 409 (duplicate import or episode already
// processing), 503 (not configured) and 500 otherwise. Processing runs
// synchronously inside the request.
package api
