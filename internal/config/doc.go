// Package config loads, normalizes, and validates episodedb configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY. The Config type centralizes every knob the CLI and HTTP
// server need so catalog, media, and provider settings are discovered in one
// pass.
package config
