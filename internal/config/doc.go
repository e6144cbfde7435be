// Package config loads settings from a .env file, an optional config.yaml and
// VIDGEN_* environment variables, then validates them.
package config
