// Package api translates HTTP requests into service calls. Handlers decode
// and validate JSON bodies, read the caller's identity placed in the context
// by the middleware package, and map service errors to status codes with
// safe messages. No handler waits on video generation.
package api
