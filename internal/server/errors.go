package server

import "errors"

// Sentinel protocol errors, so callers can switch on kind via errors.Is
// instead of string-matching.
var (
	// ErrUnsupportedRoute is returned when a request's method/path pair
	// does not match any route the server exposes.
	ErrUnsupportedRoute = errors.New("server: unsupported method or path")
)
