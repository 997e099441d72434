// Package middleware provides HTTP middleware for the ViewHub control
// plane: CORS with configurable origins, per-IP token bucket rate
// limiting, and request ID tagging.
package middleware
