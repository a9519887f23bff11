// Package httpmiddleware contains net/http middlewares shared by the Scatch
// HTTP server.
package httpmiddleware

import (
	"net/http"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost one.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RouteFinder resolves the route template ("/api/orders/:ref") serving r.
// It reports false when no route matches.
type RouteFinder func(r *http.Request) (string, bool)

// routeOf returns the route template of r or a fixed label for unmatched
// requests, keeping metric cardinality bounded.
func routeOf(find RouteFinder, r *http.Request) string {
	if find != nil {
		if route, ok := find(r); ok {
			return route
		}
	}
	return "unmatched"
}
