// Package httpapi exposes a simenv.Registry over HTTP with JSON bodies.
//
// Routes live under /v1. Failures are answered with a {"kind","message"}
// body whose kind is the registry error taxonomy name; client kinds map to
// 4xx and everything else to 5xx.
package httpapi
