// Package httpexec centralizes HTTP request execution for the Strapi clients.
//
// RequestExecutor builds requests from declarative details, performs them via
// an injected transport, logs every exchange, and converts non-success status
// codes into typed errors carrying the response for caller inspection.
package httpexec
