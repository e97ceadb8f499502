// Package http contains the HTTP transport layer: chi handlers, request
// binding and validation, and the mapping from domain errors to RFC 7807
// problem responses.
package http
