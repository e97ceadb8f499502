// Package app wires the entitlement service together: configuration,
// logging, OpenTelemetry, the license manager, and the HTTP server with
// its middleware chain.
package app
