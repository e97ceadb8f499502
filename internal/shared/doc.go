// Package shared provides common utilities and test helpers used across
// the codebase. It is a home for functionality that doesn't belong to any
// specific domain or architectural layer.
//
// The testutil subpackage provides fixture writers for entitlement and
// key-list files plus slog capture helpers for asserting on log output.
package shared
