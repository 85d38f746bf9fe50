// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal run models into transport-friendly DTOs so
// HTTP consumers never couple to internal types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (runstore.Status) are exposed as lowercase strings. Timestamps use
// RFC3339 with milliseconds.
package api
