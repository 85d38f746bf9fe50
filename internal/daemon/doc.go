// Package daemon hosts the HTTP API and enforces single-instance execution
// via a lock file. It accepts uploads, drives runs through the workflow
// manager, and streams per-run progress to observers over SSE and WebSocket.
package daemon
