// Package server exposes the translator over HTTP: the upload page, the
// upload, preview and download endpoints, progress polling and streaming,
// and a health check. All error responses are JSON objects with an
// "error" field.
package server
