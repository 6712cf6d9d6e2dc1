// Package api exposes the orchestrator and audio resolver over HTTP under
// /api/v1. Uploads arrive as multipart forms with the audio in the "file"
// field; every error is an errors.ErrorResponse envelope.
package api
