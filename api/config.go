// Package api provides the HTTP API server for uploading documents and
// asking questions about them.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// MaxUploadBytes caps multipart uploads. Zero uses the document
	// service's limit.
	MaxUploadBytes int64
}
