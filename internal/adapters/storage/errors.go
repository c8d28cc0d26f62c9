package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrUnsupportedBackend = errors.New("unsupported storage backend")
	ErrDownload           = errors.New("download file")
	ErrMissingToken       = errors.New("missing access token")
)
