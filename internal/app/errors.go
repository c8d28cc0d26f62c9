package service

import "errors"

// Sentinel kinds for invocation failures. Soft failures (non-.docx input,
// NLU errors, metadata update failures) never surface as errors.
var (
	ErrStorage  = errors.New("storage backend")
	ErrDownload = errors.New("download source file")
	ErrExtract  = errors.New("extract text")
	ErrPublish  = errors.New("publish skill cards")
)
