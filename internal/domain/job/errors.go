package job

import "errors"

// Failure classes shared by every launch step. Callers match them with errors.Is.
var (
	// ErrMissingInput covers absent documents, API keys and model packages.
	ErrMissingInput = errors.New("missing input")
	// ErrInvalidPlatform is returned for an unsupported packaging platform.
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrRemoteFailure covers failed model uploads, endpoint requests and package builds.
	ErrRemoteFailure = errors.New("remote failure")
	// ErrFilesystem covers folders and files that cannot be created or written.
	ErrFilesystem = errors.New("filesystem failure")
	// ErrInvalidDocument is returned when the job document is not a mapping.
	ErrInvalidDocument = errors.New("invalid job document")
)
