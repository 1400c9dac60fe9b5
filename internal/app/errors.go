package app

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrStorageFailure    = errors.New("storage failure")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrGenerationFailure = errors.New("generation failure")
)
