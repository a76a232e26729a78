package model

import "github.com/m-mizutani/goerr/v2"

// Error categories that change client-visible behavior. Wrap them with
// goerr.Wrap and test with errors.Is.
var (
	ErrInvalidInput      = goerr.New("invalid input")
	ErrConfiguration     = goerr.New("provider is not configured")
	ErrExtraction        = goerr.New("failed to extract text from document")
	ErrEmptyDocument     = goerr.New("document has no text")
	ErrChecklistNotFound = goerr.New("checklist not found")
)
