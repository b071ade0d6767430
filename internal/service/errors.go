package service

import "errors"

var (
	// ErrEmptyEmailBatch is returned when a parsed upload contains no accepted address
	ErrEmptyEmailBatch = errors.New("no valid email addresses in the uploaded list")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)
