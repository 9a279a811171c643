package service

import "errors"

var (
	// ErrEmptyMessage rejects a message with neither text nor images.
	ErrEmptyMessage = errors.New("message requires text or images")
	// ErrAttachmentsUnavailable is returned when no upload backend is configured.
	ErrAttachmentsUnavailable = errors.New("attachment storage not configured")
	// ErrEmptyQuestion rejects a thread without question text.
	ErrEmptyQuestion = errors.New("question text is required")
)
