package domain

import "errors"

var (
	// ErrTransportFailure marks network or HTTP level failures of the generation API
	ErrTransportFailure = errors.New("transport failure")

	// ErrMalformedResponse marks a successful call whose payload lacks a candidate
	ErrMalformedResponse = errors.New("malformed response")

	// ErrPersistenceFailure marks a failed history store operation
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrEmptyMessage         = errors.New("message is empty")
	ErrGenerationInProgress = errors.New("a response is already being generated")
	ErrUnknownQuickReply    = errors.New("quick reply is not offered")
	ErrSessionClosed        = errors.New("session is closed")
	ErrSessionNotFound      = errors.New("session not found")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)
