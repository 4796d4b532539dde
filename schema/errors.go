package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmptyPrompt indicates the prompt was empty.
	ErrEmptyPrompt = errors.New("empty prompt")
	// ErrSendInProgress indicates a send is already streaming for the session.
	ErrSendInProgress = errors.New("send already in progress")
	// ErrMissingEventType indicates an event payload has no type discriminant.
	ErrMissingEventType = errors.New("event type missing")
	// ErrInvalidThread indicates an invalid thread identifier.
	ErrInvalidThread = errors.New("invalid thread")
	// ErrThreadNotFound indicates a thread has no stored history.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrHistorySuperseded indicates a history load was overtaken by a newer chat change.
	ErrHistorySuperseded = errors.New("history load superseded")
	// ErrBackendUnavailable indicates no chat backend is configured.
	ErrBackendUnavailable = errors.New("chat backend not configured")
)
