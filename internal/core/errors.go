package core

import "errors"

// Failure taxonomy shared across pipelines. Collaborators wrap these with %w so
// callers can branch with errors.Is without inspecting messages.
var (
	// ErrUnauthorized means the caller identity is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the record is absent or owned by someone else. The two
	// cases are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("memory not found")

	// ErrRateLimited maps a gateway 429.
	ErrRateLimited = errors.New("model gateway rate limited")

	// ErrBillingRequired maps a gateway 402.
	ErrBillingRequired = errors.New("model gateway payment required")

	// ErrUpstream covers any other non-success gateway response.
	ErrUpstream = errors.New("model gateway error")

	// ErrMalformedResponse means a structurally complete payload failed to parse.
	ErrMalformedResponse = errors.New("malformed gateway response")

	// ErrTransport is an I/O failure talking to a collaborator, including
	// mid-stream disconnects.
	ErrTransport = errors.New("transport error")
)
