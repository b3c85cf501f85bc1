package services

import "errors"

// Sentinel errors for the failure taxonomy. Services wrap these with
// fmt.Errorf("...: %w", ...) context; controllers map them to status codes.
var (
	// ErrNotFound - the record, user or staging entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized - the credential is invalid, or the caller is not
	// allowed to change the requested attributes.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadRequest - malformed input or a forbidden/unknown patch field.
	// Detected before any mutation is applied.
	ErrBadRequest = errors.New("bad request")

	// ErrConditionFailed - an optimistic-concurrency race was lost. Not
	// retried on the patch path; the caller re-fetches and re-submits.
	ErrConditionFailed = errors.New("condition failed")
)
