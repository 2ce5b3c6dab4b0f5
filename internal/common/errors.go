// Package common defines shared constants and sentinel errors used across
// client and server layers of filedrop. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository/storage-level errors. An unknown share code, a missing
	// object and an expired-but-undeleted record all surface as
	// ErrorNotFound so that callers cannot probe for existence.
	ErrorNotFound = errors.New("not found")

	// Validation errors: surfaced immediately, never retried.
	ErrorEmptyContent = errors.New("share content is empty")
	ErrorTooLarge     = errors.New("exceeds maximum size")
	ErrorBadChunk     = errors.New("malformed chunk payload")

	// Envelope errors. ErrorDecryption deliberately covers both a wrong
	// password and a tampered wrapped key: AES-GCM authentication failure
	// is the only signal, and the two causes must stay indistinguishable.
	ErrorVersionMismatch = errors.New("unsupported envelope version")
	ErrorIntegrity       = errors.New("integrity check failed")
	ErrorDecryption      = errors.New("decryption failed")

	// Chunk protocol errors.
	ErrorSessionNotFound  = errors.New("chunk session not found")
	ErrorIncompleteUpload = errors.New("incomplete upload")

	// Allocation errors, retryable with fresh parameters.
	ErrorExhausted = errors.New("share code allocation exhausted")
	ErrorCodeTaken = errors.New("share code already taken")

	// Generic service errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
)
