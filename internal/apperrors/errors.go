package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidCategory indicates a category key that is not present in the taxonomy.
var ErrInvalidCategory = errors.New("invalid category key")

// ErrTransport indicates a network or 5xx failure talking to an external service.
// Callers may retry.
var ErrTransport = errors.New("transport error")

// ErrAuthInvalid indicates the aggregator rejected our credentials. Not retryable.
var ErrAuthInvalid = errors.New("aggregator credentials rejected")

// ErrRateLimited indicates the aggregator throttled the request.
var ErrRateLimited = errors.New("aggregator rate limited")

// ErrConsentRequired indicates the item needs additional user consent before the
// requested product can be served. Non-fatal for a sync run.
var ErrConsentRequired = errors.New("additional consent required")

// ErrPaginationMutated indicates the underlying transaction set changed while we
// were paging through it; the sync loop resets to the last committed cursor.
var ErrPaginationMutated = errors.New("pagination invalidated by upstream mutation")

// ErrStoreCommitFailed indicates the batch transaction failed to commit. The
// cursor must not advance past the failed batch.
var ErrStoreCommitFailed = errors.New("store commit failed")
