// Package errs defines the sentinel error taxonomy shared across stages.
package errs

import "errors"

// ErrInputFormat marks a malformed CSV row, unknown opcode, or truncated
// script. Policy: log and skip, count in a per-stage rejection metric.
var ErrInputFormat = errors.New("input format error")

// ErrTransientNode marks a retryable Node Client failure (timeout,
// rate-limit, connection reset).
var ErrTransientNode = errors.New("transient node error")

// ErrPermanentNode marks a non-retryable Node Client failure (txid not
// found, malformed response).
var ErrPermanentNode = errors.New("permanent node error")

// ErrInvariantViolation marks a fatal condition: FK violation, schema
// mismatch, checkpoint inconsistency. The stage must abort.
var ErrInvariantViolation = errors.New("invariant violation")
