// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package corpus

import (
	"errors"
	"fmt"
)

// NotFoundError reports a 4xx from the corpus: the reference does not
// exist or the request was malformed. Never retried. The SEARCH
// hallucination filter relies on this error to drop LLM-proposed refs
// that the corpus rejects.
type NotFoundError struct {
	Ref        string
	StatusCode int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("corpus ref not found: %q (HTTP %d)", e.Ref, e.StatusCode)
}

// IsNotFoundError reports whether err is (or wraps) a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// TransientError reports a retry-worthy failure: network error,
// timeout, or 5xx. Surfaced only after max_retries is exhausted.
type TransientError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("corpus transient failure (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("corpus transient failure: %s", e.Message)
}

// IsTransientError reports whether err is (or wraps) a TransientError.
func IsTransientError(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
