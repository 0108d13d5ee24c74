// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package search

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRateLimitExhausted = errors.New("search provider kept rate-limiting after multiple attempts")
	ErrSchemaValidation   = errors.New("search provider returned a malformed result")
)

// RateLimitError is returned by a [Provider] when the upstream service
// signals rate limiting. RetryAfter is zero when no delay was suggested.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %v", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

type RateLimitExhaustedError struct {
	Attempts int
	Last     error
}

func (e RateLimitExhaustedError) Error() string {
	return fmt.Sprintf("%v (%d attempts, last: %v)", ErrRateLimitExhausted, e.Attempts, e.Last)
}

func (e RateLimitExhaustedError) Is(target error) bool {
	return target == ErrRateLimitExhausted
}

func (e RateLimitExhaustedError) Unwrap() error {
	return e.Last
}

type SchemaValidationError struct {
	Index int
	Field string
}

func (e SchemaValidationError) Error() string {
	return fmt.Sprintf("%v: result %d is missing required field '%s'", ErrSchemaValidation, e.Index, e.Field)
}

func (e SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}
