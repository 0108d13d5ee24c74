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

package tools

import (
	"errors"
	"fmt"
)

var (
	ErrUpstream         = errors.New("upstream failure")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// UpstreamError reports a failed call to the service behind a tool.
type UpstreamError struct {
	Tool  string
	Cause error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("tool '%s' upstream failure: %v", e.Tool, e.Cause)
}

func (e UpstreamError) Unwrap() error {
	return e.Cause
}

func (e UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

type ArgumentError struct {
	Tool   string
	Reason string
}

func (e ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool '%s': %s", e.Tool, e.Reason)
}

func (e ArgumentError) Is(target error) bool {
	return target == ErrInvalidArguments
}
