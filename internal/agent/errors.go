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

package agent

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvocation = errors.New("model invocation failed")
	ErrStepLimit       = errors.New("tool call step limit exceeded")
)

// ModelInvocationError reports that the agent's model call itself failed,
// as opposed to a tool the model called.
type ModelInvocationError struct {
	Step  int
	Cause error
}

func (e ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed at step %d: %v", e.Step, e.Cause)
}

func (e ModelInvocationError) Unwrap() error {
	return e.Cause
}

func (e ModelInvocationError) Is(target error) bool {
	return target == ErrModelInvocation
}
