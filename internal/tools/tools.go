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
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/alan-mat/qagent/internal/llm"
	"github.com/alan-mat/qagent/internal/registry"
)

// Func executes a tool with its raw JSON argument record.
type Func func(ctx context.Context, args json.RawMessage) (string, error)

// Middleware wraps a Func with additional behavior.
type Middleware func(next Func) Func

// Tool is a named capability the model may invoke.
type Tool struct {
	Definition llm.ToolDefinition
	Handler    Func
}

func (t Tool) Name() string {
	return t.Definition.Name
}

func (t Tool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	return t.Handler(ctx, args)
}

// With returns a copy of t whose handler is wrapped by mws.
// The first middleware is the outermost.
func (t Tool) With(mws ...Middleware) Tool {
	t.Handler = Chain(t.Handler, mws...)
	return t
}

func Chain(f Func, mws ...Middleware) Func {
	for _, mw := range slices.Backward(mws) {
		f = mw(f)
	}
	return f
}

// Set is the collection of tools available to an agent, keyed by name.
type Set = registry.Registry[string, Tool]

func NewSet(tools ...Tool) *Set {
	s := registry.New[string, Tool]()
	for _, t := range tools {
		s.Register(t.Name(), t)
	}
	return s
}

// Names returns the names of all tools in s, sorted.
func Names(s *Set) []string {
	names := s.List()
	slices.Sort(names)
	return names
}

// Definitions returns the definitions of all tools in s, sorted by name.
func Definitions(s *Set) []llm.ToolDefinition {
	tools := s.Values()
	slices.SortFunc(tools, func(a, b Tool) int {
		return strings.Compare(a.Name(), b.Name())
	})

	defs := make([]llm.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition)
	}
	return defs
}
