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
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/alan-mat/qagent/internal/api"
)

// Request describes one search call.
type Request struct {
	// Required
	Query string

	// Optional
	SafeSearch api.SafeSearch
	MaxResults int

	// Params holds provider connection options such as "timeout"
	// (seconds) and "proxy" (URL).
	Params map[string]any
}

// CanonicalParams renders params as JSON with sorted keys and quoted
// values, so maps holding the same pairs always produce the same string
// and different pairs never do.
func CanonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		// unsupported values fall back to Go syntax, still quoted per pair
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%q:%#v", k, params[k]))
		}
		return "{" + strings.Join(pairs, ",") + "}"
	}
	return string(data)
}

// Key derives the cache key of a request.
func Key(req Request) string {
	joined := strings.Join([]string{
		strconv.Quote(req.Query),
		strconv.Quote(CanonicalParams(req.Params)),
		strconv.Quote(string(req.SafeSearch)),
		strconv.Itoa(req.MaxResults),
	}, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("ddg:%x", hash[:12])
}
