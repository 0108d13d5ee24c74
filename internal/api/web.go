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

package api

import "fmt"

// SafeSearch selects the content filtering level requested from a
// search provider.
type SafeSearch string

const (
	SafeSearchOn       SafeSearch = "on"
	SafeSearchModerate SafeSearch = "moderate"
	SafeSearchOff      SafeSearch = "off"
)

// ParseSafeSearch validates s. An empty string yields [SafeSearchModerate].
func ParseSafeSearch(s string) (SafeSearch, error) {
	switch SafeSearch(s) {
	case "":
		return SafeSearchModerate, nil
	case SafeSearchOn, SafeSearchModerate, SafeSearchOff:
		return SafeSearch(s), nil
	default:
		return "", fmt.Errorf("invalid safesearch mode '%s', expected one of on, moderate, off", s)
	}
}

type WebSearchRequest struct {
	// Required
	Query string

	// Optional
	Limit int
}

// SearchResult is a single ranked hit returned by a web search provider.
type SearchResult struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// WebAnswer is a generated answer to a question, optionally
// backed by the sources the provider consulted.
type WebAnswer struct {
	Query   string
	Answer  string
	Sources []SearchResult
}
