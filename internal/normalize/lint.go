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

package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Rule string

const (
	RuleEmpty              Rule = "empty"
	RuleThousandsSeparator Rule = "thousands_separator"
	RuleUnitSymbol         Rule = "unit_symbol"
	RuleLeadingArticle     Rule = "leading_article"
	RuleDigitsInString     Rule = "digits_in_string"
	RuleCapitalization     Rule = "capitalization"
	RuleCommaSpacing       Rule = "comma_spacing"
	RuleListCase           Rule = "list_case"
)

// Violation is a breach of the canonical answer format.
type Violation struct {
	Rule    Rule
	Element string
}

var (
	numberRE    = regexp.MustCompile(`^[-+]?\d+(\.\d+)?$`)
	thousandsRE = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	symbolRE    = regexp.MustCompile(`[$€£¥%]`)
	articles    = []string{"the ", "a ", "an "}
)

// Lint checks answer against the format rules that can be verified
// without knowing the question.
func Lint(answer string) []Violation {
	var out []Violation
	if strings.TrimSpace(answer) == "" {
		return []Violation{{Rule: RuleEmpty}}
	}

	if thousandsRE.MatchString(strings.TrimSpace(answer)) {
		return []Violation{{Rule: RuleThousandsSeparator, Element: answer}}
	}

	parts := strings.Split(answer, ",")
	for i, p := range parts[1:] {
		if !strings.HasPrefix(p, " ") || strings.HasPrefix(p, "  ") {
			out = append(out, Violation{Rule: RuleCommaSpacing, Element: strings.TrimSpace(parts[i+1])})
		}
	}

	isList := len(parts) > 1
	for _, p := range parts {
		el := strings.TrimSpace(p)
		if el == "" {
			out = append(out, Violation{Rule: RuleEmpty})
			continue
		}

		if symbolRE.MatchString(el) {
			out = append(out, Violation{Rule: RuleUnitSymbol, Element: el})
			continue
		}
		if numberRE.MatchString(el) {
			continue
		}

		lower := strings.ToLower(el)
		for _, a := range articles {
			if strings.HasPrefix(lower, a) {
				out = append(out, Violation{Rule: RuleLeadingArticle, Element: el})
				break
			}
		}

		if strings.ContainsFunc(el, unicode.IsDigit) {
			out = append(out, Violation{Rule: RuleDigitsInString, Element: el})
		}

		first, _ := utf8.DecodeRuneInString(el)
		if !unicode.IsLetter(first) {
			continue
		}
		if isList && !unicode.IsLower(first) {
			out = append(out, Violation{Rule: RuleListCase, Element: el})
		}
		if !isList && !unicode.IsUpper(first) {
			out = append(out, Violation{Rule: RuleCapitalization, Element: el})
		}
	}

	return out
}
