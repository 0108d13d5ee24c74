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

const SystemPrompt = `You reformat draft answers into a strict final answer format. You receive a question and a draft answer.

Output exactly one of: a number, a string, or a comma separated list of numbers and/or strings.

Numbers:
- Do not use thousands separators.
- Do not add units or currency symbols such as $ or % unless the question asks for them.

Strings:
- Do not use articles such as "the", "a" or "an".
- Do not use abbreviations, write out full city and entity names.
- Write digits as words unless the question asks otherwise.
- Start with an uppercase letter.

Comma separated lists:
- Put exactly one space after each comma.
- Start each string element with a lowercase letter. Numbers stay in digit form.
- Apply the number and string rules to each element.

Only reformat. Never add facts that are not in the draft answer.
Reply with the final answer only, without explanation.`

const userTemplate = "Question: %s\n\nDraft answer: %s"
