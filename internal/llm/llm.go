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

package llm

import (
	"context"
	"strings"

	"github.com/alan-mat/qagent/internal/api"
)

// ChatModel is a language model that answers a conversation,
// optionally requesting tool invocations instead of text.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds a complete conversation sent to a [ChatModel].
// The system prompt, if any, is the first message with [MessageRoleSystem].
type ChatRequest struct {
	// Required
	Messages []Message

	// Optional
	Model       string
	Tools       []ToolDefinition
	Temperature *float32
}

type ChatResponse struct {
	Message      Message
	FinishReason string
	Usage        Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ToolDefinition describes a tool the model may call.
// Parameters is the JSON schema of the tool's argument record.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *api.Schema
}

// ToolCall is a single tool invocation requested by the model.
// Arguments holds the raw JSON argument record.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message contains a single message, consisting of many parts.
type Message struct {
	Role  MessageRole
	Parts []MessagePart

	// ToolCalls is set on assistant messages requesting tool invocations.
	ToolCalls []ToolCall

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string
}

// Text returns all the text parts of a Message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == MessagePartTypeText {
			t, _ := p.Text()
			sb.WriteString(t)
		}
	}
	return sb.String()
}

// TextMessage is a helper function that returns a Message
// with a single text part.
func TextMessage(role MessageRole, text string) Message {
	return Message{
		Role: role,
		Parts: []MessagePart{
			NewTextPart(text),
		},
	}
}

// ToolResultMessage returns the message answering the tool call with the given id.
func ToolResultMessage(callID string, text string) Message {
	return Message{
		Role:       MessageRoleTool,
		Parts:      []MessagePart{NewTextPart(text)},
		ToolCallID: callID,
	}
}

// MessageRole defines the source of the message.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// MessagePart is a single message part that may hold
// a payload of different [MessagePartType]s.
type MessagePart struct {
	Type MessagePartType
	text *string
	file *FileRef
}

// NewTextPart creates a new [MessagePart] containing a text payload.
func NewTextPart(text string) MessagePart {
	return MessagePart{
		Type: MessagePartTypeText,
		text: &text,
	}
}

// NewFilePart creates a new [MessagePart] referencing remote media by URI.
func NewFilePart(mimeType string, uri string) MessagePart {
	return MessagePart{
		Type: MessagePartTypeFile,
		file: &FileRef{
			MIMEType: mimeType,
			URI:      uri,
		},
	}
}

// Text returns the text payload.
// Error returns not-nil if the part's type is not text,
// or if the text payload is nil.
func (p MessagePart) Text() (string, error) {
	if p.Type != MessagePartTypeText {
		return "", MismatchMessagePartTypeError{
			Wanted: MessagePartTypeText,
			Real:   p.Type,
		}
	}

	if p.text == nil {
		return "", NilPayloadError{Type: MessagePartTypeText}
	}

	return *p.text, nil
}

// File returns the file reference payload.
// If this method returns a nil error then the returned value
// will always be a not-nil pointer to [FileRef].
func (p MessagePart) File() (*FileRef, error) {
	if p.Type != MessagePartTypeFile {
		return nil, MismatchMessagePartTypeError{
			Wanted: MessagePartTypeFile,
			Real:   p.Type,
		}
	}

	if p.file == nil {
		return nil, NilPayloadError{Type: MessagePartTypeFile}
	}

	return p.file, nil
}

// MessagePartType specifies the payload type of a message part.
type MessagePartType string

const (
	MessagePartTypeText MessagePartType = "text"
	MessagePartTypeFile MessagePartType = "file"
)

// FileRef points to media hosted elsewhere, such as a video URL.
// The type of source data follows the IANA standard MIME type.
type FileRef struct {
	MIMEType string
	URI      string
}
