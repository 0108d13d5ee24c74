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

import (
	"encoding/json"
	"slices"
)

type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeInteger DataType = "integer"
	TypeBoolean DataType = "boolean"
	TypeArray   DataType = "array"
	TypeObject  DataType = "object"
)

// Schema is an incomplete OpenAPI 3.0 schema object
type Schema struct {
	Description string             `json:"description,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Title       string             `json:"title,omitempty"`
	Type        DataType           `json:"type,omitempty"`
}

// ObjectSchema builds an object schema whose properties are all
// required strings, which is the shape every tool argument record takes.
func ObjectSchema(properties map[string]string) *Schema {
	s := &Schema{
		Type:       TypeObject,
		Properties: make(map[string]*Schema, len(properties)),
		Required:   make([]string, 0, len(properties)),
	}
	for name, desc := range properties {
		s.Properties[name] = &Schema{
			Type:        TypeString,
			Description: desc,
		}
		s.Required = append(s.Required, name)
	}
	slices.Sort(s.Required)
	return s
}

func (s Schema) MarshalJSON() ([]byte, error) {
	type Alias Schema
	out := struct {
		Alias
	}{
		Alias: (Alias)(s),
	}
	// function calling APIs reject objects without a properties field
	if out.Type == TypeObject && out.Properties == nil {
		out.Properties = map[string]*Schema{}
	}
	return json.Marshal(&out)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	type Alias Schema
	aux := &struct {
		Alias
	}{}

	if err := json.Unmarshal(data, &aux.Alias); err != nil {
		return err
	}

	*s = Schema(aux.Alias)

	return nil
}
