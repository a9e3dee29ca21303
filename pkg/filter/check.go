// Copyright 2017 Capsule8, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package filter implements the runtime event filter engine: the check
// capability interface implemented by every field family, the registry of
// families, the typed comparison of raw values and the boolean expression
// tree that combines checks.
//
// A filter is compiled once and evaluated for every event. Checks keep
// per-instance scratch storage, so a compiled tree must be evaluated by one
// goroutine at a time; comparands never change after compilation.
package filter

import (
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/capsule8/evfilter/pkg/value"
)

// Event is a decoded event handed to the filter by the capture pipeline.
// Field families type-assert it to the event representation they
// understand. Events are read-only to the filter and must not be retained
// past the call they are passed to.
type Event interface{}

// FieldFlags describe how a field may be referenced.
type FieldFlags uint8

// Field flags
const (
	// FieldArgRequired fields must be followed by a bracketed argument,
	// e.g. proc.env[HOME].
	FieldArgRequired FieldFlags = 1 << iota

	// FieldArgAllowed fields may be followed by a bracketed argument.
	FieldArgAllowed

	// FieldFilterOnly fields are meaningful in filters but not when
	// rendered.
	FieldFilterOnly
)

// FieldDescriptor is the static description of one field a family exposes.
type FieldDescriptor struct {
	ID          int
	Type        value.Type
	Name        string
	Description string
	Flags       FieldFlags
	Print       value.PrintFormat
}

// FamilyInfo describes a family of related fields.
type FamilyInfo struct {
	Name        string
	Description string
	Fields      []FieldDescriptor
}

// Check is the capability interface of every node of a filter tree. Leaves
// are configured with ParseFieldName, SetOperator and ParseFilterValue (or
// ParseFilterList), in that order, and are then evaluated with Compare.
type Check interface {
	// ParseFieldName resolves the field at the start of str and returns
	// the number of bytes it consumed.
	ParseFieldName(str string) (int, error)

	// SetOperator sets the comparison operator, failing if it does
	// not apply to the field's type.
	SetOperator(op CompareOp) error

	// ParseFilterValue parses and stores the scalar comparand.
	ParseFilterValue(str string) (*value.Comparand, error)

	// ParseFilterList parses and stores a list comparand.
	ParseFilterList(items []string) (*value.Comparand, error)

	// FieldInfo returns the descriptor of the resolved field.
	FieldInfo() *FieldDescriptor

	// Extract returns a view of the field's raw value in ev. The second
	// result is false when the field does not apply to ev. The view is
	// valid until the next call on this check or until ev is released.
	Extract(ev Event) ([]byte, bool)

	// Compare evaluates the check against ev.
	Compare(ev Event) bool

	// Render returns the field's value in ev as text, or "" if absent.
	Render(ev Event) string

	// RenderJSON returns the field's value in ev as JSON, or null if
	// absent.
	RenderJSON(ev Event) *structpb.Value
}

// Extractor is implemented by field families to pull raw values out of
// events. Each Leaf owns its Extractor, so extractors may keep scratch
// storage for values that have to be encoded.
type Extractor interface {
	Extract(ev Event, field *FieldDescriptor, arg string) ([]byte, bool)
}

// Family is a prototype registered with a Registry. New must return a
// fresh, independent check every time it is called.
type Family interface {
	Info() *FamilyInfo
	New() Check
}
