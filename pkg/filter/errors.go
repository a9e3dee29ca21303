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

package filter

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Compile-time errors. value.ErrValueTooLong and value.ErrMalformedLiteral
// complete the set.
var (
	ErrUnknownField        = errors.New("unknown field")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrUnsupportedOperator = errors.New("operator not supported for field type")
	ErrMalformedExpression = errors.New("malformed expression")
	ErrSyntax              = errors.New("syntax error")
)

// CompileError reports why a filter could not be compiled and where.
type CompileError struct {
	Err     error
	Field   string
	Literal string

	// Offset is the byte offset of the offending condition within the
	// filter text, or -1 if unknown.
	Offset int
}

func (e *CompileError) Error() string {
	var b bytes.Buffer
	b.WriteString("filter error")
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " in %s", e.Field)
	}
	if e.Literal != "" {
		fmt.Fprintf(&b, " (value %q)", e.Literal)
	}
	fmt.Fprintf(&b, ": %s", e.Err)
	return b.String()
}

// Cause returns the underlying error for github.com/pkg/errors.
func (e *CompileError) Cause() error { return e.Err }

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *CompileError) Unwrap() error { return e.Err }

func compileError(err error, field, literal string) *CompileError {
	return &CompileError{
		Err:     err,
		Field:   field,
		Literal: literal,
		Offset:  -1,
	}
}
