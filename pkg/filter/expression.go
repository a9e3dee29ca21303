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
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/capsule8/evfilter/pkg/value"
)

// Expression is an interior node of a filter tree. It combines its
// children with a boolean connector. Only Compare is meaningful on an
// Expression; the leaf configuration and extraction methods panic.
type Expression struct {
	Conn     Connector
	children []Check
}

// NewExpression returns an interior node joining children with conn.
func NewExpression(conn Connector, children ...Check) *Expression {
	return &Expression{
		Conn:     conn,
		children: children,
	}
}

// Children returns the node's children in evaluation order.
func (expr *Expression) Children() []Check {
	return expr.children
}

// Compare evaluates the children left to right, stopping as soon as the
// result is known.
func (expr *Expression) Compare(ev Event) bool {
	switch expr.Conn {
	case And:
		for _, c := range expr.children {
			if !c.Compare(ev) {
				return false
			}
		}
		return true

	case Or:
		for _, c := range expr.children {
			if c.Compare(ev) {
				return true
			}
		}
		return false

	case Not:
		if len(expr.children) != 1 {
			panic("filter: not expression must have exactly one child")
		}
		return !expr.children[0].Compare(ev)
	}

	panic("filter: invalid connector " + expr.Conn.String())
}

// String returns the expression in filter text form.
func (expr *Expression) String() string {
	return expressionAsString(expr)
}

func interiorPanic(method string) {
	panic("filter: " + method + " called on an expression node")
}

// ParseFieldName panics: expressions have no field.
func (expr *Expression) ParseFieldName(str string) (int, error) {
	interiorPanic("ParseFieldName")
	return 0, nil
}

// SetOperator panics: expressions have no operator.
func (expr *Expression) SetOperator(op CompareOp) error {
	interiorPanic("SetOperator")
	return nil
}

// ParseFilterValue panics: expressions have no comparand.
func (expr *Expression) ParseFilterValue(str string) (*value.Comparand, error) {
	interiorPanic("ParseFilterValue")
	return nil, nil
}

// ParseFilterList panics: expressions have no comparand.
func (expr *Expression) ParseFilterList(items []string) (*value.Comparand, error) {
	interiorPanic("ParseFilterList")
	return nil, nil
}

// FieldInfo panics: expressions have no field.
func (expr *Expression) FieldInfo() *FieldDescriptor {
	interiorPanic("FieldInfo")
	return nil
}

// Extract panics: expressions have no value.
func (expr *Expression) Extract(ev Event) ([]byte, bool) {
	interiorPanic("Extract")
	return nil, false
}

// Render panics: expressions have no value.
func (expr *Expression) Render(ev Event) string {
	interiorPanic("Render")
	return ""
}

// RenderJSON panics: expressions have no value.
func (expr *Expression) RenderJSON(ev Event) *structpb.Value {
	interiorPanic("RenderJSON")
	return nil
}

// Walk calls fn for every leaf under expr in evaluation order.
func (expr *Expression) Walk(fn func(Check)) {
	for _, c := range expr.children {
		if e, ok := c.(*Expression); ok {
			e.Walk(fn)
			continue
		}
		fn(c)
	}
}
