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
	"github.com/capsule8/evfilter/pkg/value"
)

// CompareOp is a comparison operator applied by a leaf check.
type CompareOp uint8

// Comparison operators
const (
	OpNone CompareOp = iota
	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpContains
	OpIContains
	OpStartsWith
	OpEndsWith
	OpGlob
	OpIn
	OpNotIn
	OpContainsAny
	OpExists
)

// OpClass groups operators by the value types they apply to.
type OpClass uint8

// Operator classes
const (
	ClassNone OpClass = iota
	ClassEquality
	ClassOrdering
	ClassSubstring
	ClassMembership
	ClassExistence
)

// Class returns the applicability class of op.
func (op CompareOp) Class() OpClass {
	switch op {
	case OpEQ, OpNE:
		return ClassEquality
	case OpLT, OpLE, OpGT, OpGE:
		return ClassOrdering
	case OpContains, OpIContains, OpStartsWith, OpEndsWith, OpGlob:
		return ClassSubstring
	case OpIn, OpNotIn, OpContainsAny:
		return ClassMembership
	case OpExists:
		return ClassExistence
	default:
		return ClassNone
	}
}

// TakesList reports whether op compares against a list comparand.
func (op CompareOp) TakesList() bool {
	return op.Class() == ClassMembership
}

// TakesValue reports whether op compares against a comparand at all.
func (op CompareOp) TakesValue() bool {
	return op != OpExists && op != OpNone
}

// Connector joins the children of an Expression.
type Connector uint8

// Boolean connectors
const (
	And Connector = iota
	Or
	Not
)

func (c Connector) String() string {
	switch c {
	case And:
		return "and"
	case Or:
		return "or"
	case Not:
		return "not"
	}
	return "<<invalid>>"
}

// IsApplicable reports whether op may be used on values of type t.
func IsApplicable(op CompareOp, t value.Type) bool {
	switch op.Class() {
	case ClassEquality, ClassExistence:
		return t != value.TypeNone
	case ClassOrdering:
		return t.IsOrdered()
	case ClassSubstring:
		return t.IsString()
	case ClassMembership:
		if op == OpContainsAny {
			return t.IsString()
		}
		return t != value.TypeNone
	default:
		return false
	}
}
