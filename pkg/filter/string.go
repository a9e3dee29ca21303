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
	"fmt"
	"strconv"
	"strings"

	"github.com/capsule8/evfilter/pkg/value"
)

var operatorStrings = map[CompareOp]string{
	OpEQ:          "=",
	OpNE:          "!=",
	OpLT:          "<",
	OpLE:          "<=",
	OpGT:          ">",
	OpGE:          ">=",
	OpContains:    "contains",
	OpIContains:   "icontains",
	OpStartsWith:  "startswith",
	OpEndsWith:    "endswith",
	OpGlob:        "glob",
	OpIn:          "in",
	OpNotIn:       "notin",
	OpContainsAny: "containsany",
	OpExists:      "exists",
}

var operatorNames = map[string]CompareOp{
	"==": OpEQ,
}

func init() {
	for op, s := range operatorStrings {
		operatorNames[s] = op
	}
}

func (op CompareOp) String() string {
	if s, ok := operatorStrings[op]; ok {
		return s
	}
	return "<<invalid>>"
}

// ParseOp maps the textual form of an operator to a CompareOp.
func ParseOp(s string) (CompareOp, bool) {
	op, ok := operatorNames[s]
	return op, ok
}

// literalAsString renders a comparand in filter text form. Scalar strings
// are quoted so that the rendered filter compiles back to the same tree.
func literalAsString(c *value.Comparand) string {
	if c.List || !c.Type.IsString() {
		return c.String()
	}
	return strconv.Quote(c.String())
}

func checkAsString(chk Check) string {
	switch c := chk.(type) {
	case *Expression:
		return expressionAsString(c)
	case fmt.Stringer:
		return c.String()
	}
	return fmt.Sprintf("<<%T>>", chk)
}

func expressionAsString(expr *Expression) string {
	if expr.Conn == Not {
		if len(expr.children) != 1 {
			return "not <<invalid>>"
		}
		return fmt.Sprintf("not %s", nestedAsString(expr.children[0]))
	}

	parts := make([]string, len(expr.children))
	for i, child := range expr.children {
		parts[i] = nestedAsString(child)
	}
	return strings.Join(parts, " "+expr.Conn.String()+" ")
}

// nestedAsString wraps interior and/or children in parentheses. Not binds
// tightest and is rendered bare.
func nestedAsString(chk Check) string {
	if e, ok := chk.(*Expression); ok {
		if e.Conn == Not {
			return expressionAsString(e)
		}
		return fmt.Sprintf("(%s)", expressionAsString(e))
	}
	return checkAsString(chk)
}
