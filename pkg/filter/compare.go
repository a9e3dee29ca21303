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

	"github.com/gobwas/glob"

	"github.com/capsule8/evfilter/pkg/value"
)

// CompareTyped is Compare for operands that carry their own types. Mixing
// types is a programming error and panics.
func CompareTyped(op CompareOp, lt value.Type, lhs []byte, rt value.Type, rhs []byte) bool {
	if lt != rt {
		panic(fmt.Sprintf("filter: type mismatch in comparison: %s vs. %s", lt, rt))
	}
	return Compare(op, lt, lhs, rhs)
}

// Compare applies op to the raw values lhs and rhs, both of type t. For
// membership operators rhs is a list encoding (see value.EachItem). An
// operator that does not apply to t is a programming error and panics; it
// is rejected by Check.SetOperator long before evaluation.
func Compare(op CompareOp, t value.Type, lhs, rhs []byte) bool {
	if !IsApplicable(op, t) {
		panic(fmt.Sprintf("filter: operator %s not applicable to %s", op, t))
	}

	switch op {
	case OpExists:
		return true
	case OpIn:
		return compareIn(t, lhs, rhs)
	case OpNotIn:
		if w := t.Width(); w > 0 && len(lhs) < w {
			return false
		}
		return !compareIn(t, lhs, rhs)
	case OpContainsAny:
		return compareContainsAny(t, lhs, rhs)
	}

	switch {
	case t.IsInteger() && t.IsSigned():
		l, lok := value.Int(lhs, t)
		r, rok := value.Int(rhs, t)
		if !lok || !rok {
			return false
		}
		return compareSigned(op, l, r)

	case t.IsInteger() || t.IsTime():
		l, lok := value.Uint(lhs, t)
		r, rok := value.Uint(rhs, t)
		if !lok || !rok {
			return false
		}
		return compareUnsigned(op, l, r)

	case t == value.Double:
		l, lok := value.Float(lhs)
		r, rok := value.Float(rhs)
		if !lok || !rok {
			return false
		}
		return compareDouble(op, l, r)

	case t == value.Bool:
		if len(lhs) < 1 || len(rhs) < 1 {
			return false
		}
		eq := (lhs[0] != 0) == (rhs[0] != 0)
		return eq == (op == OpEQ)

	case t.IsIP():
		w := t.Width()
		if len(lhs) < w || len(rhs) < w {
			return false
		}
		eq := bytes.Equal(lhs[:w], rhs[:w])
		return eq == (op == OpEQ)

	case t.IsString():
		return compareString(op, value.Bytes(lhs, t), value.Bytes(rhs, t))
	}

	panic(fmt.Sprintf("filter: unknown value type %d", t))
}

func compareSigned(op CompareOp, l, r int64) bool {
	switch op {
	case OpEQ:
		return l == r
	case OpNE:
		return l != r
	case OpLT:
		return l < r
	case OpLE:
		return l <= r
	case OpGT:
		return l > r
	case OpGE:
		return l >= r
	}
	return false
}

func compareUnsigned(op CompareOp, l, r uint64) bool {
	switch op {
	case OpEQ:
		return l == r
	case OpNE:
		return l != r
	case OpLT:
		return l < r
	case OpLE:
		return l <= r
	case OpGT:
		return l > r
	case OpGE:
		return l >= r
	}
	return false
}

func compareDouble(op CompareOp, l, r float64) bool {
	switch op {
	case OpEQ:
		return l == r
	case OpNE:
		return l != r
	case OpLT:
		return l < r
	case OpLE:
		return l <= r
	case OpGT:
		return l > r
	case OpGE:
		return l >= r
	}
	return false
}

func compareString(op CompareOp, l, r []byte) bool {
	switch op {
	case OpEQ:
		return bytes.Equal(l, r)
	case OpNE:
		return !bytes.Equal(l, r)
	case OpLT:
		return bytes.Compare(l, r) < 0
	case OpLE:
		return bytes.Compare(l, r) <= 0
	case OpGT:
		return bytes.Compare(l, r) > 0
	case OpGE:
		return bytes.Compare(l, r) >= 0
	case OpContains:
		return bytes.Contains(l, r)
	case OpIContains:
		return containsFold(l, r)
	case OpStartsWith:
		return bytes.HasPrefix(l, r)
	case OpEndsWith:
		return bytes.HasSuffix(l, r)
	case OpGlob:
		// Leaf checks compile their pattern once; this path compiles
		// on every call.
		g, err := glob.Compile(string(r))
		if err != nil {
			return false
		}
		return g.Match(string(l))
	}
	return false
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// containsFold reports whether sub is within s, folding ASCII case only.
func containsFold(s, sub []byte) bool {
	n := len(sub)
	if n == 0 {
		return true
	}
outer:
	for i := 0; i+n <= len(s); i++ {
		for j := 0; j < n; j++ {
			if lowerASCII(s[i+j]) != lowerASCII(sub[j]) {
				continue outer
			}
		}
		return true
	}
	return false
}

// compareIn stops decoding the list at the first equal item.
func compareIn(t value.Type, lhs, list []byte) bool {
	found := false
	value.EachItem(list, func(item []byte) bool {
		found = Compare(OpEQ, t, lhs, item)
		return !found
	})
	return found
}

func compareContainsAny(t value.Type, lhs, list []byte) bool {
	s := value.Bytes(lhs, t)
	found := false
	value.EachItem(list, func(item []byte) bool {
		found = bytes.Contains(s, value.Bytes(item, t))
		return !found
	})
	return found
}
