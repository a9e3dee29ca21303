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
	"strings"

	"github.com/gobwas/glob"
	structpb "github.com/golang/protobuf/ptypes/struct"
	ac "github.com/petar-dambovaliev/aho-corasick"
	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/value"
)

// Leaf is the standard Check implementation. It resolves field names
// against a FamilyInfo, stores its comparand in fixed per-instance storage
// and delegates value extraction to the family's Extractor.
type Leaf struct {
	info *FamilyInfo
	x    Extractor

	field *FieldDescriptor
	name  string
	arg   string
	op    CompareOp
	cmp   value.Comparand
	mode  value.Mode

	// Compiled forms of the comparand for glob and containsany
	pattern  glob.Glob
	matcher  *ac.AhoCorasick
	matchAll bool
}

// NewLeaf returns an unconfigured leaf for the fields described by info.
// The operator defaults to OpEQ.
func NewLeaf(info *FamilyInfo, x Extractor) *Leaf {
	return &Leaf{
		info: info,
		x:    x,
		op:   OpEQ,
	}
}

// SetMode sets the display options used by Render and RenderJSON. The
// field's own print format takes precedence.
func (l *Leaf) SetMode(mode value.Mode) {
	l.mode = mode
}

// Name returns the field name as written in the filter, including any
// argument.
func (l *Leaf) Name() string {
	return l.name
}

// Arg returns the bracketed argument of the field, if any.
func (l *Leaf) Arg() string {
	return l.arg
}

// Operator returns the comparison operator.
func (l *Leaf) Operator() CompareOp {
	return l.op
}

// ParseFieldName implements Check.
func (l *Leaf) ParseFieldName(str string) (int, error) {
	m, ok := longestMatch(l.info.Fields, str)
	if !ok {
		return 0, compileError(ErrUnknownField, str, "")
	}
	l.field = &l.info.Fields[m.index]
	l.arg = m.arg
	l.name = str[:m.consumed]
	return m.consumed, nil
}

func (l *Leaf) requireField() {
	if l.field == nil {
		panic("filter: leaf used before ParseFieldName")
	}
}

// SetOperator implements Check.
func (l *Leaf) SetOperator(op CompareOp) error {
	l.requireField()
	if !IsApplicable(op, l.field.Type) {
		err := errors.Wrapf(ErrUnsupportedOperator, "%s on %s",
			op, l.field.Type)
		return compileError(err, l.name, "")
	}
	l.op = op
	return nil
}

// ParseFilterValue implements Check. Membership operators accept a
// bracketed list literal such as "(80, 443)".
func (l *Leaf) ParseFilterValue(str string) (*value.Comparand, error) {
	l.requireField()
	if !l.op.TakesValue() {
		err := errors.Wrapf(ErrTypeMismatch, "%s takes no value", l.op)
		return nil, compileError(err, l.name, str)
	}
	if l.op.TakesList() {
		list := strings.TrimSpace(str)
		if list == "" || (list[0] != '(' && list[0] != '[') {
			err := errors.Wrapf(ErrTypeMismatch, "%s requires a list", l.op)
			return nil, compileError(err, l.name, str)
		}
		items, err := value.SplitList(list)
		if err != nil {
			return nil, compileError(err, l.name, str)
		}
		return l.ParseFilterList(items)
	}
	if err := l.cmp.Parse(str, l.field.Type); err != nil {
		return nil, compileError(err, l.name, str)
	}

	if l.op == OpGlob {
		g, err := glob.Compile(str)
		if err != nil {
			err = errors.Wrapf(value.ErrMalformedLiteral,
				"bad glob pattern: %s", err)
			return nil, compileError(err, l.name, str)
		}
		l.pattern = g
	}
	return &l.cmp, nil
}

// ParseFilterList implements Check.
func (l *Leaf) ParseFilterList(items []string) (*value.Comparand, error) {
	l.requireField()
	if !l.op.TakesList() {
		err := errors.Wrapf(ErrTypeMismatch, "%s does not take a list", l.op)
		return nil, compileError(err, l.name, fmt.Sprint(items))
	}
	if err := l.cmp.ParseList(items, l.field.Type); err != nil {
		return nil, compileError(err, l.name, fmt.Sprint(items))
	}

	if l.op == OpContainsAny {
		patterns := make([]string, 0, len(items))
		for _, item := range items {
			if item == "" {
				l.matchAll = true
				continue
			}
			patterns = append(patterns, item)
		}
		builder := ac.NewAhoCorasickBuilder(ac.Opts{
			MatchKind: ac.LeftMostLongestMatch,
		})
		automaton := builder.Build(patterns)
		l.matcher = &automaton
	}
	return &l.cmp, nil
}

// FieldInfo implements Check.
func (l *Leaf) FieldInfo() *FieldDescriptor {
	return l.field
}

// Extract implements Check.
func (l *Leaf) Extract(ev Event) ([]byte, bool) {
	return l.x.Extract(ev, l.field, l.arg)
}

// Compare implements Check. A field that is absent from ev compares false
// under every operator but exists.
func (l *Leaf) Compare(ev Event) bool {
	raw, ok := l.x.Extract(ev, l.field, l.arg)
	if l.op == OpExists {
		return ok
	}
	if !ok {
		return false
	}

	switch {
	case l.op == OpGlob && l.pattern != nil:
		return l.pattern.Match(value.BytesView(value.Bytes(raw, l.field.Type)))
	case l.op == OpContainsAny && l.matcher != nil:
		if l.matchAll {
			return true
		}
		s := value.BytesView(value.Bytes(raw, l.field.Type))
		return len(l.matcher.FindAll(s)) > 0
	}

	return CompareTyped(l.op, l.field.Type, raw, l.cmp.Type, l.cmp.Bytes())
}

func (l *Leaf) displayMode() value.Mode {
	mode := l.mode
	if l.field.Print != value.PrintDec {
		mode.Print = l.field.Print
	}
	return mode
}

// Render implements Check.
func (l *Leaf) Render(ev Event) string {
	if l.field.Flags&FieldFilterOnly != 0 {
		return ""
	}
	raw, ok := l.x.Extract(ev, l.field, l.arg)
	if !ok {
		return ""
	}
	return value.Render(raw, l.field.Type, l.displayMode())
}

// RenderJSON implements Check.
func (l *Leaf) RenderJSON(ev Event) *structpb.Value {
	if l.field.Flags&FieldFilterOnly != 0 {
		return value.RenderJSON(nil, value.TypeNone, l.mode)
	}
	raw, ok := l.x.Extract(ev, l.field, l.arg)
	if !ok {
		return value.RenderJSON(nil, value.TypeNone, l.mode)
	}
	return value.RenderJSON(raw, l.field.Type, l.displayMode())
}

// String renders the configured check as filter text.
func (l *Leaf) String() string {
	if !l.op.TakesValue() {
		return fmt.Sprintf("%s %s", l.name, l.op)
	}
	return fmt.Sprintf("%s %s %s", l.name, l.op, literalAsString(&l.cmp))
}
