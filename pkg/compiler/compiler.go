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

package compiler

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/filter"
)

type compiler struct {
	reg   *filter.Registry
	b     *filter.Builder
	lists map[string][]string
}

// Option configures compilation.
type Option func(*compiler)

// WithLists makes the named lists available inside list literals: an
// unquoted item that names a list is replaced by the list's items, so
//
//	proc.name in (shell_binaries, python)
//
// expands shell_binaries.
func WithLists(lists map[string][]string) Option {
	return func(c *compiler) {
		c.lists = lists
	}
}

// Compile parses text and builds a filter tree whose leaves are resolved
// against reg. All errors are *filter.CompileError values wrapping one of
// the filter or value package sentinel errors.
func Compile(text string, reg *filter.Registry, opts ...Option) (*filter.Expression, error) {
	ast, err := Parse(text)
	if err != nil {
		return nil, &filter.CompileError{
			Err:    errors.Wrap(filter.ErrSyntax, err.Error()),
			Offset: -1,
		}
	}

	conn := filter.And
	if len(ast.Or) > 1 {
		conn = filter.Or
	}
	c := &compiler{
		reg: reg,
		b:   filter.NewBuilder(conn),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err = c.or(ast, false); err != nil {
		return nil, err
	}

	expr, err := c.b.Finish()
	if err != nil {
		return nil, &filter.CompileError{Err: err, Offset: -1}
	}
	if children := expr.Children(); len(children) == 1 {
		if sub, ok := children[0].(*filter.Expression); ok {
			expr = sub
		}
	}

	glog.V(1).Infof("Compiled filter %q as %s", text, expr)
	return expr, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string, reg *filter.Registry, opts ...Option) *filter.Expression {
	expr, err := Compile(text, reg, opts...)
	if err != nil {
		panic(err)
	}
	return expr
}

// or adds e to the open node. Single-element groups are flattened into
// their parent; open controls whether a multi-element group gets its own
// node.
func (c *compiler) or(e *Expr, open bool) error {
	if len(e.Or) == 1 {
		return c.and(e.Or[0], open)
	}

	if open {
		if err := c.b.Open(filter.Or); err != nil {
			return c.malformed(err)
		}
	}
	for _, a := range e.Or {
		if err := c.and(a, true); err != nil {
			return err
		}
	}
	if open {
		return c.malformed(c.b.Close())
	}
	return nil
}

func (c *compiler) and(a *AndExpr, open bool) error {
	if len(a.And) == 1 {
		return c.term(a.And[0])
	}

	if open {
		if err := c.b.Open(filter.And); err != nil {
			return c.malformed(err)
		}
	}
	for _, t := range a.And {
		if err := c.term(t); err != nil {
			return err
		}
	}
	if open {
		return c.malformed(c.b.Close())
	}
	return nil
}

func (c *compiler) term(t *Term) error {
	switch {
	case t.Not != nil:
		if err := c.b.Open(filter.Not); err != nil {
			return c.malformed(err)
		}
		if err := c.term(t.Not); err != nil {
			return err
		}
		return c.malformed(c.b.Close())

	case t.Sub != nil:
		return c.or(t.Sub, true)
	}

	chk, err := c.condition(t.Cond)
	if err != nil {
		return err
	}
	return c.malformed(c.b.Add(chk))
}

func (c *compiler) condition(cond *Condition) (filter.Check, error) {
	chk, err := c.reg.ResolveExact(cond.Field)
	if err != nil {
		return nil, at(err, cond)
	}

	op, ok := filter.ParseOp(cond.Op)
	if !ok {
		err = errors.Wrapf(filter.ErrSyntax, "unknown operator %q", cond.Op)
		return nil, at(err, cond)
	}
	if err = chk.SetOperator(op); err != nil {
		return nil, at(err, cond)
	}

	switch {
	case cond.List != nil:
		_, err = chk.ParseFilterList(c.items(cond.List))

	case cond.Value != nil:
		_, err = chk.ParseFilterValue(cond.Value.Text())

	case op.TakesValue():
		err = errors.Wrapf(filter.ErrSyntax, "%s requires a value", op)
	}
	if err != nil {
		return nil, at(err, cond)
	}
	return chk, nil
}

func (c *compiler) items(list []*Literal) []string {
	items := make([]string, 0, len(list))
	for _, l := range list {
		if l.Word != nil {
			if named, ok := c.lists[*l.Word]; ok {
				items = append(items, named...)
				continue
			}
		}
		items = append(items, l.Text())
	}
	return items
}

// at attaches the position and field of cond to err.
func at(err error, cond *Condition) error {
	var ce *filter.CompileError
	if errors.As(err, &ce) {
		ce.Offset = cond.Pos.Offset
		if ce.Field == "" {
			ce.Field = cond.Field
		}
		return ce
	}
	return &filter.CompileError{
		Err:    err,
		Field:  cond.Field,
		Offset: cond.Pos.Offset,
	}
}

func (c *compiler) malformed(err error) error {
	if err == nil {
		return nil
	}
	return &filter.CompileError{Err: err, Offset: -1}
}

// Normalize compiles text and renders it back in canonical form.
func Normalize(text string, reg *filter.Registry, opts ...Option) (string, error) {
	expr, err := Compile(text, reg, opts...)
	if err != nil {
		return "", err
	}
	return expr.String(), nil
}
