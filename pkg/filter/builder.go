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
	"github.com/pkg/errors"
)

// Builder constructs an expression tree incrementally for parsers of
// nested, parenthesized grammars. The currently open nodes are tracked on
// a stack that is dropped when the tree is finished, so the finished tree
// holds no references back to its parents.
type Builder struct {
	root  *Expression
	stack []*Expression
}

// NewBuilder returns a builder whose root node uses conn.
func NewBuilder(conn Connector) *Builder {
	root := &Expression{Conn: conn}
	return &Builder{
		root:  root,
		stack: []*Expression{root},
	}
}

func (b *Builder) top() *Expression {
	if len(b.stack) == 0 {
		panic("filter: builder used after Finish")
	}
	return b.stack[len(b.stack)-1]
}

func (b *Builder) appendChild(chk Check) error {
	top := b.top()
	if top.Conn == Not && len(top.children) > 0 {
		return errors.Wrap(ErrMalformedExpression,
			"not takes exactly one operand")
	}
	top.children = append(top.children, chk)
	return nil
}

// Open starts a new sub-expression joined by conn as the next child of
// the currently open node. Subsequent Adds go to the new node until Close.
func (b *Builder) Open(conn Connector) error {
	e := &Expression{Conn: conn}
	if err := b.appendChild(e); err != nil {
		return err
	}
	b.stack = append(b.stack, e)
	return nil
}

// Add appends chk as the next child of the currently open node.
func (b *Builder) Add(chk Check) error {
	return b.appendChild(chk)
}

// Close finishes the currently open sub-expression and returns to its
// enclosing node.
func (b *Builder) Close() error {
	if len(b.stack) < 2 {
		return errors.Wrap(ErrMalformedExpression, "unbalanced close")
	}
	if err := validateNode(b.top()); err != nil {
		return err
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

// Depth returns the number of open sub-expressions below the root.
func (b *Builder) Depth() int {
	return len(b.stack) - 1
}

// Finish validates and returns the tree. The builder may not be used
// afterwards.
func (b *Builder) Finish() (*Expression, error) {
	if len(b.stack) != 1 {
		return nil, errors.Wrapf(ErrMalformedExpression,
			"%d unclosed sub-expressions", len(b.stack)-1)
	}
	if err := validateNode(b.root); err != nil {
		return nil, err
	}
	root := b.root
	b.root, b.stack = nil, nil
	return root, nil
}

func validateNode(e *Expression) error {
	switch {
	case len(e.children) == 0:
		return errors.Wrapf(ErrMalformedExpression, "empty %s group", e.Conn)
	case e.Conn == Not && len(e.children) != 1:
		return errors.Wrap(ErrMalformedExpression,
			"not takes exactly one operand")
	}
	return nil
}
