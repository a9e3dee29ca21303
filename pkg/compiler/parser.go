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

// Package compiler turns filter text such as
//
//	proc.name = nginx and (fd.sport in (80, 443) or not fd.type exists)
//
// into an evaluable filter tree, resolving field names against a
// filter.Registry. Precedence, from tightest: not, and, or.
package compiler

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle"
	"github.com/alecthomas/participle/lexer"
	"github.com/pkg/errors"
)

var (
	// Keywords are lexed as words and retyped by keywordMapper, so that
	// literals such as in.tftpd or not-found stay whole. The Keyword
	// group itself never matches.
	filterLexer = lexer.Must(lexer.Regexp(`(\s+)` +
		`|(?P<String>"(\\.|[^"])*"|'[^']*')` +
		`|(?P<Operator>==|!=|<=|>=|=|<|>)` +
		`|(?P<Punct>[()\[\],])` +
		`|(?P<Word>[^\s()\[\],=<>!"']+(?:\[[^\]\s]*\])?)` +
		`|(?P<Keyword>[^\s\S])`,
	))
	parser = participle.MustBuild(&Expr{},
		participle.Lexer(filterLexer),
		participle.Map(keywordMapper, "Word"),
	)

	keywordType = filterLexer.Symbols()["Keyword"]
	keywords    = map[string]bool{
		"and": true, "or": true, "not": true,
		"in": true, "notin": true, "exists": true, "glob": true,
		"contains": true, "icontains": true, "containsany": true,
		"startswith": true, "endswith": true,
	}
)

func keywordMapper(t lexer.Token) (lexer.Token, error) {
	if keywords[t.Value] {
		t.Type = keywordType
	}
	return t, nil
}

type (
	// Expr is a disjunction of conjunctions.
	Expr struct {
		Or []*AndExpr `@@ { "or" @@ }`
	}

	AndExpr struct {
		And []*Term `@@ { "and" @@ }`
	}

	Term struct {
		Not  *Term      `  "not" @@`
		Sub  *Expr      `| "(" @@ ")"`
		Cond *Condition `| @@`
	}

	Condition struct {
		Pos lexer.Position

		Field string     `@Word`
		Op    string     `@(Operator|"exists"|"in"|"notin"|"containsany"|"contains"|"icontains"|"startswith"|"endswith"|"glob")`
		List  []*Literal `[ ( "(" | "[" ) @@ { "," @@ } ( ")" | "]" )`
		Value *Literal   `| @@ ]`
	}

	Literal struct {
		Word *string `  @Word`
		Str  *string `| @String`
	}
)

// Parse parses filter text into its syntax tree without resolving fields.
func Parse(text string) (*Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty filter")
	}
	expr := &Expr{}
	err := parser.ParseString(text, expr)
	if err != nil {
		return nil, err
	}
	return expr, nil
}

// Text returns the literal's value with any quoting removed.
func (l *Literal) Text() string {
	if l.Word != nil {
		return *l.Word
	}
	return unquote(*l.Str)
}

// unquote strips the quotes from a string token. Double-quoted strings use
// Go escapes; single-quoted strings are taken verbatim.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	if s[0] == '\'' {
		return s[1 : len(s)-1]
	}
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s[1 : len(s)-1]
}
