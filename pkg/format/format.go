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

// Package format renders events through output templates such as
//
//	"%proc.name opened %fd.name (%evt.res)"
//
// Each %field reference is resolved against a filter.Registry; the field
// name ends where the longest matching field ends. "%%" is a literal
// percent sign.
package format

import (
	"bytes"
	"strings"

	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/filter"
	"github.com/capsule8/evfilter/pkg/value"
)

// Missing is rendered in place of fields that are absent from an event.
const Missing = "<NA>"

type part struct {
	text string
	name string
	chk  filter.Check
}

// Formatter renders events. It keeps per-field checks, so it must not be
// used by more than one goroutine at a time.
type Formatter struct {
	parts []part
}

// New compiles an output template.
func New(text string, reg *filter.Registry) (*Formatter, error) {
	f := &Formatter{}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			f.parts = append(f.parts, part{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); {
		j := strings.IndexByte(text[i:], '%')
		if j < 0 {
			lit.WriteString(text[i:])
			break
		}
		lit.WriteString(text[i : i+j])
		i += j + 1

		if i == len(text) {
			lit.WriteByte('%')
			break
		}
		if text[i] == '%' {
			lit.WriteByte('%')
			i++
			continue
		}

		chk, n, err := reg.Resolve(text[i:])
		if err != nil {
			// A reference may end a sentence, as in "opened %fd.name."
			ref := text[i : i+identLen(text[i:])]
			if trimmed := strings.TrimRight(ref, "."); trimmed != ref && trimmed != "" {
				chk, n, err = reg.Resolve(trimmed)
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "output format at offset %d", i-1)
		}
		flush()
		f.parts = append(f.parts, part{name: text[i : i+n], chk: chk})
		i += n
	}
	flush()

	return f, nil
}

func identLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || c == '.' ||
			(c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9')) {
			return i
		}
	}
	return len(s)
}

// Fields creates a formatter that renders the named fields separated by
// spaces.
func Fields(names []string, reg *filter.Registry) (*Formatter, error) {
	refs := make([]string, len(names))
	for i, name := range names {
		refs[i] = "%" + name
	}
	return New(strings.Join(refs, " "), reg)
}

// Names returns the field references of the template in order.
func (f *Formatter) Names() []string {
	var names []string
	for _, p := range f.parts {
		if p.chk != nil {
			names = append(names, p.name)
		}
	}
	return names
}

// Format renders ev as text. Absent fields render as Missing.
func (f *Formatter) Format(ev filter.Event) string {
	var b bytes.Buffer
	for _, p := range f.parts {
		if p.chk == nil {
			b.WriteString(p.text)
			continue
		}
		s := p.chk.Render(ev)
		if s == "" {
			if _, ok := p.chk.Extract(ev); !ok {
				s = Missing
			}
		}
		b.WriteString(s)
	}
	return b.String()
}

// Struct renders the referenced fields of ev as a JSON object keyed by
// field name. Absent fields are null.
func (f *Formatter) Struct(ev filter.Event) *structpb.Struct {
	s := &structpb.Struct{
		Fields: make(map[string]*structpb.Value),
	}
	for _, p := range f.parts {
		if p.chk != nil {
			s.Fields[p.name] = p.chk.RenderJSON(ev)
		}
	}
	return s
}

// JSON renders the referenced fields of ev as a JSON object.
func (f *Formatter) JSON(ev filter.Event) (string, error) {
	return value.MarshalJSON(&structpb.Value{
		Kind: &structpb.Value_StructValue{StructValue: f.Struct(ev)},
	})
}
