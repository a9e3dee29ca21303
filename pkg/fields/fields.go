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

// Package fields provides the field families that expose decoded events
// (package event) to filters: evt, proc, user, fd and container.
package fields

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/event"
	"github.com/capsule8/evfilter/pkg/filter"
	"github.com/capsule8/evfilter/pkg/value"
)

// family is a field family whose checks are filter.Leaf values over a
// per-check extractor.
type family struct {
	info filter.FamilyInfo

	newExtractor func() filter.Extractor
}

func (f *family) Info() *filter.FamilyInfo {
	return &f.info
}

func (f *family) New() filter.Check {
	return filter.NewLeaf(&f.info, f.newExtractor())
}

// Families returns new instances of every event field family in
// registration order.
func Families() []filter.Family {
	return []filter.Family{
		newEvtFamily(),
		newProcFamily(),
		newUserFamily(),
		newFDFamily(),
		newContainerFamily(),
	}
}

// Register adds every event field family to reg.
func Register(reg *filter.Registry) error {
	for _, f := range Families() {
		if err := reg.Add(f); err != nil {
			return errors.Wrap(err, "registering event fields")
		}
	}
	return nil
}

// NewRegistry returns a registry holding every event field family.
func NewRegistry() (*filter.Registry, error) {
	reg := filter.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// asEvent returns ev as a decoded event, or nil.
func asEvent(ev filter.Event) *event.Event {
	e, _ := ev.(*event.Event)
	return e
}

// scratch is per-check storage for values that have to be encoded before
// they can be compared. Views returned from it are valid until the next
// extraction by the same check.
type scratch struct {
	num  [16]byte
	buf  []byte
	keys []string
}

func (s *scratch) uint(t value.Type, v uint64) []byte {
	return value.PutUint(s.num[:], t, v)
}

func (s *scratch) int(t value.Type, v int64) []byte {
	return value.PutInt(s.num[:], t, v)
}

func (s *scratch) bool(v bool) []byte {
	return value.PutBool(s.num[:], v)
}

func (s *scratch) join(items []string, sep string) []byte {
	s.buf = s.buf[:0]
	for i, item := range items {
		if i > 0 {
			s.buf = append(s.buf, sep...)
		}
		s.buf = append(s.buf, item...)
	}
	return s.buf
}

// joinMap renders m as space separated key=value pairs ordered by key.
func (s *scratch) joinMap(m map[string]string) []byte {
	s.keys = s.keys[:0]
	for k := range m {
		s.keys = append(s.keys, k)
	}
	sort.Strings(s.keys)

	s.buf = s.buf[:0]
	for i, k := range s.keys {
		if i > 0 {
			s.buf = append(s.buf, ' ')
		}
		s.buf = append(s.buf, k...)
		s.buf = append(s.buf, '=')
		s.buf = append(s.buf, m[k]...)
	}
	return s.buf
}

// str returns a view of a non-empty string. Empty strings are absent.
func str(s string) ([]byte, bool) {
	if s == "" {
		return nil, false
	}
	return value.StringView(s), true
}
