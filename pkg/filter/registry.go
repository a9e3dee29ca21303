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
	"sort"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/value"
)

// Registry holds the prototype of every known field family. Resolving a
// field name instantiates a fresh check from the best matching family; the
// registry itself is never modified by resolution.
type Registry struct {
	families []Family
	byName   map[string]int
	mode     value.Mode
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]int),
	}
}

// Add registers a family. Families are consulted in registration order,
// which decides ties between equally long matches.
func (r *Registry) Add(f Family) error {
	info := f.Info()
	if _, ok := r.byName[info.Name]; ok {
		return errors.Errorf("field family %q already registered", info.Name)
	}
	for i := range info.Fields {
		if err := ValidateFieldName(info.Fields[i].Name); err != nil {
			return errors.Wrapf(err, "family %s", info.Name)
		}
	}

	r.byName[info.Name] = len(r.families)
	r.families = append(r.families, f)
	glog.V(1).Infof("Registered field family %s (%d fields)",
		info.Name, len(info.Fields))
	return nil
}

// SetMode sets the display mode handed to checks created by Resolve.
func (r *Registry) SetMode(mode value.Mode) {
	r.mode = mode
}

// Resolve finds the field whose name is the longest prefix of name across
// all registered families and returns a new check configured for it, along
// with the number of bytes of name that the field consumed.
func (r *Registry) Resolve(name string) (Check, int, error) {
	best, consumed := -1, 0
	for i, f := range r.families {
		m, ok := longestMatch(f.Info().Fields, name)
		if ok && m.consumed > consumed {
			best, consumed = i, m.consumed
		}
	}
	if best < 0 {
		return nil, 0, compileError(ErrUnknownField, name, "")
	}

	chk := r.families[best].New()
	if _, err := chk.ParseFieldName(name); err != nil {
		return nil, 0, err
	}
	if m, ok := chk.(interface{ SetMode(value.Mode) }); ok {
		m.SetMode(r.mode)
	}

	glog.V(2).Infof("Resolved %q to family %s (consumed %d)",
		name, r.families[best].Info().Name, consumed)
	return chk, consumed, nil
}

// ResolveExact is like Resolve but fails unless the whole of name is a
// field reference.
func (r *Registry) ResolveExact(name string) (Check, error) {
	chk, consumed, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	if consumed != len(name) {
		return nil, compileError(ErrUnknownField, name, "")
	}
	return chk, nil
}

// Family returns the registered family with the given name.
func (r *Registry) Family(name string) (Family, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.families[i], true
}

// Families returns the descriptions of all registered families in
// registration order.
func (r *Registry) Families() []*FamilyInfo {
	infos := make([]*FamilyInfo, len(r.families))
	for i, f := range r.families {
		infos[i] = f.Info()
	}
	return infos
}

// Fields lists every field descriptor in the registry, ordered by family
// registration order and then by field name.
func (r *Registry) Fields() []FieldDescriptor {
	var fields []FieldDescriptor
	for _, f := range r.families {
		start := len(fields)
		fields = append(fields, f.Info().Fields...)
		fs := fields[start:]
		sort.SliceStable(fs, func(i, j int) bool {
			return fs[i].Name < fs[j].Name
		})
	}
	return fields
}
