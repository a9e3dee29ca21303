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
	"strings"

	"github.com/pkg/errors"
)

func isIdentifierByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// ValidateFieldName checks that name is a dotted identifier such as
// "proc.name".
func ValidateFieldName(name string) error {
	if len(name) == 0 {
		return errors.New("invalid field name: \"\"")
	}
	if !(name[0] == '_' ||
		(name[0] >= 'a' && name[0] <= 'z') ||
		(name[0] >= 'A' && name[0] <= 'Z')) {

		return errors.Errorf("field name %q must begin with a letter or an underscore", name)
	}
	for i := 0; i < len(name); i++ {
		if !isIdentifierByte(name[i]) {
			return errors.Errorf("field name %q must contain only letters, digits, underscores or dots", name)
		}
	}
	if strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return errors.Errorf("field name %q has an empty component", name)
	}
	return nil
}

// fieldMatch is the result of matching input text against a descriptor.
type fieldMatch struct {
	index    int
	consumed int
	arg      string
}

// matchField matches the start of str against f. A name matches only at an
// identifier boundary, so "a.port" does not match "a.portname".
func matchField(f *FieldDescriptor, str string) (int, string, bool) {
	n := len(f.Name)
	if !strings.HasPrefix(str, f.Name) {
		return 0, "", false
	}
	if len(str) > n && isIdentifierByte(str[n]) {
		return 0, "", false
	}

	if len(str) > n && str[n] == '[' &&
		f.Flags&(FieldArgRequired|FieldArgAllowed) != 0 {

		end := strings.IndexByte(str[n:], ']')
		if end < 0 {
			return 0, "", false
		}
		arg := str[n+1 : n+end]
		if arg == "" {
			return 0, "", false
		}
		return n + end + 1, arg, true
	}

	if f.Flags&FieldArgRequired != 0 {
		return 0, "", false
	}
	return n, "", true
}

// longestMatch finds the descriptor in fields that consumes the most of
// str. Earlier descriptors win ties.
func longestMatch(fields []FieldDescriptor, str string) (fieldMatch, bool) {
	best := fieldMatch{index: -1}
	for i := range fields {
		consumed, arg, ok := matchField(&fields[i], str)
		if ok && consumed > best.consumed {
			best = fieldMatch{index: i, consumed: consumed, arg: arg}
		}
	}
	return best, best.index >= 0
}
