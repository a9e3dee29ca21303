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

package value

import (
	"encoding/binary"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// ScratchSize is the capacity of the storage every check instance
	// reserves for a scalar comparand.
	ScratchSize = 256

	// MaxListItems bounds the number of items of a list comparand. Each
	// item is bounded by ScratchSize.
	MaxListItems = 256

	// MaxListSize bounds the encoded size of a whole list comparand.
	MaxListSize = 16 << 10
)

var (
	// ErrValueTooLong is returned when an encoded literal does not fit
	// in ScratchSize bytes, or a list exceeds MaxListItems or
	// MaxListSize.
	ErrValueTooLong = errors.New("value too long")

	// ErrMalformedLiteral is returned when a literal cannot be parsed as
	// the declared type.
	ErrMalformedLiteral = errors.New("malformed literal")
)

// Comparand is a parsed filter constant. Scalars live in fixed storage with
// a tracked length; list encodings are built once at compile time.
// A Comparand must not be modified after it has been parsed.
type Comparand struct {
	Type Type
	List bool

	n     int
	buf   [ScratchSize]byte
	list  []byte
	items int
}

// Parse parses text as a scalar of type t.
func Parse(text string, t Type) (*Comparand, error) {
	c := &Comparand{}
	if err := c.Parse(text, t); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseList parses each item as a value of type t and returns a list
// comparand for use with membership operators.
func ParseList(items []string, t Type) (*Comparand, error) {
	c := &Comparand{}
	if err := c.ParseList(items, t); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse parses text as a scalar of type t into c.
func (c *Comparand) Parse(text string, t Type) error {
	raw, err := encode(c.buf[:0], text, t)
	if err != nil {
		return err
	}
	c.Type = t
	c.List = false
	c.n = len(raw)
	c.list = nil
	c.items = 0
	return nil
}

// ParseList parses items as a list of values of type t into c.
func (c *Comparand) ParseList(items []string, t Type) error {
	if len(items) > MaxListItems {
		return errors.Wrapf(ErrValueTooLong, "list of %d items exceeds %d",
			len(items), MaxListItems)
	}

	var (
		scratch [ScratchSize]byte
		hdr     [binary.MaxVarintLen64]byte
		list    []byte
	)
	for _, item := range items {
		raw, err := encode(scratch[:0], item, t)
		if err != nil {
			return err
		}
		n := binary.PutUvarint(hdr[:], uint64(len(raw)))
		if len(list)+n+len(raw) > MaxListSize {
			return errors.Wrapf(ErrValueTooLong, "list encoding exceeds %d bytes",
				MaxListSize)
		}
		list = append(list, hdr[:n]...)
		list = append(list, raw...)
	}

	c.Type = t
	c.List = true
	c.n = 0
	c.list = list
	c.items = len(items)
	return nil
}

// Bytes returns the raw encoding of c. For lists this is the list encoding
// understood by EachItem.
func (c *Comparand) Bytes() []byte {
	if c.List {
		return c.list
	}
	return c.buf[:c.n]
}

// Len returns the number of items in a list comparand, or 1 for a scalar.
func (c *Comparand) Len() int {
	if c.List {
		return c.items
	}
	return 1
}

// EachItem calls fn for every item of a list encoding until fn returns
// false. A truncated encoding ends the iteration.
func EachItem(list []byte, fn func(item []byte) bool) {
	for len(list) > 0 {
		n, k := binary.Uvarint(list)
		if k <= 0 || uint64(len(list)-k) < n {
			return
		}
		item := list[k : k+int(n)]
		list = list[k+int(n):]
		if !fn(item) {
			return
		}
	}
}

func malformed(text string, t Type) error {
	return errors.Wrapf(ErrMalformedLiteral, "%q is not a valid %s", text, t)
}

// encode appends the raw encoding of text as type t to dst, which must
// have a capacity of at least ScratchSize.
func encode(dst []byte, text string, t Type) ([]byte, error) {
	if t.IsString() {
		if len(text) > ScratchSize {
			return nil, errors.Wrapf(ErrValueTooLong,
				"%d bytes exceeds %d", len(text), ScratchSize)
		}
		if t == CharBuf && strings.IndexByte(text, 0) >= 0 {
			return nil, malformed(text, t)
		}
		return append(dst, text...), nil
	}

	s := strings.TrimSpace(text)
	if len(s) > ScratchSize {
		return nil, errors.Wrapf(ErrValueTooLong,
			"%d bytes exceeds %d", len(s), ScratchSize)
	}
	dst = dst[:t.Width()]

	switch t {
	case Int8, Int16, Int32, Int64:
		v, err := parseSigned(s, t.Width()*8)
		if err != nil {
			return nil, malformed(text, t)
		}
		return PutInt(dst, t, v), nil

	case Uint8, Uint16, Uint32, Uint64, Port:
		v, err := parseUnsigned(s, t.Width()*8)
		if err != nil {
			return nil, malformed(text, t)
		}
		return PutUint(dst, t, v), nil

	case Errno:
		if v, ok := errnoValue(s); ok {
			return PutInt(dst, t, v), nil
		}
		v, err := parseSigned(s, 64)
		if err != nil {
			return nil, malformed(text, t)
		}
		return PutInt(dst, t, v), nil

	case Signal:
		if v, ok := signalValue(s); ok {
			return PutUint(dst, t, v), nil
		}
		v, err := parseUnsigned(s, 8)
		if err != nil {
			return nil, malformed(text, t)
		}
		return PutUint(dst, t, v), nil

	case Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, malformed(text, t)
		}
		return PutBool(dst, v), nil

	case Double:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, malformed(text, t)
		}
		return PutFloat(dst, v), nil

	case IPv4:
		ip := net.ParseIP(s).To4()
		if ip == nil {
			return nil, malformed(text, t)
		}
		return append(dst[:0], ip...), nil

	case IPv6:
		ip := net.ParseIP(s).To16()
		if ip == nil {
			return nil, malformed(text, t)
		}
		return append(dst[:0], ip...), nil

	case RelTime:
		v, err := parseDuration(s)
		if err != nil {
			return nil, malformed(text, t)
		}
		return PutUint(dst, t, v), nil

	case AbsTime:
		v, err := parseTimestamp(s)
		if err != nil {
			return nil, malformed(text, t)
		}
		return PutUint(dst, t, v), nil
	}

	return nil, errors.Errorf("cannot parse literals of type %s", t)
}

// splitNumber separates an optional sign and a 0x prefix from the digits.
func splitNumber(s string) (sign string, digits string, base int) {
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return sign, s[2:], 16
	}
	return sign, s, 10
}

func parseSigned(s string, bits int) (int64, error) {
	sign, digits, base := splitNumber(s)
	if digits == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(sign+digits, base, bits)
}

func parseUnsigned(s string, bits int) (uint64, error) {
	sign, digits, base := splitNumber(s)
	if sign == "-" || digits == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseUint(digits, base, bits)
}

// parseDuration accepts a raw nanosecond count or a number with a unit.
func parseDuration(s string) (uint64, error) {
	if v, err := parseUnsigned(s, 64); err == nil {
		return v, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, strconv.ErrRange
	}
	return uint64(d), nil
}

// parseTimestamp accepts a raw nanosecond count, a number with a unit
// counted from the epoch, or an RFC 3339 time.
func parseTimestamp(s string) (uint64, error) {
	if v, err := parseDuration(s); err == nil {
		return v, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	if ts.Before(time.Unix(0, 0)) || ts.After(time.Unix(0, math.MaxInt64)) {
		return 0, strconv.ErrRange
	}
	return uint64(ts.UnixNano()), nil
}

// SplitList splits a bracketed list literal such as `(a, "b c", 3)` or
// `[a, b]` into its items. Double-quoted items are unquoted with Go
// escaping rules; single-quoted items are taken verbatim.
func SplitList(text string) ([]string, error) {
	s := strings.TrimSpace(text)
	if len(s) < 2 ||
		!((s[0] == '(' && s[len(s)-1] == ')') ||
			(s[0] == '[' && s[len(s)-1] == ']')) {

		return nil, errors.Wrapf(ErrMalformedLiteral, "%q is not a list", text)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		return []string{}, nil
	}

	var items []string
	for {
		s = strings.TrimSpace(s)
		var item string
		switch {
		case strings.HasPrefix(s, `"`):
			quoted, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedLiteral,
					"unterminated string in %q", text)
			}
			item, _ = strconv.Unquote(quoted)
			s = s[len(quoted):]
		case strings.HasPrefix(s, "'"):
			end := strings.IndexByte(s[1:], '\'')
			if end < 0 {
				return nil, errors.Wrapf(ErrMalformedLiteral,
					"unterminated string in %q", text)
			}
			item = s[1 : end+1]
			s = s[end+2:]
		default:
			end := strings.IndexByte(s, ',')
			if end < 0 {
				end = len(s)
			}
			item = strings.TrimSpace(s[:end])
			s = s[end:]
		}
		items = append(items, item)

		s = strings.TrimSpace(s)
		if s == "" {
			return items, nil
		}
		if s[0] != ',' {
			return nil, errors.Wrapf(ErrMalformedLiteral,
				"expected ',' in %q", text)
		}
		s = s[1:]
	}
}
