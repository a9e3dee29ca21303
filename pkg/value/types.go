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

// Package value implements the type taxonomy of filter values and the codec
// that converts between filter literals and the raw binary representation
// used for comparison and display.
//
// Raw values are little-endian. Integers occupy exactly the width of their
// type, IP addresses are stored in network order, and times are unsigned
// 64-bit nanosecond counts.
package value

// Type identifies the domain of a raw value.
type Type uint8

// Value types understood by the filter engine.
const (
	TypeNone Type = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Bool
	Double
	CharBuf // NUL-terminated string
	ByteBuf // length-tracked byte string
	IPv4
	IPv6
	AbsTime // nanoseconds since the epoch
	RelTime // nanoseconds
	Port
	Errno
	Signal
)

var typeNames = map[Type]string{
	TypeNone: "none",
	Int8:     "int8",
	Int16:    "int16",
	Int32:    "int32",
	Int64:    "int64",
	Uint8:    "uint8",
	Uint16:   "uint16",
	Uint32:   "uint32",
	Uint64:   "uint64",
	Bool:     "bool",
	Double:   "double",
	CharBuf:  "charbuf",
	ByteBuf:  "bytebuf",
	IPv4:     "ipv4addr",
	IPv6:     "ipv6addr",
	AbsTime:  "abstime",
	RelTime:  "reltime",
	Port:     "port",
	Errno:    "errno",
	Signal:   "signal",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "<<invalid>>"
}

// Width returns the fixed encoded size of t, or 0 for variable-length types.
func (t Type) Width() int {
	switch t {
	case Int8, Uint8, Bool, Signal:
		return 1
	case Int16, Uint16, Port:
		return 2
	case Int32, Uint32, IPv4:
		return 4
	case Int64, Uint64, Double, AbsTime, RelTime, Errno:
		return 8
	case IPv6:
		return 16
	}
	return 0
}

// IsSigned reports whether t is reinterpreted as a signed integer.
func (t Type) IsSigned() bool {
	switch t {
	case Int8, Int16, Int32, Int64, Errno:
		return true
	default:
		return false
	}
}

// IsInteger reports whether t is reinterpreted as a fixed-width integer.
func (t Type) IsInteger() bool {
	switch t {
	case Int8, Int16, Int32, Int64,
		Uint8, Uint16, Uint32, Uint64,
		Port, Errno, Signal:

		return true
	default:
		return false
	}
}

// IsTime reports whether t is a nanosecond count.
func (t Type) IsTime() bool {
	return t == AbsTime || t == RelTime
}

// IsNumeric reports whether t has a total numeric order.
func (t Type) IsNumeric() bool {
	return t.IsInteger() || t.IsTime() || t == Double
}

// IsString reports whether t is a byte string.
func (t Type) IsString() bool {
	return t == CharBuf || t == ByteBuf
}

// IsIP reports whether t is an IP address.
func (t Type) IsIP() bool {
	return t == IPv4 || t == IPv6
}

// IsOrdered reports whether ordering comparisons are defined for t.
func (t Type) IsOrdered() bool {
	return t.IsNumeric() || t.IsString()
}

// PrintFormat selects how integers are rendered for display.
type PrintFormat uint8

// Integer print formats.
const (
	PrintDec PrintFormat = iota
	PrintHex
)

// TimeFormat selects how absolute times are rendered for display.
type TimeFormat uint8

// Absolute time print formats.
const (
	TimeRaw TimeFormat = iota
	TimeCalendar
)

// Mode carries the caller-supplied display options for Render and
// RenderJSON. The zero Mode renders decimal integers, raw nanosecond
// timestamps and untruncated strings.
type Mode struct {
	Time  TimeFormat
	Print PrintFormat

	// MaxLen truncates rendered strings for human display when
	// non-zero. It never affects comparison.
	MaxLen int
}
