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
	"encoding/base64"
	"math"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/ptypes"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// Integers beyond this magnitude are not exactly representable as JSON
// numbers and are rendered as decimal strings instead.
const maxJSONInteger = 1 << 53

// Render converts a raw value of type t to text. An empty or truncated
// fixed-width value renders as the empty string.
func Render(raw []byte, t Type, mode Mode) string {
	if w := t.Width(); w > 0 && len(raw) < w {
		return ""
	}

	switch t {
	case Int8, Int16, Int32, Int64:
		v, _ := Int(raw, t)
		return formatSigned(v, mode.Print)

	case Uint8, Uint16, Uint32, Uint64, Port:
		v, _ := Uint(raw, t)
		return formatUnsigned(v, mode.Print)

	case Errno:
		v, _ := Int(raw, t)
		if name := errnoName(v); name != "" {
			return name
		}
		return strconv.FormatInt(v, 10)

	case Signal:
		v, _ := Uint(raw, t)
		if name := signalName(v); name != "" {
			return name
		}
		return strconv.FormatUint(v, 10)

	case Bool:
		return strconv.FormatBool(raw[0] != 0)

	case Double:
		v, _ := Float(raw)
		return strconv.FormatFloat(v, 'g', -1, 64)

	case CharBuf, ByteBuf:
		s := string(Bytes(raw, t))
		if mode.MaxLen > 0 && len(s) > mode.MaxLen {
			s = s[:mode.MaxLen] + "..."
		}
		return s

	case IPv4:
		return net.IP(raw[:4]).String()

	case IPv6:
		return net.IP(raw[:16]).String()

	case RelTime:
		v, _ := Uint(raw, t)
		if mode.Time == TimeCalendar && v <= math.MaxInt64 {
			return time.Duration(v).String()
		}
		return strconv.FormatUint(v, 10)

	case AbsTime:
		v, _ := Uint(raw, t)
		if mode.Time == TimeCalendar {
			if s, ok := calendarTime(v); ok {
				return s
			}
		}
		return strconv.FormatUint(v, 10)
	}

	return "<<invalid>>"
}

func formatSigned(v int64, p PrintFormat) string {
	if p == PrintHex {
		if v < 0 {
			return "-0x" + strconv.FormatUint(uint64(-v), 16)
		}
		return "0x" + strconv.FormatInt(v, 16)
	}
	return strconv.FormatInt(v, 10)
}

func formatUnsigned(v uint64, p PrintFormat) string {
	if p == PrintHex {
		return "0x" + strconv.FormatUint(v, 16)
	}
	return strconv.FormatUint(v, 10)
}

func calendarTime(ns uint64) (string, bool) {
	if ns > math.MaxInt64 {
		return "", false
	}
	ts, err := ptypes.TimestampProto(time.Unix(0, int64(ns)))
	if err != nil {
		return "", false
	}
	return ptypes.TimestampString(ts), true
}

// RenderJSON converts a raw value of type t to a JSON value. An empty or
// truncated fixed-width value renders as null.
func RenderJSON(raw []byte, t Type, mode Mode) *structpb.Value {
	if w := t.Width(); (w > 0 && len(raw) < w) || t == TypeNone {
		return nullValue()
	}

	switch t {
	case Int8, Int16, Int32, Int64, Errno:
		v, _ := Int(raw, t)
		if v > -maxJSONInteger && v < maxJSONInteger {
			return numberValue(float64(v))
		}
		return stringValue(strconv.FormatInt(v, 10))

	case Uint8, Uint16, Uint32, Uint64, Port, Signal, RelTime:
		v, _ := Uint(raw, t)
		if v < maxJSONInteger {
			return numberValue(float64(v))
		}
		return stringValue(strconv.FormatUint(v, 10))

	case AbsTime:
		v, _ := Uint(raw, t)
		if mode.Time == TimeCalendar {
			if s, ok := calendarTime(v); ok {
				return stringValue(s)
			}
		}
		if v < maxJSONInteger {
			return numberValue(float64(v))
		}
		return stringValue(strconv.FormatUint(v, 10))

	case Bool:
		return &structpb.Value{
			Kind: &structpb.Value_BoolValue{BoolValue: raw[0] != 0},
		}

	case Double:
		v, _ := Float(raw)
		return numberValue(v)

	case CharBuf:
		s := string(Bytes(raw, t))
		if !utf8.ValidString(s) {
			s = strings.ToValidUTF8(s, "�")
		}
		return stringValue(s)

	case ByteBuf:
		if !utf8.Valid(raw) {
			return stringValue(base64.StdEncoding.EncodeToString(raw))
		}
		return stringValue(string(raw))

	case IPv4, IPv6:
		return stringValue(Render(raw, t, mode))
	}

	return nullValue()
}

// MarshalJSON renders a JSON value as text. The output is stable for equal
// values.
func MarshalJSON(v *structpb.Value) (string, error) {
	m := jsonpb.Marshaler{}
	return m.MarshalToString(v)
}

// String renders c in literal form. Lists render as `(a, b)` with string
// items quoted so that SplitList recovers them unchanged.
func (c *Comparand) String() string {
	if !c.List {
		return Render(c.Bytes(), c.Type, Mode{})
	}

	var b strings.Builder
	b.WriteByte('(')
	first := true
	EachItem(c.list, func(item []byte) bool {
		if !first {
			b.WriteString(", ")
		}
		first = false
		s := Render(item, c.Type, Mode{})
		if c.Type.IsString() {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
		return true
	})
	b.WriteByte(')')
	return b.String()
}

// JSON renders c as a JSON value; lists render as arrays.
func (c *Comparand) JSON(mode Mode) *structpb.Value {
	if !c.List {
		return RenderJSON(c.Bytes(), c.Type, mode)
	}

	values := make([]*structpb.Value, 0, c.items)
	EachItem(c.list, func(item []byte) bool {
		values = append(values, RenderJSON(item, c.Type, mode))
		return true
	})
	return &structpb.Value{
		Kind: &structpb.Value_ListValue{
			ListValue: &structpb.ListValue{Values: values},
		},
	}
}

func nullValue() *structpb.Value {
	return &structpb.Value{
		Kind: &structpb.Value_NullValue{NullValue: structpb.NullValue_NULL_VALUE},
	}
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}
