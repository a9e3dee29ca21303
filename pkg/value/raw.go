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
	"bytes"
	"encoding/binary"
	"math"
	"unsafe"
)

// Uint reinterprets raw as an unsigned integer of type t. The second result
// is false when raw is too short to hold a value of that width.
func Uint(raw []byte, t Type) (uint64, bool) {
	switch t.Width() {
	case 1:
		if len(raw) < 1 {
			return 0, false
		}
		return uint64(raw[0]), true
	case 2:
		if len(raw) < 2 {
			return 0, false
		}
		return uint64(binary.LittleEndian.Uint16(raw)), true
	case 4:
		if len(raw) < 4 {
			return 0, false
		}
		return uint64(binary.LittleEndian.Uint32(raw)), true
	case 8:
		if len(raw) < 8 {
			return 0, false
		}
		return binary.LittleEndian.Uint64(raw), true
	}
	return 0, false
}

// Int reinterprets raw as a signed integer of type t, sign-extending it to
// 64 bits.
func Int(raw []byte, t Type) (int64, bool) {
	u, ok := Uint(raw, t)
	if !ok {
		return 0, false
	}
	switch t.Width() {
	case 1:
		return int64(int8(u)), true
	case 2:
		return int64(int16(u)), true
	case 4:
		return int64(int32(u)), true
	}
	return int64(u), true
}

// Float reinterprets raw as a float64.
func Float(raw []byte) (float64, bool) {
	if len(raw) < 8 {
		return 0, false
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(raw)), true
}

// Bytes returns the significant bytes of a string value. CharBuf values end
// at their first NUL.
func Bytes(raw []byte, t Type) []byte {
	if t == CharBuf {
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			return raw[:i]
		}
	}
	return raw
}

// PutUint encodes v as type t into dst, which must be at least t.Width()
// bytes long, and returns the encoded slice.
func PutUint(dst []byte, t Type, v uint64) []byte {
	switch w := t.Width(); w {
	case 1:
		dst[0] = uint8(v)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(dst, v)
	default:
		panic("value: PutUint on variable-width type " + t.String())
	}
	return dst[:t.Width()]
}

// PutInt encodes v as type t into dst.
func PutInt(dst []byte, t Type, v int64) []byte {
	return PutUint(dst, t, uint64(v))
}

// PutFloat encodes v as a Double into dst.
func PutFloat(dst []byte, v float64) []byte {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	return dst[:8]
}

// PutBool encodes v as a Bool into dst.
func PutBool(dst []byte, v bool) []byte {
	if v {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	return dst[:1]
}

// StringView returns a read-only byte view of s without copying. The view
// must not be modified and must not be retained past the lifetime of s.
func StringView(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// BytesView returns a string sharing b's memory. b must not be modified
// while the string is in use.
func BytesView(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
