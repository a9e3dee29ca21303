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
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Largest errno the kernel hands back from a syscall.
const maxErrno = 4095

var errnoNumbers map[string]int64

func init() {
	errnoNumbers = make(map[string]int64)
	for i := 1; i <= maxErrno; i++ {
		if name := unix.ErrnoName(syscall.Errno(i)); name != "" {
			errnoNumbers[name] = int64(i)
		}
	}
}

// errnoName returns the symbolic name of a syscall result, e.g. "ENOENT"
// for -2. Non-negative results have no name.
func errnoName(v int64) string {
	if v >= 0 || v < -maxErrno {
		return ""
	}
	return unix.ErrnoName(syscall.Errno(-v))
}

// errnoValue maps "ENOENT" to the syscall result -2.
func errnoValue(name string) (int64, bool) {
	n, ok := errnoNumbers[strings.ToUpper(name)]
	return -n, ok
}

func signalName(v uint64) string {
	if v == 0 || v > 255 {
		return ""
	}
	return unix.SignalName(syscall.Signal(v))
}

// signalValue accepts both "SIGKILL" and "KILL".
func signalValue(name string) (uint64, bool) {
	name = strings.ToUpper(name)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	s := unix.SignalNum(name)
	if s == 0 {
		return 0, false
	}
	return uint64(s), true
}
