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

// Package sysinfo reports details of the host the filters run on.
package sysinfo

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Host identifies the running kernel and machine.
type Host struct {
	Sysname  string
	Nodename string
	Release  string
	Machine  string
}

func (h *Host) String() string {
	return h.Sysname + " " + h.Release + " " + h.Machine + " (" + h.Nodename + ")"
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Uname returns the host details reported by uname(2).
func Uname() (*Host, error) {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		return nil, errors.Wrap(err, "uname")
	}
	return &Host{
		Sysname:  cstring(name.Sysname[:]),
		Nodename: cstring(name.Nodename[:]),
		Release:  cstring(name.Release[:]),
		Machine:  cstring(name.Machine[:]),
	}, nil
}
