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

// Package event defines the decoded event representation handed to
// filters. Events are produced by a capture pipeline or read back from
// JSON lines, one event per line.
package event

import (
	"net"
)

// Direction of a system call event.
const (
	DirEnter = ">"
	DirExit  = "<"
)

// Event is a decoded system call or process event. Optional parts are nil
// when the event carries no such information; fields drawn from them are
// then absent.
type Event struct {
	Num       uint64            `json:"num"`
	Type      string            `json:"type"`
	Dir       string            `json:"dir,omitempty"`
	Timestamp uint64            `json:"ts"`
	CPU       int16             `json:"cpu"`
	Latency   uint64            `json:"latency,omitempty"`
	Res       *int64            `json:"res,omitempty"`
	Signal    uint8             `json:"signal,omitempty"`
	Args      map[string]string `json:"args,omitempty"`

	Process   *Process   `json:"proc,omitempty"`
	User      *User      `json:"user,omitempty"`
	FD        *FD        `json:"fd,omitempty"`
	Container *Container `json:"container,omitempty"`
}

// Process describes the thread that generated an event.
type Process struct {
	PID       int64             `json:"pid"`
	TID       int64             `json:"tid,omitempty"`
	PPID      int64             `json:"ppid,omitempty"`
	Name      string            `json:"name"`
	Exe       string            `json:"exe,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Cwd       string            `json:"cwd,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	StartTime uint64            `json:"start,omitempty"`
	VMSize    uint32            `json:"vmsize,omitempty"`
	VMRSS     uint32            `json:"vmrss,omitempty"`
}

// User identifies the user a process runs as.
type User struct {
	UID   uint32 `json:"uid"`
	Name  string `json:"name,omitempty"`
	Home  string `json:"home,omitempty"`
	Shell string `json:"shell,omitempty"`
}

// FD describes the file descriptor an event operates on.
type FD struct {
	Num  int64  `json:"num"`
	Type string `json:"type,omitempty"`

	// Mode is the st_mode of the file. It determines the descriptor type
	// when Type is empty.
	Mode uint32 `json:"mode,omitempty"`

	Name       string `json:"name,omitempty"`
	ClientIP   net.IP `json:"cip,omitempty"`
	ServerIP   net.IP `json:"sip,omitempty"`
	ClientPort uint16 `json:"cport,omitempty"`
	ServerPort uint16 `json:"sport,omitempty"`
	L4Proto    string `json:"l4proto,omitempty"`
	IsServer   *bool  `json:"is_server,omitempty"`
}

// Container identifies the container a process runs in.
type Container struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Image      string `json:"image,omitempty"`
	ImageID    string `json:"image_id,omitempty"`
	Privileged *bool  `json:"privileged,omitempty"`
}

// Failed reports whether the event carries a negative result.
func (ev *Event) Failed() bool {
	return ev.Res != nil && *ev.Res < 0
}
