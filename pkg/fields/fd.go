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

package fields

import (
	"net"
	"path"

	"golang.org/x/sys/unix"

	"github.com/capsule8/evfilter/pkg/event"
	"github.com/capsule8/evfilter/pkg/filter"
	"github.com/capsule8/evfilter/pkg/value"
)

const (
	fdNum = iota
	fdType
	fdTypeChar
	fdName
	fdDirectory
	fdFilename
	fdIP
	fdClientIP
	fdServerIP
	fdClientIP6
	fdServerIP6
	fdPort
	fdClientPort
	fdServerPort
	fdL4Proto
	fdSockFamily
	fdIsServer
)

var fdTypeChars = map[string]string{
	"file":      "f",
	"directory": "d",
	"ipv4":      "4",
	"ipv6":      "6",
	"unix":      "u",
	"pipe":      "p",
	"event":     "e",
	"signalfd":  "s",
	"eventpoll": "l",
	"inotify":   "i",
	"timerfd":   "t",
	"device":    "c",
	"link":      "k",
}

// fdFamily creates fdCheck values so that the endpoint-agnostic fd.ip and
// fd.port fields can test both ends of a connection.
type fdFamily struct {
	info filter.FamilyInfo
}

func newFDFamily() filter.Family {
	return &fdFamily{
		info: filter.FamilyInfo{
			Name:        "fd",
			Description: "File descriptor fields.",
			Fields: []filter.FieldDescriptor{
				{ID: fdNum, Type: value.Int64, Name: "fd.num", Description: "the unique number identifying the file descriptor."},
				{ID: fdType, Type: value.CharBuf, Name: "fd.type", Description: "type of FD. Can be 'file', 'directory', 'ipv4', 'ipv6', 'unix', 'pipe', 'event', 'signalfd', 'eventpoll', 'inotify', 'timerfd' or 'device'."},
				{ID: fdTypeChar, Type: value.CharBuf, Name: "fd.typechar", Description: "type of FD as a single character."},
				{ID: fdName, Type: value.CharBuf, Name: "fd.name", Description: "FD full name. If the fd is a file, this field contains the full path."},
				{ID: fdDirectory, Type: value.CharBuf, Name: "fd.directory", Description: "If the fd is a file, the directory that contains it."},
				{ID: fdFilename, Type: value.CharBuf, Name: "fd.filename", Description: "If the fd is a file, the filename without the path."},
				{ID: fdIP, Type: value.IPv4, Name: "fd.ip", Description: "matches the ip address (client or server) of the fd.", Flags: filter.FieldFilterOnly},
				{ID: fdClientIP, Type: value.IPv4, Name: "fd.cip", Description: "client IP address."},
				{ID: fdServerIP, Type: value.IPv4, Name: "fd.sip", Description: "server IP address."},
				{ID: fdClientIP6, Type: value.IPv6, Name: "fd.cip6", Description: "client IPv6 address."},
				{ID: fdServerIP6, Type: value.IPv6, Name: "fd.sip6", Description: "server IPv6 address."},
				{ID: fdPort, Type: value.Port, Name: "fd.port", Description: "matches the port (client or server) of the fd.", Flags: filter.FieldFilterOnly},
				{ID: fdClientPort, Type: value.Port, Name: "fd.cport", Description: "for TCP/UDP FDs, the client port."},
				{ID: fdServerPort, Type: value.Port, Name: "fd.sport", Description: "for TCP/UDP FDs, server port."},
				{ID: fdL4Proto, Type: value.CharBuf, Name: "fd.l4proto", Description: "the IP protocol of a socket. Can be 'tcp', 'udp', 'icmp' or 'raw'."},
				{ID: fdSockFamily, Type: value.CharBuf, Name: "fd.sockfamily", Description: "the socket family for socket events. Can be 'ip' or 'unix'."},
				{ID: fdIsServer, Type: value.Bool, Name: "fd.is_server", Description: "'true' if the process owning this FD is the server endpoint in the connection."},
			},
		},
	}
}

func (f *fdFamily) Info() *filter.FamilyInfo {
	return &f.info
}

func (f *fdFamily) New() filter.Check {
	x := &fdExtractor{}
	return &fdCheck{
		Leaf: filter.NewLeaf(&f.info, x),
		x:    x,
	}
}

// fdCheck matches the filter-only endpoint fields when either endpoint
// matches.
type fdCheck struct {
	*filter.Leaf
	x *fdExtractor
}

func (c *fdCheck) Compare(ev filter.Event) bool {
	f := c.FieldInfo()
	if f == nil || f.Flags&filter.FieldFilterOnly == 0 {
		return c.Leaf.Compare(ev)
	}

	c.x.server = false
	if c.Leaf.Compare(ev) {
		return true
	}
	c.x.server = true
	matched := c.Leaf.Compare(ev)
	c.x.server = false
	return matched
}

type fdExtractor struct {
	scratch

	// server selects the endpoint used by fd.ip and fd.port.
	server bool
}

func typeOf(fd *event.FD) string {
	if fd.Type != "" {
		return fd.Type
	}

	switch fd.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return "file"
	case unix.S_IFDIR:
		return "directory"
	case unix.S_IFIFO:
		return "pipe"
	case unix.S_IFSOCK:
		return "unix"
	case unix.S_IFCHR, unix.S_IFBLK:
		return "device"
	case unix.S_IFLNK:
		return "link"
	}
	return ""
}

func ipv4(ip net.IP) ([]byte, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return nil, false
	}
	return v4, true
}

func ipv6(ip net.IP) ([]byte, bool) {
	if len(ip) != net.IPv6len || ip.To4() != nil {
		return nil, false
	}
	return ip, true
}

func (x *fdExtractor) port(p uint16) ([]byte, bool) {
	if p == 0 {
		return nil, false
	}
	return x.uint(value.Port, uint64(p)), true
}

func (x *fdExtractor) Extract(ev filter.Event, f *filter.FieldDescriptor, arg string) ([]byte, bool) {
	e := asEvent(ev)
	if e == nil || e.FD == nil {
		return nil, false
	}
	fd := e.FD

	switch f.ID {
	case fdNum:
		return x.int(f.Type, fd.Num), true
	case fdType:
		return str(typeOf(fd))
	case fdTypeChar:
		t := typeOf(fd)
		if t == "" {
			return nil, false
		}
		c, ok := fdTypeChars[t]
		if !ok {
			c = "o"
		}
		return str(c)
	case fdName:
		return str(fd.Name)
	case fdDirectory, fdFilename:
		t := typeOf(fd)
		if fd.Name == "" || (t != "file" && t != "directory") {
			return nil, false
		}
		if f.ID == fdDirectory {
			if t == "directory" {
				return str(fd.Name)
			}
			return str(path.Dir(fd.Name))
		}
		if t != "file" {
			return nil, false
		}
		return str(path.Base(fd.Name))
	case fdIP:
		if x.server {
			return ipv4(fd.ServerIP)
		}
		return ipv4(fd.ClientIP)
	case fdClientIP:
		return ipv4(fd.ClientIP)
	case fdServerIP:
		return ipv4(fd.ServerIP)
	case fdClientIP6:
		return ipv6(fd.ClientIP)
	case fdServerIP6:
		return ipv6(fd.ServerIP)
	case fdPort:
		if x.server {
			return x.port(fd.ServerPort)
		}
		return x.port(fd.ClientPort)
	case fdClientPort:
		return x.port(fd.ClientPort)
	case fdServerPort:
		return x.port(fd.ServerPort)
	case fdL4Proto:
		return str(fd.L4Proto)
	case fdSockFamily:
		switch {
		case fd.ClientIP != nil || fd.ServerIP != nil:
			return str("ip")
		case typeOf(fd) == "unix":
			return str("unix")
		}
		return nil, false
	case fdIsServer:
		if fd.IsServer == nil {
			return nil, false
		}
		return x.bool(*fd.IsServer), true
	}
	return nil, false
}
