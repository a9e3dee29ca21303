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
	"github.com/capsule8/evfilter/pkg/filter"
	"github.com/capsule8/evfilter/pkg/value"
)

const (
	procPID = iota
	procTID
	procPPID
	procName
	procExe
	procArgs
	procCmdline
	procCwd
	procEnv
	procDuration
	procVMSize
	procVMRSS
)

func newProcFamily() filter.Family {
	return &family{
		info: filter.FamilyInfo{
			Name:        "process",
			Description: "Information about the process generating the event.",
			Fields: []filter.FieldDescriptor{
				{ID: procPID, Type: value.Int64, Name: "proc.pid", Description: "the id of the process generating the event."},
				{ID: procTID, Type: value.Int64, Name: "thread.tid", Description: "the id of the thread generating the event."},
				{ID: procPPID, Type: value.Int64, Name: "proc.ppid", Description: "the pid of the parent of the process generating the event."},
				{ID: procName, Type: value.CharBuf, Name: "proc.name", Description: "the name (excluding the path) of the executable generating the event."},
				{ID: procExe, Type: value.CharBuf, Name: "proc.exe", Description: "the full name (including the path) of the executable generating the event."},
				{ID: procArgs, Type: value.CharBuf, Name: "proc.args", Description: "the arguments passed on the command line when starting the process."},
				{ID: procCmdline, Type: value.CharBuf, Name: "proc.cmdline", Description: "full process command line, i.e. proc.name + proc.args."},
				{ID: procCwd, Type: value.CharBuf, Name: "proc.cwd", Description: "the current working directory of the event."},
				{ID: procEnv, Type: value.CharBuf, Name: "proc.env", Description: "the environment variables of the process, or one of them by name, e.g. 'proc.env[HOME]'.", Flags: filter.FieldArgAllowed},
				{ID: procDuration, Type: value.RelTime, Name: "proc.duration", Description: "time since the process was started."},
				{ID: procVMSize, Type: value.Uint32, Name: "proc.vmsize", Description: "total virtual memory for the process (in kb)."},
				{ID: procVMRSS, Type: value.Uint32, Name: "proc.vmrss", Description: "resident non-swapped memory for the process (in kb)."},
			},
		},
		newExtractor: func() filter.Extractor { return &procExtractor{} },
	}
}

type procExtractor struct {
	scratch
}

func (x *procExtractor) Extract(ev filter.Event, f *filter.FieldDescriptor, arg string) ([]byte, bool) {
	e := asEvent(ev)
	if e == nil || e.Process == nil {
		return nil, false
	}
	p := e.Process

	switch f.ID {
	case procPID:
		return x.int(f.Type, p.PID), true
	case procTID:
		tid := p.TID
		if tid == 0 {
			tid = p.PID
		}
		return x.int(f.Type, tid), true
	case procPPID:
		if p.PPID == 0 {
			return nil, false
		}
		return x.int(f.Type, p.PPID), true
	case procName:
		return str(p.Name)
	case procExe:
		return str(p.Exe)
	case procArgs:
		return x.join(p.Args, " "), true
	case procCmdline:
		x.buf = append(x.buf[:0], p.Name...)
		for _, a := range p.Args {
			x.buf = append(x.buf, ' ')
			x.buf = append(x.buf, a...)
		}
		return x.buf, true
	case procCwd:
		return str(p.Cwd)
	case procEnv:
		if arg == "" {
			return x.joinMap(p.Env), true
		}
		v, ok := p.Env[arg]
		if !ok {
			return nil, false
		}
		return value.StringView(v), true
	case procDuration:
		if p.StartTime == 0 || e.Timestamp < p.StartTime {
			return nil, false
		}
		return x.uint(f.Type, e.Timestamp-p.StartTime), true
	case procVMSize:
		return x.uint(f.Type, uint64(p.VMSize)), true
	case procVMRSS:
		return x.uint(f.Type, uint64(p.VMRSS)), true
	}
	return nil, false
}

const (
	userUID = iota
	userName
	userHome
	userShell
)

func newUserFamily() filter.Family {
	return &family{
		info: filter.FamilyInfo{
			Name:        "user",
			Description: "Information about the user executing the specific event.",
			Fields: []filter.FieldDescriptor{
				{ID: userUID, Type: value.Uint32, Name: "user.uid", Description: "user ID."},
				{ID: userName, Type: value.CharBuf, Name: "user.name", Description: "user name."},
				{ID: userHome, Type: value.CharBuf, Name: "user.homedir", Description: "home directory of the user."},
				{ID: userShell, Type: value.CharBuf, Name: "user.shell", Description: "user's shell."},
			},
		},
		newExtractor: func() filter.Extractor { return &userExtractor{} },
	}
}

type userExtractor struct {
	scratch
}

func (x *userExtractor) Extract(ev filter.Event, f *filter.FieldDescriptor, arg string) ([]byte, bool) {
	e := asEvent(ev)
	if e == nil || e.User == nil {
		return nil, false
	}

	switch f.ID {
	case userUID:
		return x.uint(f.Type, uint64(e.User.UID)), true
	case userName:
		return str(e.User.Name)
	case userHome:
		return str(e.User.Home)
	case userShell:
		return str(e.User.Shell)
	}
	return nil, false
}
