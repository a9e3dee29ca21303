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
	"github.com/capsule8/evfilter/pkg/event"
	"github.com/capsule8/evfilter/pkg/filter"
	"github.com/capsule8/evfilter/pkg/value"
)

const (
	evtNum = iota
	evtType
	evtDir
	evtTime
	evtRawTime
	evtLatency
	evtCPU
	evtRes
	evtFailed
	evtSignal
	evtArg
	evtArgs
	evtIsEnter
)

func newEvtFamily() filter.Family {
	return &family{
		info: filter.FamilyInfo{
			Name:        "evt",
			Description: "Generic event fields.",
			Fields: []filter.FieldDescriptor{
				{ID: evtNum, Type: value.Uint64, Name: "evt.num", Description: "event number."},
				{ID: evtType, Type: value.CharBuf, Name: "evt.type", Description: "name of the event (e.g. 'open')."},
				{ID: evtDir, Type: value.CharBuf, Name: "evt.dir", Description: "event direction, '>' for enter events and '<' for exit events."},
				{ID: evtTime, Type: value.AbsTime, Name: "evt.time", Description: "event timestamp."},
				{ID: evtRawTime, Type: value.Uint64, Name: "evt.rawtime", Description: "absolute event timestamp, i.e. nanoseconds from epoch."},
				{ID: evtLatency, Type: value.RelTime, Name: "evt.latency", Description: "delta between an exit event and the correspondent enter event."},
				{ID: evtCPU, Type: value.Int16, Name: "evt.cpu", Description: "number of the CPU where this event happened."},
				{ID: evtRes, Type: value.Errno, Name: "evt.res", Description: "event return value; errors render by name (e.g. ENOENT)."},
				{ID: evtFailed, Type: value.Bool, Name: "evt.failed", Description: "'true' for events that returned an error status."},
				{ID: evtSignal, Type: value.Signal, Name: "evt.signal", Description: "signal delivered by the event, if any."},
				{ID: evtArg, Type: value.CharBuf, Name: "evt.arg", Description: "one of the event arguments specified by name, e.g. 'evt.arg[fd]'.", Flags: filter.FieldArgRequired},
				{ID: evtArgs, Type: value.CharBuf, Name: "evt.args", Description: "all the event arguments, as name=value pairs."},
				{ID: evtIsEnter, Type: value.Bool, Name: "evt.is_enter", Description: "'true' for enter events."},
			},
		},
		newExtractor: func() filter.Extractor { return &evtExtractor{} },
	}
}

type evtExtractor struct {
	scratch
}

func (x *evtExtractor) Extract(ev filter.Event, f *filter.FieldDescriptor, arg string) ([]byte, bool) {
	e := asEvent(ev)
	if e == nil {
		return nil, false
	}

	switch f.ID {
	case evtNum:
		return x.uint(f.Type, e.Num), true
	case evtType:
		return str(e.Type)
	case evtDir:
		return str(e.Dir)
	case evtTime, evtRawTime:
		return x.uint(f.Type, e.Timestamp), true
	case evtLatency:
		if e.Latency == 0 {
			return nil, false
		}
		return x.uint(f.Type, e.Latency), true
	case evtCPU:
		return x.int(f.Type, int64(e.CPU)), true
	case evtRes:
		if e.Res == nil {
			return nil, false
		}
		return x.int(f.Type, *e.Res), true
	case evtFailed:
		if e.Res == nil {
			return nil, false
		}
		return x.bool(e.Failed()), true
	case evtSignal:
		if e.Signal == 0 {
			return nil, false
		}
		return x.uint(f.Type, uint64(e.Signal)), true
	case evtArg:
		v, ok := e.Args[arg]
		if !ok {
			return nil, false
		}
		return value.StringView(v), true
	case evtArgs:
		if len(e.Args) == 0 {
			return nil, false
		}
		return x.joinMap(e.Args), true
	case evtIsEnter:
		if e.Dir == "" {
			return nil, false
		}
		return x.bool(e.Dir == event.DirEnter), true
	}
	return nil, false
}
