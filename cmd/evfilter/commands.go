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

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/golang/glog"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/compiler"
	"github.com/capsule8/evfilter/pkg/config"
	"github.com/capsule8/evfilter/pkg/event"
	"github.com/capsule8/evfilter/pkg/fields"
	"github.com/capsule8/evfilter/pkg/filter"
	"github.com/capsule8/evfilter/pkg/format"
	"github.com/capsule8/evfilter/pkg/rules"
	"github.com/capsule8/evfilter/pkg/stream"
	"github.com/capsule8/evfilter/pkg/sys/proc"
	"github.com/capsule8/evfilter/pkg/value"
)

const defaultOutput = "%evt.num %evt.time %evt.type %proc.name (%proc.pid) %evt.args"

func newRegistry() (*filter.Registry, error) {
	reg, err := fields.NewRegistry()
	if err != nil {
		return nil, err
	}
	mode, err := config.DisplayMode()
	if err != nil {
		return nil, err
	}
	reg.SetMode(mode)
	return reg, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func listFields(w io.Writer, family string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, info := range reg.Families() {
		if family != "" && info.Name != family {
			continue
		}
		fmt.Fprintf(tw, "%s: %s\n", info.Name, info.Description)

		for _, f := range info.Fields {
			name := f.Name
			switch {
			case f.Flags&filter.FieldArgRequired != 0:
				name += "[ARG]"
			case f.Flags&filter.FieldArgAllowed != 0:
				name += "[ARG?]"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", name, f.Type, f.Description)
		}
		fmt.Fprintln(tw)
	}
	if family != "" {
		if _, ok := reg.Family(family); !ok {
			return errors.Errorf("unknown field family %q", family)
		}
	}
	return tw.Flush()
}

func check(w io.Writer, text string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	s, err := compiler.Normalize(text, reg)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, s)
	return nil
}

func match(w io.Writer, text, input string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	expr, err := compiler.Compile(text, reg)
	if err != nil {
		return err
	}

	out := *matchOutput
	if out == "" {
		out = defaultOutput
	}
	fmtr, err := format.New(out, reg)
	if err != nil {
		return err
	}

	r, err := openInput(input)
	if err != nil {
		return err
	}
	defer r.Close()

	bw := bufio.NewWriter(w)
	defer bw.Flush()

	var printErr error
	f := filter.NewEventFilter(expr, func(ev filter.Event) {
		if printErr != nil {
			return
		}
		if *matchJSON {
			var js string
			if js, printErr = fmtr.JSON(ev); printErr == nil {
				fmt.Fprintln(bw, js)
			}
			return
		}
		fmt.Fprintln(bw, fmtr.Format(ev))
	})

	s := stream.Decode(r)
	defer s.Close()

	err = stream.Discard(stream.Apply(s, f))
	seen, matched := filter.FilterStats(f)
	glog.V(1).Infof("Matched %d of %d events", matched, seen)
	if err != nil {
		return err
	}
	return printErr
}

func alert(r *rules.Rule, ev *event.Event) (string, error) {
	s := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"rule":     {Kind: &structpb.Value_StringValue{StringValue: r.Name}},
			"priority": {Kind: &structpb.Value_StringValue{StringValue: r.Priority.String()}},
			"event":    {Kind: &structpb.Value_NumberValue{NumberValue: float64(ev.Num)}},
			"output":   {Kind: &structpb.Value_StringValue{StringValue: r.Output(ev)}},
			"fields":   {Kind: &structpb.Value_StructValue{StructValue: r.OutputStruct(ev)}},
		},
	}
	if len(r.Tags) > 0 {
		tags := &structpb.ListValue{}
		for _, t := range r.Tags {
			tags.Values = append(tags.Values,
				&structpb.Value{Kind: &structpb.Value_StringValue{StringValue: t}})
		}
		s.Fields["tags"] = &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: tags}}
	}
	return value.MarshalJSON(&structpb.Value{Kind: &structpb.Value_StructValue{StructValue: s}})
}

func loadRules(reg *filter.Registry) (*rules.Ruleset, error) {
	return rules.LoadFile(*rulesFile, reg, rules.Options{
		MinPriority: *rulesMinPriority,
		SkipInvalid: *rulesSkipInvalid,
	})
}

func evalRules(w io.Writer, input string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	rs, err := loadRules(reg)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	defer bw.Flush()

	if *rulesList {
		tw := tabwriter.NewWriter(bw, 0, 8, 2, ' ', 0)
		for _, r := range rs.Rules() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Priority,
				strings.Join(r.Tags, ","), r.Filter())
		}
		return tw.Flush()
	}

	in, err := openInput(input)
	if err != nil {
		return err
	}
	defer in.Close()

	var (
		alerts  int
		lastErr error
	)
	s := stream.Decode(in)
	defer s.Close()

	err = stream.ForEach(s, func(e filter.Event) {
		ev := e.(*event.Event)
		for _, r := range rs.MatchParallel(ev, *rulesWorkers) {
			js, err := alert(r, ev)
			if err != nil {
				lastErr = err
				continue
			}
			alerts++
			fmt.Fprintln(bw, js)
		}
	})
	glog.V(1).Infof("Raised %d alerts from %d rules", alerts, rs.Len())
	if err != nil {
		return err
	}
	return lastErr
}

func ps(w io.Writer, text string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}

	var expr *filter.Expression
	if strings.TrimSpace(text) != "" {
		if expr, err = compiler.Compile(text, reg); err != nil {
			return err
		}
	}
	fmtr, err := format.New(*psOutput, reg)
	if err != nil {
		return err
	}

	fs, err := proc.New(*psProcFs)
	if err != nil {
		return err
	}
	snapshots, err := fs.Snapshots(uint64(time.Now().UnixNano()))
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	defer bw.Flush()

	if !*psEvents {
		fmt.Fprintln(bw, strings.Join(fmtr.Names(), " "))
	}
	for _, ev := range snapshots {
		if expr != nil && !expr.Compare(ev) {
			continue
		}
		if *psEvents {
			if err = event.Encode(bw, ev); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(bw, fmtr.Format(ev))
	}
	return nil
}
