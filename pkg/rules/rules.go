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

// Package rules loads named filter rules from YAML and evaluates events
// against them. A rules file is a list of items, each either a rule or a
// named list usable inside rule conditions:
//
//	# rules.yaml
//	- list: shell_binaries
//	  items: [bash, sh, zsh]
//
//	- rule: shell_in_container
//	  desc: a shell was spawned inside a container
//	  condition: evt.type = execve and container.id exists and proc.name in (shell_binaries)
//	  output: "shell %proc.name in %container.name (%container.id)"
//	  priority: WARNING
//	  tags: [container, shell]
package rules

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	structpb "github.com/golang/protobuf/ptypes/struct"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/capsule8/evfilter/pkg/compiler"
	"github.com/capsule8/evfilter/pkg/filter"
	"github.com/capsule8/evfilter/pkg/format"
)

// Rule is a compiled, named filter.
type Rule struct {
	Name      string
	Desc      string
	Condition string
	Priority  Priority
	Tags      []string

	filter *filter.Expression
	output *format.Formatter
}

// Match reports whether ev satisfies the rule's condition.
func (r *Rule) Match(ev filter.Event) bool {
	return r.filter.Compare(ev)
}

// Filter returns the compiled condition.
func (r *Rule) Filter() *filter.Expression {
	return r.filter
}

// Output renders the rule's output template for ev, or "" if the rule has
// none.
func (r *Rule) Output(ev filter.Event) string {
	if r.output == nil {
		return ""
	}
	return r.output.Format(ev)
}

// OutputStruct renders the fields referenced by the rule's output
// template as a JSON object.
func (r *Rule) OutputStruct(ev filter.Event) *structpb.Struct {
	if r.output == nil {
		return &structpb.Struct{}
	}
	return r.output.Struct(ev)
}

// HasTag reports whether the rule carries tag.
func (r *Rule) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type item struct {
	Rule      string   `yaml:"rule"`
	List      string   `yaml:"list"`
	Items     []string `yaml:"items"`
	Desc      string   `yaml:"desc"`
	Condition string   `yaml:"condition"`
	Output    string   `yaml:"output"`
	Priority  string   `yaml:"priority"`
	Tags      []string `yaml:"tags"`
	Enabled   *bool    `yaml:"enabled"`
}

// Options control how rules are loaded.
type Options struct {
	// MinPriority drops rules less severe than the given priority.
	MinPriority Priority

	// SkipInvalid logs and skips rules that fail to compile instead of
	// failing the whole load.
	SkipInvalid bool
}

// DefaultOptions keeps every valid rule.
var DefaultOptions = Options{MinPriority: Debug}

// Load reads a rules document from r and compiles every enabled rule
// against reg. Compile errors of all rules are reported together.
func Load(r io.Reader, reg *filter.Registry, opts Options) (*Ruleset, error) {
	var items []item
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&items); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding rules")
	}
	return build(items, reg, opts)
}

// LoadFile loads rules from a file, or from every .yaml and .yml file
// below path if it is a directory. Files are read in lexical order and
// lists are shared between them.
func LoadFile(path string, reg *filter.Registry, opts Options) (*Ruleset, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "loading rules")
	}

	var paths []string
	if fi.IsDir() {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isYAML(p) {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walking %s", path)
		}
	} else {
		paths = []string{path}
	}

	var items []item
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrap(err, "loading rules")
		}
		var fileItems []item
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err = dec.Decode(&fileItems); err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "decoding %s", p)
		}
		glog.V(1).Infof("Read %d rule items from %s", len(fileItems), p)
		items = append(items, fileItems...)
	}

	return build(items, reg, opts)
}

func isYAML(p string) bool {
	l := strings.ToLower(p)
	return strings.HasSuffix(l, ".yml") || strings.HasSuffix(l, ".yaml")
}

func build(items []item, reg *filter.Registry, opts Options) (*Ruleset, error) {
	var result *multierror.Error

	lists := make(map[string][]string)
	for i, it := range items {
		switch {
		case it.List != "" && it.Rule != "":
			result = multierror.Append(result,
				errors.Errorf("item %d is both a list and a rule", i))
		case it.List != "":
			lists[it.List] = expandList(it.Items, lists)
		case it.Rule == "":
			result = multierror.Append(result,
				errors.Errorf("item %d is neither a list nor a rule", i))
		}
	}

	rs := &Ruleset{}
	seen := make(map[string]bool)
	for _, it := range items {
		if it.Rule == "" || it.List != "" {
			continue
		}
		if seen[it.Rule] {
			result = multierror.Append(result,
				errors.Errorf("rule %q defined more than once", it.Rule))
			continue
		}
		seen[it.Rule] = true

		if it.Enabled != nil && !*it.Enabled {
			glog.V(1).Infof("Rule %q is disabled", it.Rule)
			continue
		}

		r, err := compileRule(it, reg, lists)
		if err != nil {
			err = errors.Wrapf(err, "rule %q", it.Rule)
			if opts.SkipInvalid {
				glog.Warningf("Skipping invalid rule: %s", err)
				continue
			}
			result = multierror.Append(result, err)
			continue
		}

		if r.Priority > opts.MinPriority {
			glog.V(1).Infof("Rule %q below minimum priority %s",
				r.Name, opts.MinPriority)
			continue
		}
		rs.rules = append(rs.rules, r)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	glog.V(1).Infof("Loaded %d rules", len(rs.rules))
	return rs, nil
}

// expandList resolves references to earlier lists within a list's items.
func expandList(items []string, lists map[string][]string) []string {
	var out []string
	for _, it := range items {
		if named, ok := lists[it]; ok {
			out = append(out, named...)
		} else {
			out = append(out, it)
		}
	}
	return out
}

func compileRule(it item, reg *filter.Registry, lists map[string][]string) (*Rule, error) {
	if strings.TrimSpace(it.Condition) == "" {
		return nil, errors.New("missing condition")
	}

	r := &Rule{
		Name:      it.Rule,
		Desc:      it.Desc,
		Condition: it.Condition,
		Priority:  Debug,
		Tags:      it.Tags,
	}
	if it.Priority != "" {
		p, err := ParsePriority(it.Priority)
		if err != nil {
			return nil, err
		}
		r.Priority = p
	}

	expr, err := compiler.Compile(it.Condition, reg, compiler.WithLists(lists))
	if err != nil {
		return nil, err
	}
	r.filter = expr

	if it.Output != "" {
		if r.output, err = format.New(it.Output, reg); err != nil {
			return nil, err
		}
	}
	return r, nil
}
