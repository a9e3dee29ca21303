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

package rules

import (
	"golang.org/x/sync/errgroup"

	"github.com/capsule8/evfilter/pkg/filter"
)

// Ruleset is an ordered set of compiled rules. Like the filter trees it
// holds, a Ruleset must be evaluated by one caller at a time.
type Ruleset struct {
	rules []*Rule
}

// Rules returns the rules in declaration order.
func (rs *Ruleset) Rules() []*Rule {
	return rs.rules
}

// Len returns the number of rules.
func (rs *Ruleset) Len() int {
	return len(rs.rules)
}

// Rule returns the rule with the given name.
func (rs *Ruleset) Rule(name string) (*Rule, bool) {
	for _, r := range rs.rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Match returns the rules that ev satisfies, in declaration order.
func (rs *Ruleset) Match(ev filter.Event) []*Rule {
	var matched []*Rule
	for _, r := range rs.rules {
		if r.Match(ev) {
			matched = append(matched, r)
		}
	}
	return matched
}

// MatchParallel is like Match but splits the rules into contiguous chunks
// evaluated by up to workers goroutines. Each rule is evaluated by exactly
// one goroutine. ev must be safe for concurrent reads.
func (rs *Ruleset) MatchParallel(ev filter.Event, workers int) []*Rule {
	n := len(rs.rules)
	if workers <= 1 || n < 2 {
		return rs.Match(ev)
	}
	if workers > n {
		workers = n
	}

	hits := make([]bool, n)
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				hits[i] = rs.rules[i].Match(ev)
			}
			return nil
		})
	}
	g.Wait()

	var matched []*Rule
	for i, hit := range hits {
		if hit {
			matched = append(matched, rs.rules[i])
		}
	}
	return matched
}
