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
	"strings"

	"github.com/pkg/errors"
)

// Priority is the syslog-style severity of a rule. Lower values are more
// severe.
type Priority int

// Priorities, from most to least severe
const (
	Emergency Priority = iota
	Alert
	Critical
	Error
	Warning
	Notice
	Informational
	Debug
)

var priorityNames = [...]string{
	Emergency:     "EMERGENCY",
	Alert:         "ALERT",
	Critical:      "CRITICAL",
	Error:         "ERROR",
	Warning:       "WARNING",
	Notice:        "NOTICE",
	Informational: "INFORMATIONAL",
	Debug:         "DEBUG",
}

func (p Priority) String() string {
	if p < Emergency || p > Debug {
		return "UNKNOWN"
	}
	return priorityNames[p]
}

// ParsePriority parses a priority name, ignoring case. "INFO" is accepted
// for Informational.
func ParsePriority(s string) (Priority, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if u == "INFO" {
		return Informational, nil
	}
	for p, name := range priorityNames {
		if name == u {
			return Priority(p), nil
		}
	}
	return Debug, errors.Errorf("unknown priority %q", s)
}
