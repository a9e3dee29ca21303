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

package config

import (
	"strings"

	"github.com/golang/glog"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/value"
)

// Filter contains overridable configuration options for evfilter. Each
// option may be set from the environment with the C8_FILTER_ prefix, e.g.
// C8_FILTER_TIME_FORMAT=calendar.
var Filter struct {
	ProcFs string `split_words:"true" default:"/proc"`

	// RulesFile is a rules file, or a directory of them, loaded by the
	// rules command when none is given on the command line.
	RulesFile string `split_words:"true" default:"/etc/capsule8/rules.yaml"`

	// MinPriority drops rules less severe than the given priority.
	MinPriority string `split_words:"true" default:"debug"`

	// TimeFormat selects how absolute times are displayed: "raw" for
	// nanoseconds since the epoch or "calendar" for RFC 3339.
	TimeFormat string `split_words:"true" default:"calendar"`

	// MaxDisplayLen truncates long string values when displayed. Zero
	// disables truncation.
	MaxDisplayLen int `split_words:"true" default:"0"`

	// Workers is the number of goroutines used to evaluate rules. One
	// evaluates rules serially.
	Workers int `default:"1"`
}

func init() {
	err := envconfig.Process("C8_FILTER", &Filter)
	if err != nil {
		glog.Fatal(err)
	}
}

// DisplayMode returns the value.Mode described by the configuration.
func DisplayMode() (value.Mode, error) {
	return displayMode(Filter.TimeFormat, Filter.MaxDisplayLen)
}

func displayMode(timeFormat string, maxLen int) (value.Mode, error) {
	mode := value.Mode{MaxLen: maxLen}
	switch strings.ToLower(timeFormat) {
	case "raw":
		mode.Time = value.TimeRaw
	case "calendar", "":
		mode.Time = value.TimeCalendar
	default:
		return mode, errors.Errorf("unknown time format %q", timeFormat)
	}
	if maxLen < 0 {
		return mode, errors.Errorf("invalid maximum display length %d", maxLen)
	}
	return mode, nil
}
