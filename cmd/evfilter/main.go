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

// evfilter compiles event filters and rules and evaluates them against
// JSON encoded events or a snapshot of running processes.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/capsule8/evfilter/pkg/config"
	"github.com/capsule8/evfilter/pkg/rules"
	"github.com/capsule8/evfilter/pkg/sysinfo"
	"github.com/capsule8/evfilter/pkg/version"
)

// priorityValue is a kingpin flag value holding a rules.Priority.
type priorityValue rules.Priority

func (pv *priorityValue) Set(value string) error {
	p, err := rules.ParsePriority(value)
	if err != nil {
		return err
	}
	*pv = priorityValue(p)
	return nil
}

func (pv *priorityValue) String() string {
	return rules.Priority(*pv).String()
}

func priority(s kingpin.Settings) (target *rules.Priority) {
	target = new(rules.Priority)
	s.SetValue((*priorityValue)(target))
	return
}

var (
	app = kingpin.New("evfilter", "Filter system events with a field-based expression language.")

	verbosity  = app.Flag("verbosity", "glog verbosity level.").Short('v').Default("0").Int()
	timeFormat = app.Flag("time-format", "Display absolute times as raw nanoseconds or calendar time.").
			Default(config.Filter.TimeFormat).Enum("raw", "calendar")
	maxLen = app.Flag("max-len", "Truncate displayed strings to this many bytes (0 disables).").
		Default(strconv.Itoa(config.Filter.MaxDisplayLen)).Int()

	fieldsCmd    = app.Command("fields", "List the available filter fields.")
	fieldsFamily = fieldsCmd.Arg("family", "Only list the fields of this family.").String()

	checkCmd    = app.Command("check", "Compile a filter and print its canonical form.")
	checkFilter = checkCmd.Arg("filter", "Filter expression.").Required().String()

	matchCmd    = app.Command("match", "Print the events matching a filter.")
	matchFilter = matchCmd.Arg("filter", "Filter expression.").Required().String()
	matchInput  = matchCmd.Arg("events", "File of JSON encoded events (default stdin).").String()
	matchOutput = matchCmd.Flag("output", "Output format, e.g. \"%evt.num %proc.name %fd.name\".").
			Short('o').String()
	matchJSON = matchCmd.Flag("json", "Print the output fields as JSON objects.").Bool()

	rulesCmd   = app.Command("rules", "Evaluate rules against events and print an alert for every match.")
	rulesInput = rulesCmd.Arg("events", "File of JSON encoded events (default stdin).").String()
	rulesFile  = rulesCmd.Flag("rules", "Rules file or directory.").Short('r').
			Default(config.Filter.RulesFile).String()
	rulesMinPriority = priority(rulesCmd.Flag("min-priority", "Ignore rules less severe than this priority.").
				Default(config.Filter.MinPriority))
	rulesSkipInvalid = rulesCmd.Flag("skip-invalid", "Skip rules that fail to compile.").Bool()
	rulesWorkers     = rulesCmd.Flag("workers", "Goroutines used to evaluate rules.").
				Default(strconv.Itoa(config.Filter.Workers)).Int()
	rulesList = rulesCmd.Flag("list", "List the loaded rules and exit.").Bool()

	psCmd    = app.Command("ps", "Print the running processes matching a filter.")
	psFilter = psCmd.Arg("filter", "Filter expression (default all processes).").String()
	psOutput = psCmd.Flag("output", "Output format.").Short('o').
			Default("%proc.pid %proc.ppid %user.uid %proc.vmrss %container.id %proc.cmdline").String()
	psProcFs = psCmd.Flag("procfs", "Mount point of procfs.").Default(config.Filter.ProcFs).String()
	psEvents = psCmd.Flag("events", "Print the snapshots as JSON encoded events, for use with match and rules.").Bool()

	versionCmd = app.Command("version", "Print the version.")
)

func main() {
	// glog registers its flags on the standard flag set
	flag.CommandLine.Parse([]string{})
	flag.Set("logtostderr", "true")

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	flag.Set("v", strconv.Itoa(*verbosity))
	defer glog.Flush()

	config.Filter.TimeFormat = *timeFormat
	config.Filter.MaxDisplayLen = *maxLen

	version.InitialBuildLog("evfilter")
	if host, err := sysinfo.Uname(); err == nil {
		glog.V(1).Infof("Running on %s", host)
	}

	var err error
	switch cmd {
	case fieldsCmd.FullCommand():
		err = listFields(os.Stdout, *fieldsFamily)
	case checkCmd.FullCommand():
		err = check(os.Stdout, *checkFilter)
	case matchCmd.FullCommand():
		err = match(os.Stdout, *matchFilter, *matchInput)
	case rulesCmd.FullCommand():
		err = evalRules(os.Stdout, *rulesInput)
	case psCmd.FullCommand():
		err = ps(os.Stdout, *psFilter)
	case versionCmd.FullCommand():
		fmt.Println(version.String())
	}

	if err != nil {
		glog.Flush()
		fmt.Fprintf(os.Stderr, "evfilter: %s\n", err)
		os.Exit(1)
	}
}
