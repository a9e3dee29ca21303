package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/capsule8/evfilter/pkg/config"
	"github.com/capsule8/evfilter/pkg/rules"
)

const testEvents = `{"num":1,"type":"open","proc":{"pid":10,"name":"cat"},"fd":{"num":3,"name":"/etc/passwd"}}
{"num":2,"type":"open","proc":{"pid":11,"name":"vi"},"fd":{"num":4,"name":"/etc/shadow"},"args":{"flags":"O_RDWR"}}
{"num":3,"type":"close","proc":{"pid":11,"name":"vi"},"fd":{"num":4}}
`

func writeFile(t *testing.T, name, contents string) string {
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCheck(t *testing.T) {
	var b bytes.Buffer
	if err := check(&b, "proc.name=vi and not(fd.num in (1,2))"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(b.String()); got != `proc.name = "vi" and not fd.num in (1, 2)` {
		t.Errorf("unexpected canonical form %q", got)
	}

	if err := check(&b, "proc.nosuch = 1"); err == nil {
		t.Error("expected an error")
	}
}

func TestMatch(t *testing.T) {
	input := writeFile(t, "events.json", testEvents)

	*matchOutput = "%evt.num %proc.name %fd.name"
	defer func() { *matchOutput = "" }()

	var b bytes.Buffer
	if err := match(&b, "evt.type = open and fd.name startswith /etc/", input); err != nil {
		t.Fatal(err)
	}
	want := "1 cat /etc/passwd\n2 vi /etc/shadow\n"
	if b.String() != want {
		t.Errorf("want %q, got %q", want, b.String())
	}

	*matchJSON = true
	defer func() { *matchJSON = false }()

	b.Reset()
	if err := match(&b, "evt.arg[flags] exists", input); err != nil {
		t.Fatal(err)
	}
	want = `{"evt.num":2,"fd.name":"/etc/shadow","proc.name":"vi"}` + "\n"
	if b.String() != want {
		t.Errorf("want %q, got %q", want, b.String())
	}
}

func TestEvalRules(t *testing.T) {
	input := writeFile(t, "events.json", testEvents)
	*rulesFile = writeFile(t, "rules.yaml", `
- rule: shadow_access
  condition: fd.name = /etc/shadow
  output: "%proc.name touched %fd.name"
  priority: critical
  tags: [files]
`)
	*rulesWorkers = 1
	*rulesMinPriority = rules.Debug

	var b bytes.Buffer
	if err := evalRules(&b, input); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one alert, got %q", b.String())
	}
	for _, want := range []string{
		`"rule":"shadow_access"`,
		`"priority":"CRITICAL"`,
		`"output":"vi touched /etc/shadow"`,
		`"tags":["files"]`,
		`"event":2`,
	} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("alert %s lacks %s", lines[0], want)
		}
	}
}

func TestDisplayMode(t *testing.T) {
	input := writeFile(t, "events.json", testEvents)
	saved := config.Filter
	defer func() { config.Filter = saved }()

	*matchOutput = "%fd.name"
	defer func() { *matchOutput = "" }()

	config.Filter.MaxDisplayLen = 4
	var b bytes.Buffer
	if err := match(&b, "evt.num = 1", input); err != nil {
		t.Fatal(err)
	}
	if b.String() != "/etc...\n" {
		t.Errorf("unexpected output %q", b.String())
	}

	config.Filter.MaxDisplayLen = -1
	if err := match(&b, "evt.num = 1", input); err == nil {
		t.Error("expected an error for a negative display length")
	}

	config.Filter.MaxDisplayLen = 0
	config.Filter.TimeFormat = "julian"
	if err := check(&b, "evt.num = 1"); err == nil {
		t.Error("expected an error for an unknown time format")
	}
}

func TestPsEvents(t *testing.T) {
	dir := t.TempDir()
	for name, contents := range map[string]string{
		"stat":       "cpu  1 2 3\nbtime 1500000000\n",
		"42/stat":    "42 (sshd) S 1 42 42 0 -1 4194560 1 0 0 0 0 0 0 0 20 0 1 0 100 1000 10 18446744073709551615 1 1 0 0 0 0 0 4096 16384 0 0 0 17 0 0 0 0 0 0\n",
		"42/status":  "Name:\tsshd\nUid:\t0\t0\t0\t0\nVmSize:\t    1000 kB\nVmRSS:\t     200 kB\n",
		"42/cmdline": "/usr/sbin/sshd\x00-D\x00",
		"43/stat":    "43 (bash) S 42 43 43 0 -1 4194560 1 0 0 0 0 0 0 0 20 0 1 0 200 1000 10 18446744073709551615 1 1 0 0 0 0 0 4096 16384 0 0 0 17 0 0 0 0 0 0\n",
		"43/status":  "Name:\tbash\nUid:\t1000\t1000\t1000\t1000\n",
		"43/cmdline": "bash\x00",
	} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}

	*psProcFs = dir
	*psOutput = "%proc.pid %proc.name"
	*psEvents = true
	defer func() { *psEvents = false }()

	var b bytes.Buffer
	if err := ps(&b, "user.uid = 0"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"name":"sshd"`) {
		t.Fatalf("unexpected events %q", b.String())
	}

	// The encoded snapshots are valid match input.
	input := writeFile(t, "ps.json", b.String())
	*matchOutput = "%proc.pid %proc.ppid %proc.name"
	defer func() { *matchOutput = "" }()

	b.Reset()
	if err := match(&b, "evt.type = procinfo", input); err != nil {
		t.Fatal(err)
	}
	if b.String() != "42 1 sshd\n" {
		t.Errorf("unexpected output %q", b.String())
	}
}
