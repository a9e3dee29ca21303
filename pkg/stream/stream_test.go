package stream

import (
	"strings"
	"testing"

	"github.com/capsule8/evfilter/pkg/compiler"
	"github.com/capsule8/evfilter/pkg/event"
	"github.com/capsule8/evfilter/pkg/fields"
	"github.com/capsule8/evfilter/pkg/filter"
)

const testEvents = `{"type":"open","proc":{"pid":1,"name":"bash"}}
{"type":"execve","proc":{"pid":2,"name":"nginx"}}
{"type":"open","proc":{"pid":3,"name":"nginx"}}
`

func newEvents(n int) []filter.Event {
	events := make([]filter.Event, n)
	for i := range events {
		events[i] = &event.Event{Num: uint64(i), Type: "open"}
	}
	return events
}

func TestNext(t *testing.T) {
	s := Events(newEvents(10)...)
	defer s.Close()

	for i := uint64(0); i < 3; i++ {
		e, ok := s.Next()
		if !ok || e.(*event.Event).Num != i {
			t.Fatalf("Expected event %d, got %v", i, e)
		}
	}
}

func TestCount(t *testing.T) {
	s := Events(newEvents(10)...)
	defer s.Close()

	seen := 0
	s = Do(s, func(filter.Event) {
		seen++
	})

	n, err := Count(s)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 || seen != 10 {
		t.Errorf("Expected 10 events, got %d (%d seen)", n, seen)
	}
}

func TestDecode(t *testing.T) {
	s := Decode(strings.NewReader(testEvents))
	defer s.Close()

	var pids []int64
	err := ForEach(s, func(e filter.Event) {
		pids = append(pids, e.(*event.Event).Process.PID)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(pids) != 3 || pids[0] != 1 || pids[2] != 3 {
		t.Errorf("Unexpected pids %v", pids)
	}
}

func TestDecodeError(t *testing.T) {
	s := Decode(strings.NewReader(testEvents + "{\"type\": 5}\n"))
	defer s.Close()

	s = Filter(s, func(filter.Event) bool { return true })
	n, err := Count(s)
	if n != 3 {
		t.Errorf("Expected 3 events before the error, got %d", n)
	}
	if err == nil {
		t.Error("Expected a decoding error")
	}
}

func TestCheck(t *testing.T) {
	reg, err := fields.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	expr := compiler.MustCompile("proc.name = nginx and evt.type = open", reg)

	s := Decode(strings.NewReader(testEvents))
	defer s.Close()

	var nums []uint64
	err = ForEach(Check(s, expr), func(e filter.Event) {
		nums = append(nums, e.(*event.Event).Num)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(nums) != 1 || nums[0] != 3 {
		t.Errorf("Unexpected matches %v", nums)
	}
}

func TestApply(t *testing.T) {
	reg, _ := fields.NewRegistry()
	expr := compiler.MustCompile("proc.name = nginx", reg)

	done := 0
	f := filter.NewEventFilter(expr, func(filter.Event) { done++ })

	s := Decode(strings.NewReader(testEvents))
	defer s.Close()

	n, err := Count(Apply(s, f))
	if err != nil {
		t.Fatal(err)
	}
	seen, matched := filter.FilterStats(f)
	if n != 2 || done != 2 || seen != 3 || matched != 2 {
		t.Errorf("Unexpected counts n=%d done=%d seen=%d matched=%d",
			n, done, seen, matched)
	}
}

func TestSplitJoin(t *testing.T) {
	s := Events(newEvents(100)...)
	defer s.Close()

	even, odd := Split(s, func(e filter.Event) bool {
		return e.(*event.Event).Num%2 == 0
	})

	n, err := Count(Join(Buffer(even, 10), Buffer(odd, 10)))
	if err != nil {
		t.Fatal(err)
	}
	if n != 100 {
		t.Errorf("Expected 100 events, got %d", n)
	}
}

func TestClose(t *testing.T) {
	s := Events(newEvents(100)...)
	if _, ok := s.Next(); !ok {
		t.Fatal("Expected an event")
	}
	s.Close()

	if _, ok := s.Next(); ok {
		t.Error("Expected a closed stream")
	}
}
