package filter

import (
	"testing"

	"github.com/pkg/errors"
)

func counting(results ...bool) ([]Check, []*countingCheck) {
	checks := make([]Check, len(results))
	counters := make([]*countingCheck, len(results))
	for i, r := range results {
		counters[i] = &countingCheck{result: r}
		checks[i] = counters[i]
	}
	return checks, counters
}

func testCalls(t *testing.T, what string, counters []*countingCheck, want ...int) {
	for i, c := range counters {
		if c.calls != want[i] {
			t.Errorf("%s: child %d evaluated %d times, want %d",
				what, i, c.calls, want[i])
		}
	}
}

func TestAndShortCircuits(t *testing.T) {
	checks, counters := counting(true, false, true)
	expr := NewExpression(And, checks...)
	if expr.Compare(nil) {
		t.Error("true and false and true should be false")
	}
	testCalls(t, "and", counters, 1, 1, 0)
}

func TestOrShortCircuits(t *testing.T) {
	checks, counters := counting(false, false, true)
	expr := NewExpression(Or, checks...)
	if !expr.Compare(nil) {
		t.Error("false or false or true should be true")
	}
	testCalls(t, "or", counters, 1, 1, 1)

	checks, counters = counting(true, false)
	NewExpression(Or, checks...).Compare(nil)
	testCalls(t, "or", counters, 1, 0)
}

func TestNotInverts(t *testing.T) {
	checks, _ := counting(true)
	if NewExpression(Not, checks...).Compare(nil) {
		t.Error("not true should be false")
	}
	checks, _ = counting(false)
	if !NewExpression(Not, checks...).Compare(nil) {
		t.Error("not false should be true")
	}
}

func TestExpressionLeafMethodsPanic(t *testing.T) {
	checks, _ := counting(true)
	expr := NewExpression(And, checks...)

	expectPanic(t, "ParseFieldName", func() { expr.ParseFieldName("a.port") })
	expectPanic(t, "SetOperator", func() { expr.SetOperator(OpEQ) })
	expectPanic(t, "ParseFilterValue", func() { expr.ParseFilterValue("1") })
	expectPanic(t, "ParseFilterList", func() { expr.ParseFilterList(nil) })
	expectPanic(t, "FieldInfo", func() { expr.FieldInfo() })
	expectPanic(t, "Extract", func() { expr.Extract(nil) })
	expectPanic(t, "Render", func() { expr.Render(nil) })
	expectPanic(t, "RenderJSON", func() { expr.RenderJSON(nil) })

	bad := NewExpression(Not, checks[0], checks[0])
	expectPanic(t, "not with two children", func() { bad.Compare(nil) })
}

func TestBuilder(t *testing.T) {
	// a and (b or not (c))
	checks, counters := counting(true, false, false)

	b := NewBuilder(And)
	if err := b.Add(checks[0]); err != nil {
		t.Fatal(err)
	}
	b.Open(Or)
	b.Add(checks[1])
	b.Open(Not)
	b.Add(checks[2])
	if b.Depth() != 2 {
		t.Errorf("want depth 2, got %d", b.Depth())
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	expr, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if !expr.Compare(nil) {
		t.Error("true and (false or not false) should be true")
	}
	testCalls(t, "builder", counters, 1, 1, 1)

	if s := expr.String(); s != "true and (false or not false)" {
		t.Errorf("unexpected rendering %q", s)
	}

	n := 0
	expr.Walk(func(Check) { n++ })
	if n != 3 {
		t.Errorf("Walk visited %d leaves, want 3", n)
	}

	expectPanic(t, "Add after Finish", func() { b.Add(checks[0]) })
}

func testBuilderError(t *testing.T, what string, err error) {
	if !errors.Is(err, ErrMalformedExpression) {
		t.Errorf("%s: want ErrMalformedExpression, got %v", what, err)
	}
}

func TestBuilderErrors(t *testing.T) {
	checks, _ := counting(true, true)

	b := NewBuilder(And)
	_, err := b.Finish()
	testBuilderError(t, "empty root", err)

	b = NewBuilder(And)
	b.Add(checks[0])
	b.Open(Or)
	testBuilderError(t, "empty group", b.Close())

	b = NewBuilder(And)
	b.Open(Not)
	b.Add(checks[0])
	testBuilderError(t, "not with two operands", b.Add(checks[1]))

	b = NewBuilder(And)
	b.Add(checks[0])
	testBuilderError(t, "unbalanced close", b.Close())

	b = NewBuilder(And)
	b.Open(Or)
	b.Add(checks[0])
	_, err = b.Finish()
	testBuilderError(t, "unclosed group", err)
}

func TestEventFilter(t *testing.T) {
	l := newLeaf(t, "a.port", OpEQ)
	l.ParseFilterValue("443")

	var done []Event
	f := NewEventFilter(l, func(ev Event) { done = append(done, ev) })

	events := make(chan Event, 3)
	events <- mapEvent{"a.port": {0xbb, 0x01}}
	events <- mapEvent{"a.port": {0x50, 0x00}}
	events <- mapEvent{}
	close(events)
	Run(f, events)

	if len(done) != 1 {
		t.Errorf("want 1 event handled, got %d", len(done))
	}
	if seen, matched := FilterStats(f); seen != 3 || matched != 1 {
		t.Errorf("want 3 seen and 1 matched, got %d and %d", seen, matched)
	}
}
