package filter

import (
	"strings"
	"testing"

	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/value"
)

func newLeaf(t *testing.T, field string, op CompareOp) *Leaf {
	r := newTestRegistry(t)
	chk, err := r.ResolveExact(field)
	if err != nil {
		t.Fatal(err)
	}
	if err = chk.SetOperator(op); err != nil {
		t.Fatal(err)
	}
	return chk.(*Leaf)
}

func testLeaf(t *testing.T, field string, op CompareOp, literal string, ev Event, want bool) {
	l := newLeaf(t, field, op)
	if op.TakesValue() {
		if _, err := l.ParseFilterValue(literal); err != nil {
			t.Fatalf("%s %s %s: %s", field, op, literal, err)
		}
	}
	if got := l.Compare(ev); got != want {
		t.Errorf("%s %s %s: want %v, got %v", field, op, literal, want, got)
	}
}

func TestLeafCompare(t *testing.T) {
	ev := mapEvent{
		"a.port":      encode(t, "443", value.Port),
		"a.ip":        encode(t, "10.0.0.1", value.IPv4),
		"a.portname":  []byte("https"),
		"a.env[HOME]": []byte("/root"),
	}

	testLeaf(t, "a.port", OpEQ, "443", ev, true)
	testLeaf(t, "a.port", OpNE, "443", ev, false)
	testLeaf(t, "a.port", OpGT, "1024", ev, false)
	testLeaf(t, "a.port", OpIn, "(80, 443)", ev, true)
	testLeaf(t, "a.port", OpNotIn, "[80, 8080]", ev, true)
	testLeaf(t, "a.ip", OpEQ, "10.0.0.1", ev, true)
	testLeaf(t, "a.ip", OpIn, "(10.0.0.2, 10.0.0.3)", ev, false)
	testLeaf(t, "a.portname", OpGlob, "http?", ev, true)
	testLeaf(t, "a.portname", OpGlob, "ftp*", ev, false)
	testLeaf(t, "a.portname", OpContainsAny, "(ftp, tps)", ev, true)
	testLeaf(t, "a.portname", OpContainsAny, "(ftp, ssh)", ev, false)
	testLeaf(t, "a.portname", OpContainsAny, "(ftp, '')", ev, true)
	testLeaf(t, "a.portname", OpIContains, "HTTP", ev, true)
	testLeaf(t, "a.env[HOME]", OpStartsWith, "/ro", ev, true)
	testLeaf(t, "a.env[PATH]", OpStartsWith, "/ro", ev, false)
}

func TestLeafAbsent(t *testing.T) {
	ev := mapEvent{}

	for _, op := range []CompareOp{OpEQ, OpNE, OpLT, OpGE} {
		testLeaf(t, "a.port", op, "443", ev, false)
	}
	testLeaf(t, "a.port", OpNotIn, "(80)", ev, false)
	testLeaf(t, "a.port", OpExists, "", ev, false)
	testLeaf(t, "a.port", OpExists, "", mapEvent{"a.port": {0, 0}}, true)

	// Events the family does not understand are absent too.
	testLeaf(t, "a.port", OpExists, "", "not an event", false)

	notExists := NewExpression(Not, newLeaf(t, "a.port", OpExists))
	if !notExists.Compare(ev) {
		t.Error("not (a.port exists) should hold when a.port is absent")
	}

	l := newLeaf(t, "a.port", OpEQ)
	if s := l.Render(ev); s != "" {
		t.Errorf("absent value should render empty, got %q", s)
	}
	if _, ok := l.RenderJSON(ev).Kind.(*structpb.Value_NullValue); !ok {
		t.Errorf("absent value should render as null, got %v", l.RenderJSON(ev))
	}
	if raw, ok := l.Extract(ev); ok || raw != nil {
		t.Errorf("absent value extracted as %v", raw)
	}
}

func TestLeafRender(t *testing.T) {
	ev := mapEvent{
		"a.port": encode(t, "443", value.Port),
		"a.ip":   encode(t, "10.0.0.1", value.IPv4),
	}

	l := newLeaf(t, "a.port", OpEQ)
	if s := l.Render(ev); s != "443" {
		t.Errorf("want 443, got %q", s)
	}
	js, err := value.MarshalJSON(l.RenderJSON(ev))
	if err != nil || js != "443" {
		t.Errorf("want 443, got %q (%v)", js, err)
	}

	l = newLeaf(t, "a.ip", OpEQ)
	js, err = value.MarshalJSON(l.RenderJSON(ev))
	if err != nil || js != `"10.0.0.1"` {
		t.Errorf(`want "10.0.0.1", got %q (%v)`, js, err)
	}
}

func TestLeafCompileErrors(t *testing.T) {
	l := newLeaf(t, "a.ip", OpEQ)
	err := l.SetOperator(OpLT)
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Errorf("a.ip <: want ErrUnsupportedOperator, got %v", err)
	}

	l = newLeaf(t, "a.port", OpIn)
	if _, err = l.ParseFilterValue("80"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("a.port in 80: want ErrTypeMismatch, got %v", err)
	}

	if _, err = l.ParseFilterValue("(80, 'http')"); !errors.Is(err, value.ErrMalformedLiteral) {
		t.Errorf("a.port in (80, 'http'): want ErrMalformedLiteral, got %v", err)
	}
	if _, err = l.ParseFilterValue("(80, 443"); !errors.Is(err, value.ErrMalformedLiteral) {
		t.Errorf("a.port in (80, 443: want ErrMalformedLiteral, got %v", err)
	}
	c, err := l.ParseFilterValue(" [80, 443] ")
	if err != nil || !c.List || c.Len() != 2 {
		t.Errorf("a.port in [80, 443]: unexpected comparand %v, %v", c, err)
	}

	l = newLeaf(t, "a.port", OpEQ)
	if _, err = l.ParseFilterList([]string{"80"}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("a.port = (80): want ErrTypeMismatch, got %v", err)
	}
	if _, err = l.ParseFilterValue("http"); !errors.Is(err, value.ErrMalformedLiteral) {
		t.Errorf("a.port = http: want ErrMalformedLiteral, got %v", err)
	}

	l = newLeaf(t, "a.port", OpExists)
	if _, err = l.ParseFilterValue("1"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("a.port exists 1: want ErrTypeMismatch, got %v", err)
	}

	l = newLeaf(t, "a.portname", OpGlob)
	if _, err = l.ParseFilterValue("[unterminated"); !errors.Is(err, value.ErrMalformedLiteral) {
		t.Errorf("bad glob: want ErrMalformedLiteral, got %v", err)
	}
}

func TestLeafValueTooLong(t *testing.T) {
	l := newLeaf(t, "a.portname", OpEQ)

	ok := strings.Repeat("x", value.ScratchSize)
	if _, err := l.ParseFilterValue(ok); err != nil {
		t.Errorf("%d byte literal: %s", len(ok), err)
	}

	long := ok + "x"
	_, err := l.ParseFilterValue(long)
	if !errors.Is(err, value.ErrValueTooLong) {
		t.Fatalf("want ErrValueTooLong, got %v", err)
	}
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Field != "a.portname" || ce.Literal != long {
		t.Errorf("error lacks context: %+v", ce)
	}
}

func TestLeafString(t *testing.T) {
	l := newLeaf(t, "a.portname", OpEQ)
	l.ParseFilterValue("say \"hi\"")
	if s := l.String(); s != `a.portname = "say \"hi\""` {
		t.Errorf("got %s", s)
	}

	l = newLeaf(t, "a.port", OpIn)
	l.ParseFilterList([]string{"80", "443"})
	if s := l.String(); s != "a.port in (80, 443)" {
		t.Errorf("got %s", s)
	}

	l = newLeaf(t, "a.env[HOME]", OpExists)
	if s := l.String(); s != "a.env[HOME] exists" {
		t.Errorf("got %s", s)
	}
}

func TestLeafUnconfiguredPanics(t *testing.T) {
	r := newTestRegistry(t)
	f, _ := r.Family("a")
	l := f.New()
	expectPanic(t, "SetOperator before ParseFieldName", func() {
		l.SetOperator(OpEQ)
	})
}

func BenchmarkLeafCompare(b *testing.B) {
	f := newTestFamily("a", FieldDescriptor{Name: "a.port", Type: value.Port})
	l := f.New()
	l.ParseFieldName("a.port")
	l.SetOperator(OpEQ)
	l.ParseFilterValue("443")
	ev := mapEvent{"a.port": {0xbb, 0x01}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Compare(ev)
	}
}
