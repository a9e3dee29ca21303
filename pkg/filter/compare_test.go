package filter

import (
	"testing"

	"github.com/capsule8/evfilter/pkg/value"
)

// testOrdered checks the equality and ordering laws for lo < hi.
func testOrdered(t *testing.T, typ value.Type, lo, hi string) {
	a, b := encode(t, lo, typ), encode(t, hi, typ)

	if !Compare(OpEQ, typ, a, a) || Compare(OpNE, typ, a, a) {
		t.Errorf("%s: %s should equal itself", typ, lo)
	}
	if Compare(OpEQ, typ, a, b) || !Compare(OpNE, typ, a, b) {
		t.Errorf("%s: %s should not equal %s", typ, lo, hi)
	}
	if !Compare(OpLT, typ, a, b) || Compare(OpGT, typ, a, b) {
		t.Errorf("%s: expected %s < %s", typ, lo, hi)
	}
	if !Compare(OpGT, typ, b, a) || Compare(OpLT, typ, b, a) {
		t.Errorf("%s: expected %s > %s", typ, hi, lo)
	}
	if Compare(OpLT, typ, a, a) || Compare(OpGT, typ, a, a) {
		t.Errorf("%s: %s is neither less nor greater than itself", typ, lo)
	}
	if !Compare(OpLE, typ, a, a) || !Compare(OpGE, typ, a, a) {
		t.Errorf("%s: %s should be <= and >= itself", typ, lo)
	}
	if !Compare(OpLE, typ, a, b) || Compare(OpGE, typ, a, b) {
		t.Errorf("%s: expected %s <= %s", typ, lo, hi)
	}
}

func testEquality(t *testing.T, typ value.Type, x, y string) {
	a, b := encode(t, x, typ), encode(t, y, typ)
	if !Compare(OpEQ, typ, a, a) || Compare(OpNE, typ, a, a) {
		t.Errorf("%s: %s should equal itself", typ, x)
	}
	if Compare(OpEQ, typ, a, b) || !Compare(OpNE, typ, a, b) {
		t.Errorf("%s: %s should not equal %s", typ, x, y)
	}
}

func TestCompareOrdering(t *testing.T) {
	testOrdered(t, value.Int8, "-128", "127")
	testOrdered(t, value.Int16, "-2", "-1")
	testOrdered(t, value.Int32, "-1", "1")
	testOrdered(t, value.Int64, "-9223372036854775808", "9223372036854775807")
	testOrdered(t, value.Uint8, "1", "255")
	testOrdered(t, value.Uint16, "80", "443")
	testOrdered(t, value.Uint32, "1", "4294967295")
	testOrdered(t, value.Uint64, "0", "18446744073709551615")
	testOrdered(t, value.Port, "22", "8080")
	testOrdered(t, value.Errno, "-2", "0")
	testOrdered(t, value.Signal, "SIGHUP", "SIGKILL")
	testOrdered(t, value.Double, "-0.5", "3.25")
	testOrdered(t, value.RelTime, "1ms", "1s")
	testOrdered(t, value.AbsTime, "1000", "2017-06-01T00:00:00Z")
	testOrdered(t, value.CharBuf, "apache", "nginx")
	testOrdered(t, value.CharBuf, "ngin", "nginx")
	testOrdered(t, value.ByteBuf, "\x00", "\xff")
}

func TestCompareUnsignedIsNotSignExtended(t *testing.T) {
	big := encode(t, "255", value.Uint8)
	one := encode(t, "1", value.Uint8)
	if !Compare(OpGT, value.Uint8, big, one) {
		t.Error("255 > 1 as Uint8")
	}

	neg := encode(t, "-1", value.Int8)
	if !Compare(OpLT, value.Int8, neg, one) {
		t.Error("-1 < 1 as Int8")
	}
}

func TestCompareEquality(t *testing.T) {
	testEquality(t, value.Bool, "true", "false")
	testEquality(t, value.IPv4, "10.0.0.1", "10.0.0.2")
	testEquality(t, value.IPv6, "::1", "fe80::1")
}

func TestCompareStrings(t *testing.T) {
	s := encode(t, "/usr/bin/Nginx", value.CharBuf)

	tests := []struct {
		op   CompareOp
		rhs  string
		want bool
	}{
		{OpContains, "bin", true},
		{OpContains, "nginx", false},
		{OpIContains, "NGINX", true},
		{OpIContains, "apache", false},
		{OpStartsWith, "/usr", true},
		{OpStartsWith, "usr", false},
		{OpEndsWith, "Nginx", true},
		{OpEndsWith, "/usr", false},
		{OpGlob, "/usr/*/N*", true},
		{OpGlob, "/bin/*", false},
		{OpContains, "", true},
	}
	for _, tc := range tests {
		rhs := []byte(tc.rhs)
		if got := Compare(tc.op, value.CharBuf, s, rhs); got != tc.want {
			t.Errorf("%q %s %q: want %v, got %v", s, tc.op, tc.rhs, tc.want, got)
		}
	}
}

func TestCompareCharBufStopsAtNul(t *testing.T) {
	lhs := []byte("bash\x00garbage")
	if !Compare(OpEQ, value.CharBuf, lhs, []byte("bash")) {
		t.Error("CharBuf should compare up to its NUL terminator")
	}
	if Compare(OpEQ, value.ByteBuf, lhs, []byte("bash")) {
		t.Error("ByteBuf should compare every byte")
	}
}

func TestCompareMembership(t *testing.T) {
	ports := encodeList(t, value.Port, "80", "443", "8080")
	if !Compare(OpIn, value.Port, encode(t, "443", value.Port), ports) {
		t.Error("443 in (80, 443, 8080)")
	}
	if Compare(OpIn, value.Port, encode(t, "22", value.Port), ports) {
		t.Error("22 not in (80, 443, 8080)")
	}
	if !Compare(OpNotIn, value.Port, encode(t, "22", value.Port), ports) {
		t.Error("22 notin (80, 443, 8080)")
	}

	names := encodeList(t, value.CharBuf, "sshd", "nginx")
	if !Compare(OpIn, value.CharBuf, []byte("nginx"), names) {
		t.Error("nginx in (sshd, nginx)")
	}
	if !Compare(OpContainsAny, value.CharBuf, []byte("/usr/sbin/sshd"), names) {
		t.Error("/usr/sbin/sshd containsany (sshd, nginx)")
	}
	if Compare(OpContainsAny, value.CharBuf, []byte("/bin/bash"), names) {
		t.Error("/bin/bash does not contain sshd or nginx")
	}

	ips := encodeList(t, value.IPv4, "10.0.0.1", "10.0.0.2")
	if !Compare(OpIn, value.IPv4, encode(t, "10.0.0.2", value.IPv4), ips) {
		t.Error("10.0.0.2 in (10.0.0.1, 10.0.0.2)")
	}
}

func TestCompareShortBuffers(t *testing.T) {
	port := encode(t, "443", value.Port)
	for _, op := range []CompareOp{OpEQ, OpNE, OpLT, OpGT, OpIn, OpNotIn} {
		rhs := port
		if op.TakesList() {
			rhs = encodeList(t, value.Port, "443")
		}
		if Compare(op, value.Port, nil, rhs) {
			t.Errorf("empty Port %s should be false", op)
		}
	}
	if Compare(OpEQ, value.IPv4, []byte{10, 0}, encode(t, "10.0.0.1", value.IPv4)) {
		t.Error("short IPv4 should not compare equal")
	}

	if !Compare(OpEQ, value.CharBuf, nil, []byte{}) {
		t.Error("two empty strings should be equal")
	}
}

func TestCompareContractViolations(t *testing.T) {
	a := encode(t, "1", value.Uint16)
	b := encode(t, "1", value.Int16)
	expectPanic(t, "mixed signedness", func() {
		CompareTyped(OpEQ, value.Uint16, a, value.Int16, b)
	})

	ip := encode(t, "10.0.0.1", value.IPv4)
	expectPanic(t, "ordering on IPv4", func() {
		Compare(OpLT, value.IPv4, ip, ip)
	})
	expectPanic(t, "contains on Uint16", func() {
		Compare(OpContains, value.Uint16, a, a)
	})

	if !CompareTyped(OpEQ, value.Uint16, a, value.Uint16, a) {
		t.Error("CompareTyped should compare equal types")
	}
}

func TestIsApplicable(t *testing.T) {
	if !IsApplicable(OpLT, value.AbsTime) {
		t.Error("times are ordered")
	}
	if IsApplicable(OpGE, value.IPv6) || IsApplicable(OpLT, value.Bool) {
		t.Error("IPs and bools are not ordered")
	}
	if !IsApplicable(OpIn, value.IPv4) || !IsApplicable(OpExists, value.IPv4) {
		t.Error("membership and existence apply to IPs")
	}
	if IsApplicable(OpContainsAny, value.Port) || IsApplicable(OpGlob, value.Port) {
		t.Error("substring operators only apply to strings")
	}
	if IsApplicable(OpEQ, value.TypeNone) {
		t.Error("nothing applies to TypeNone")
	}
}

func BenchmarkCompareUint16(b *testing.B) {
	x := []byte{0xbb, 0x01}
	y := []byte{0xbb, 0x01}
	for i := 0; i < b.N; i++ {
		Compare(OpEQ, value.Port, x, y)
	}
}

func BenchmarkCompareIn(b *testing.B) {
	c, _ := value.ParseList([]string{"22", "80", "443", "8080"}, value.Port)
	x := []byte{0x90, 0x1f}
	for i := 0; i < b.N; i++ {
		Compare(OpIn, value.Port, x, c.Bytes())
	}
}
