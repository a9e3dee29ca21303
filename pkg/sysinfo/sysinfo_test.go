package sysinfo

import (
	"runtime"
	"testing"
)

func TestCString(t *testing.T) {
	if s := cstring([]byte{'L', 'i', 'n', 'u', 'x', 0, 'x'}); s != "Linux" {
		t.Errorf("Expected Linux, got %q", s)
	}
	if s := cstring([]byte("full")); s != "full" {
		t.Errorf("Expected full, got %q", s)
	}
}

func TestUname(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("uname test requires linux")
	}

	h, err := Uname()
	if err != nil {
		t.Fatal(err)
	}
	if h.Sysname != "Linux" || h.Release == "" {
		t.Errorf("Unexpected host %s", h)
	}
}
