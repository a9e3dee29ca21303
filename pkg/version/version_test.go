// version package unit tests
package version

import (
	"testing"
)

func TestString(t *testing.T) {
	Version, Build = "", ""
	if s := String(); s != "unknown" {
		t.Errorf("String returned unexpected value: got %v want unknown", s)
	}

	Version = "v5.5.5-test"
	if s := String(); s != "v5.5.5-test" {
		t.Errorf("String returned unexpected value: got %v", s)
	}

	Build = "the-buildkite-test-value"
	if s := String(); s != "v5.5.5-test [the-buildkite-test-value]" {
		t.Errorf("String returned unexpected value: got %v", s)
	}
}

func TestJSON(t *testing.T) {
	Version = "v5.5.5-test"
	Build = "the-buildkite-test-value"

	b, err := JSON()
	if err != nil {
		t.Fatal(err)
	}

	expected := `{"version":"v5.5.5-test","build":"the-buildkite-test-value"}`
	if string(b) != expected {
		t.Errorf("JSON returned unexpected values: got %v want %v", string(b), expected)
	}

	Build = ""
	b, _ = JSON()
	if string(b) != `{"version":"v5.5.5-test"}` {
		t.Errorf("JSON returned unexpected values: got %v", string(b))
	}
}
