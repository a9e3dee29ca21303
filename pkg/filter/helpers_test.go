package filter

import (
	"testing"

	"github.com/capsule8/evfilter/pkg/value"
)

// mapEvent maps field names (with any "[arg]" suffix) to raw values.
type mapEvent map[string][]byte

type mapExtractor struct{}

func (mapExtractor) Extract(ev Event, f *FieldDescriptor, arg string) ([]byte, bool) {
	m, ok := ev.(mapEvent)
	if !ok {
		return nil, false
	}
	key := f.Name
	if arg != "" {
		key += "[" + arg + "]"
	}
	raw, ok := m[key]
	return raw, ok
}

type testFamily struct {
	info FamilyInfo
}

func newTestFamily(name string, fields ...FieldDescriptor) *testFamily {
	for i := range fields {
		fields[i].ID = i
	}
	return &testFamily{
		info: FamilyInfo{
			Name:   name,
			Fields: fields,
		},
	}
}

func (f *testFamily) Info() *FamilyInfo { return &f.info }

func (f *testFamily) New() Check { return NewLeaf(&f.info, mapExtractor{}) }

func encode(t *testing.T, text string, typ value.Type) []byte {
	c, err := value.Parse(text, typ)
	if err != nil {
		t.Fatalf("%s %q: %s", typ, text, err)
	}
	return c.Bytes()
}

func encodeList(t *testing.T, typ value.Type, items ...string) []byte {
	c, err := value.ParseList(items, typ)
	if err != nil {
		t.Fatalf("%s %q: %s", typ, items, err)
	}
	return c.Bytes()
}

// countingCheck is a leaf with a fixed result that records how often it
// was evaluated.
type countingCheck struct {
	Check
	result bool
	calls  int
}

func (c *countingCheck) Compare(ev Event) bool {
	c.calls++
	return c.result
}

func (c *countingCheck) String() string {
	if c.result {
		return "true"
	}
	return "false"
}

func expectPanic(t *testing.T, what string, fn func()) {
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", what)
		}
	}()
	fn()
}
