package ordmap

import (
	"fmt"
	"testing"
)

func TestCompareParts(t *testing.T) {
	tests := []struct {
		key   string
		parts []string
		want  int
	}{
		{"type:alpha", []string{"type:", "alpha"}, 0},
		{"type:alpha", []string{"type:", "alph"}, 1},
		{"type:alph", []string{"type:", "alpha"}, -1},
		{"type:beta", []string{"type:", "alpha"}, 1},
		{"tape:alpha", []string{"type:", "alpha"}, -1},
		{"ab", []string{"a", "", "b"}, 0},
		{"", nil, 0},
		{"a", nil, 1},
	}
	for _, tt := range tests {
		if got := compareParts(tt.key, tt.parts); got != tt.want {
			t.Errorf("compareParts(%q, %q) = %d, wanted %d", tt.key, tt.parts, got, tt.want)
		}
	}
}

func TestFind(t *testing.T) {
	idx := New[any](Options{RecentCapacity: 8})
	for i := 0; i < 50; i++ {
		idx.Set(fmt.Sprintf("type:t%02d", i), i)
	}
	idx.Set("type:nil", nil)
	idx.Set("type:last", "recent")

	v, ok := idx.Find("type:", "t17")
	eq(t, ok, true)
	eq(t, v, any(17))

	v, ok = idx.Find("type:", "last")
	eq(t, ok, true)
	eq(t, v, any("recent"))

	v, ok = idx.Find("ty", "pe:", "t42")
	eq(t, ok, true)
	eq(t, v, any(42))

	_, ok = idx.Find("type:", "t1")
	eq(t, ok, false)
	_, ok = idx.Find("type:", "t177")
	eq(t, ok, false)

	v, ok = idx.Find("type:t03")
	eq(t, ok, true)
	eq(t, v, any(3))
}

func TestFindAnyNotFoundMarker(t *testing.T) {
	idx := New[any](Options{})
	other := New[any](Options{})
	idx.Set("k:nil", nil)

	if got := idx.FindAny("k:", "nil"); got != nil {
		t.Fatalf("FindAny(stored nil) = %v, wanted nil", got)
	}
	got := idx.FindAny("k:", "missing")
	if got != any(idx.NotFound()) {
		t.Fatalf("FindAny(missing) = %v, wanted the NotFound marker", got)
	}
	if got == any(other.NotFound()) {
		t.Fatalf("NotFound markers of different indexes compare equal")
	}
	eq(t, idx.NotFound().String(), "<not found>")
}
