package ordmap

import (
	"errors"
	"reflect"
	"testing"
)

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isErr(t testing.TB, err, target error) {
	if !errors.Is(err, target) {
		t.Helper()
		t.Errorf("** got error %v, wanted %v", err, target)
	}
}

func noErr(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** unexpected error: %v", err)
	}
}

func get[V any](t testing.TB, idx *Index[V], key string) V {
	v, ok := idx.Get(key)
	if !ok {
		t.Helper()
		t.Fatalf("** Get(%q) found nothing", key)
	}
	return v
}

// checkSorted verifies SortedKeys is strictly ascending.
func checkSorted[V any](t testing.TB, idx *Index[V]) {
	keys := idx.SortedKeys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Helper()
			t.Fatalf("** keys not strictly ascending at %d: %q >= %q", i, keys[i-1], keys[i])
		}
	}
}
