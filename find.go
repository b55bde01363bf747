package ordmap

import "strings"

// NotFoundMarker is returned by FindAny when nothing matches. Each Index has
// its own marker, distinct from any value that can be stored, including nil.
type NotFoundMarker struct {
	_ byte // non-zero size keeps every marker's address unique
}

func (*NotFoundMarker) String() string { return "<not found>" }

// NotFound returns this Index's not-found marker.
func (idx *Index[V]) NotFound() *NotFoundMarker {
	return idx.notFound
}

// Find looks up the key formed by concatenating parts, without building the
// concatenated string.
func (idx *Index[V]) Find(parts ...string) (V, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if it := idx.itemAt(idx.locateParts(parts)); it != nil {
		return it.value, true
	}
	var zero V
	return zero, false
}

// FindAny is like Find, but returns the value as any, or NotFound() if there
// is no match.
func (idx *Index[V]) FindAny(parts ...string) any {
	if v, ok := idx.Find(parts...); ok {
		return v
	}
	return idx.notFound
}

func (idx *Index[V]) locateParts(parts []string) int {
	if len(parts) == 1 {
		return idx.locate(parts[0])
	}
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	for i, it := range idx.recent {
		if it != nil && len(it.key) == total && compareParts(it.key, parts) == 0 {
			return recentLoc(i)
		}
	}
	idx.stats.PartitionSearches++
	return idx.partition(func(k string) int { return compareParts(k, parts) })
}

// compareParts compares k with the concatenation of parts.
func compareParts(k string, parts []string) int {
	off := 0
	for _, p := range parts {
		rest := k[off:]
		if len(rest) < len(p) {
			if c := strings.Compare(rest, p[:len(rest)]); c != 0 {
				return c
			}
			return -1
		}
		if c := strings.Compare(rest[:len(p)], p); c != 0 {
			return c
		}
		off += len(p)
	}
	if off < len(k) {
		return 1
	}
	return 0
}
