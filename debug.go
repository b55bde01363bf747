package ordmap

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpHeader = DumpFlags(1 << iota)
	DumpStats
	DumpMain
	DumpRecent
	DumpValues

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the internal layout of the Index for debugging. Unlike every
// other read, it does not reconcile first.
func (idx *Index[V]) Dump(f DumpFlags) string {
	s := idx.Stats()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var buf strings.Builder
	if f.Contains(DumpHeader) {
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "index (%d items, stamp %d)\n", s.Count, s.ChangeStamp)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(&buf, "stats: main = %d, recent = %d/%d (holes %d), next_order = %d, reconciliations = %d, resorts = %d (quick %d, bubble %d), fast_path = %d, partitions = %d\n",
			s.MainSize, s.RecentSize, s.RecentCapacity, s.RecentHoles(), idx.nextOrder,
			s.Reconciliations, s.Resorts, s.Quicksorts, s.BubbleSorts, s.FastPathHits, s.PartitionSearches)
	}
	if f.Contains(DumpMain) {
		fmt.Fprintln(&buf, dumpSep2)
		for i, it := range idx.main {
			dumpItem(&buf, "main", i, it, f)
		}
	}
	if f.Contains(DumpRecent) {
		fmt.Fprintln(&buf, dumpSep2)
		for i, it := range idx.recent {
			dumpItem(&buf, "recent", i, it, f)
		}
	}
	return buf.String()
}

func dumpItem[V any](w *strings.Builder, prefix string, i int, it *Item[V], f DumpFlags) {
	if it == nil {
		fmt.Fprintf(w, "%s.%d = <hole>\n", prefix, i)
		return
	}
	if f.Contains(DumpValues) {
		fmt.Fprintf(w, "%s.%d = (o%d) %q => %s\n", prefix, i, it.order, it.key, loggableVal(it.value))
	} else {
		fmt.Fprintf(w, "%s.%d = (o%d) %q\n", prefix, i, it.order, it.key)
	}
}

func loggableVal(v any) string {
	if v == nil {
		return "<nil>"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
