package ordmap

// Stats are cumulative counters describing an Index's internal activity.
type Stats struct {
	Count          int
	MainSize       int
	RecentSize     int // slots in use, including holes
	RecentLive     int
	RecentCapacity int
	ChangeStamp    uint64

	Reconciliations   uint64
	Resorts           uint64
	Quicksorts        uint64
	BubbleSorts       uint64
	FastPathHits      uint64
	PartitionSearches uint64
}

// RecentHoles returns the number of removed slots awaiting reconciliation.
func (s Stats) RecentHoles() int {
	return s.RecentSize - s.RecentLive
}

// Stats returns a snapshot of the Index counters.
func (idx *Index[V]) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	s := idx.stats
	s.Count = idx.countLocked()
	s.MainSize = len(idx.main)
	s.RecentSize = len(idx.recent)
	s.RecentLive = idx.recentCount
	s.RecentCapacity = idx.recentCap
	s.ChangeStamp = idx.stamp.Load()
	return s
}
