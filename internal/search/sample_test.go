package search

import "testing"

func TestSampleBufferFIFODropsOnceFull(t *testing.T) {
	b := newSampleBuffer(false)
	for i := 0; i < maxSampleSize+10; i++ {
		b.add(int64(i), 0)
	}
	ids := b.ids()
	if len(ids) != maxSampleSize {
		t.Fatalf("expected %d ids, got %d", maxSampleSize, len(ids))
	}
}

func TestSampleBufferTopKKeepsHighestAverage(t *testing.T) {
	b := newSampleBuffer(true)
	for i := 0; i < maxSampleSize; i++ {
		b.add(int64(i), float64(i))
	}
	// Every id so far has a distinct, increasing average; a new, higher
	// entry should evict the current minimum (id 0, avg 0).
	b.add(99999, 100000)

	found := false
	for _, id := range b.ids() {
		if id == 0 {
			t.Fatal("lowest-average entry should have been evicted")
		}
		if id == 99999 {
			found = true
		}
	}
	if !found {
		t.Fatal("new highest-average entry should be present")
	}
}

func TestContinuationTableAggregatesByResult(t *testing.T) {
	tbl := newContinuationTable()
	tbl.add("e5", "1-0")
	tbl.add("e5", "1-0")
	tbl.add("e5", "0-1")
	tbl.add("e5", "1/2-1/2")
	tbl.add("c5", "1-0")

	stats := tbl.slice()
	var e5, c5 *ContinuationStat
	for i := range stats {
		switch stats[i].Move {
		case "e5":
			e5 = &stats[i]
		case "c5":
			c5 = &stats[i]
		}
	}
	if e5 == nil || e5.WhiteWins != 2 || e5.BlackWins != 1 || e5.Draws != 1 {
		t.Fatalf("unexpected e5 stats: %+v", e5)
	}
	if c5 == nil || c5.WhiteWins != 1 {
		t.Fatalf("unexpected c5 stats: %+v", c5)
	}
}
