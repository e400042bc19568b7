package categorizer

import "testing"

// absDiff16 is a small test helper: the tests below compare against
// approximate cluster centers, not exact raw values, since a cluster's
// center is a weighted bin mean rather than a literal input value.
func absDiff16(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}

// TestCategorizeThreeLevelHighWithStrayValueAggregatesAsResistantOutlier
// reproduces a three-level HIGH trace (400/800/1600) with one stray HIGH=50
// buried deep in the trusted interior. The stray is too far from every
// cluster to join one, so the clusterer reports it as an outlier; its LOW
// neighbors both classify cleanly, so the corrector's merged-outlier pass
// judges it a resistant outlier (keeping it raw is a better fit than
// smoothing it into the 400-cluster) and promotes it to a level-2
// aggregation rather than erasing it.
func TestCategorizeThreeLevelHighWithStrayValueAggregatesAsResistantOutlier(t *testing.T) {
	const n = 60
	highVals := []uint16{400, 800, 1600}
	seq := make([]uint16, 0, n*2)
	for i := 0; i < n; i++ {
		seq = append(seq, highVals[i%3], 1200)
	}

	const strayHighSeqPos = 40 // well inside the interior, clear of both borders
	seq[strayHighSeqPos] = 50

	v := buildTrace(seq...)
	strayVInd := uint16(strayHighSeqPos + 1)

	var scratch Scratch
	z, _, rc := Categorize(v, uint16(len(seq)), 0, &scratch)
	if rc != CodeOK {
		t.Fatalf("Categorize returned %v, want CodeOK", rc)
	}
	if z[High].ClusterSize != 3 {
		t.Fatalf("HIGH cluster_size = %d, want 3", z[High].ClusterSize)
	}

	found := false
	for i := uint8(0); i < z[High].OutlierSize; i++ {
		if z[High].OutlierInd[i] == strayVInd {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the stray HIGH=50 at v[%d] to remain an outlier, got %v", strayVInd, z[High].OutlierInd[:z[High].OutlierSize])
	}
	if v[strayVInd]&^1 != 50 {
		t.Fatalf("resistant outlier was overwritten: v[%d] = %d, want 50", strayVInd, v[strayVInd])
	}
	if z[High].AggregSize2 <= z[High].AggregSize1 {
		t.Fatalf("expected the resistant outlier to gain a level-2 aggregation: AggregSize1=%d AggregSize2=%d", z[High].AggregSize1, z[High].AggregSize2)
	}
}

// TestCategorizeUntrustedTripleSpikeResorbsToNeighboringClusterCenter
// reproduces a five-element untrusted window (A=400 reliable, then three
// consecutive unreliable values whose sum lands near the LOW cluster's
// center, then E=1200 reliable). None of the three middle values
// individually classifies, so the corrector's best-fit pass fails and hands
// off to the resorber, which must collapse the window to (A, center, 0, 0,
// E) the way original_source's resorber does.
func TestCategorizeUntrustedTripleSpikeResorbsToNeighboringClusterCenter(t *testing.T) {
	const half = 30
	seq := make([]uint16, 0, 4*half)
	for i := 0; i < half; i++ {
		seq = append(seq, 400, 950)
	}
	for i := 0; i < half; i++ {
		seq = append(seq, 1200, 950)
	}

	v := buildTrace(seq...)

	// frontInd is the last HIGH of the first half: v[frontInd]=400 is the
	// window's reliable front. Flag the next three values unreliable and
	// overwrite their magnitudes to produce the spike/drop window
	// (400, 450, 50, 450, 1200) whose middle three values sum to ~950,
	// the LOW cluster's center.
	frontInd := uint16(2*half - 1)
	v[frontInd+1] = 450 | 1
	v[frontInd+2] = 50 | 1
	v[frontInd+3] = 450 | 1
	// v[frontInd+4] is already 1200, reliable: the window's back.

	var scratch Scratch
	z, _, rc := Categorize(v, uint16(len(seq)), 3, &scratch)
	if rc != CodeOK {
		t.Fatalf("Categorize returned %v, want CodeOK", rc)
	}
	if z[High].Overlap || z[Low].Overlap {
		t.Fatalf("unexpected overlap: HIGH=%v LOW=%v", z[High].Overlap, z[Low].Overlap)
	}

	if v[frontInd+2] != 0 || v[frontInd+3] != 0 {
		t.Fatalf("window middle not collapsed: v[%d]=%d v[%d]=%d, want 0, 0", frontInd+2, v[frontInd+2], frontInd+3, v[frontInd+3])
	}
	if v[frontInd]&1 != 0 || absDiff16(v[frontInd]&^1, 400) > 50 {
		t.Fatalf("window front = %d, want ~400 reliable", v[frontInd])
	}
	if v[frontInd+4]&1 != 0 || absDiff16(v[frontInd+4]&^1, 1200) > 50 {
		t.Fatalf("window back = %d, want ~1200 reliable", v[frontInd+4])
	}
	if v[frontInd+1]&1 != 0 {
		t.Fatalf("resorbed center value v[%d]=%d is not marked reliable", frontInd+1, v[frontInd+1])
	}
	if absDiff16(v[frontInd+1]&^1, 950) > 50 {
		t.Fatalf("resorbed center value v[%d]&^1 = %d, want ~950", frontInd+1, v[frontInd+1]&^1)
	}
}

// TestCategorizeBimodalHistogramRunRaisesOverlapAndSkipsCorrector crafts a
// HIGH histogram with one contiguous run of six occupied bins whose counts
// rise, dip and rise again by more than the heuristic's tolerance — the
// signature of two clusters having merged into a single ambiguous run. The
// clusterer must raise Overlap for that polarity, and Categorize must then
// skip the corrector for both polarities: a LOW outlier that would
// otherwise be promoted to a level-2 aggregation is left untouched.
func TestCategorizeBimodalHistogramRunRaisesOverlapAndSkipsCorrector(t *testing.T) {
	seq := make([]uint16, 0, 64)
	for i := 0; i < 5; i++ {
		seq = append(seq, 9998, 9000) // leading border padding
	}

	// six contiguous histogram bins (width 16, floor 50) with counts
	// 3, 5, 1, 1, 1, 5 — occupied, then thin, then occupied again.
	highBlock := []uint16{54, 54, 54, 70, 70, 70, 70, 70, 84, 100, 120, 134, 134, 134, 134, 134}
	const strayLowBlockPos = 8 // inject the LOW outlier mid-block
	for i, h := range highBlock {
		low := uint16(9000)
		if i == strayLowBlockPos {
			low = 50
		}
		seq = append(seq, h, low)
	}

	for i := 0; i < 5; i++ {
		seq = append(seq, 9998, 9000) // trailing border padding
	}

	v := buildTrace(seq...)
	strayLowSeqPos := 10 + 2*strayLowBlockPos + 1
	strayLowVInd := uint16(strayLowSeqPos + 1)
	if v[strayLowVInd]&^1 != 50 {
		t.Fatalf("test setup error: v[%d] = %d, want 50", strayLowVInd, v[strayLowVInd])
	}

	var scratch Scratch
	z, trustworthiness, rc := Categorize(v, uint16(len(seq)), 0, &scratch)
	if rc != CodeOK {
		t.Fatalf("Categorize returned %v, want CodeOK", rc)
	}
	if !z[High].Overlap {
		t.Fatalf("expected the bimodal 6-bin run to raise HIGH.Overlap")
	}
	if trustworthiness != 0 {
		t.Fatalf("trustworthiness = %d, want 0 (corrector must be skipped)", trustworthiness)
	}

	found := false
	for i := uint8(0); i < z[Low].OutlierSize; i++ {
		if z[Low].OutlierInd[i] == strayLowVInd {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the LOW=50 stray to remain an untouched outlier, got %v", z[Low].OutlierInd[:z[Low].OutlierSize])
	}
	if z[Low].AggregSize2 != z[Low].AggregSize1 {
		t.Fatalf("LOW gained a level-2 aggregation despite overlap: AggregSize1=%d AggregSize2=%d (corrector should never have run)", z[Low].AggregSize1, z[Low].AggregSize2)
	}
}

// TestCategorizeNinthDistinctClusterOverflowsCapacity feeds nine widely
// separated HIGH levels, one more than the table's eight-cluster capacity,
// and checks that the clusterer fails closed with CodeTooManyClusters
// rather than silently dropping or merging the excess level.
func TestCategorizeNinthDistinctClusterOverflowsCapacity(t *testing.T) {
	levels := []uint16{100, 300, 500, 700, 900, 1100, 1300, 1500, 1700}
	reps := []int{15, 10, 10, 10, 10, 10, 10, 10, 15}

	seq := make([]uint16, 0, 256)
	for i, lvl := range levels {
		for j := 0; j < reps[i]; j++ {
			seq = append(seq, lvl, 5000)
		}
	}

	v := buildTrace(seq...)

	var scratch Scratch
	z, _, rc := Categorize(v, uint16(len(seq)), 0, &scratch)
	if rc != CodeTooManyClusters {
		t.Fatalf("Categorize returned %v, want CodeTooManyClusters", rc)
	}
	if z[High].ClusterSize != nc {
		t.Fatalf("HIGH cluster_size = %d, want %d (capacity)", z[High].ClusterSize, nc)
	}
}
