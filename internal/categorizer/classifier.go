package categorizer

// classify finds the category (cluster or aggregation) nearest to value,
// and reports whether it is near enough under the given tightness option.
//
// Binary-style scan over clusters by ascending ceil, then a linear scan
// over aggregations; aggregation indices are reported as
// z.ClusterSize + a so a caller can always tell them apart from cluster
// indices without a second return value.
func classify(z *CategorySet, value uint16, option uint8) (catInd uint8, catVal uint16, near bool) {
	var delta uint16

	// (A) find the cluster
	found := false
	for catInd = 0; catInd < z.ClusterSize; catInd++ {
		if value < z.Clusters[catInd].Ceil {
			found = true
			break
		}
	}
	if !found {
		// value is higher than the highest cluster
		catInd = z.ClusterSize - 1
		delta = value - z.Clusters[catInd].Center
	} else if value >= z.Clusters[catInd].Floor {
		// value matches this cluster exactly
		catVal = z.Clusters[catInd].Center
		return catInd, catVal, true
	} else if catInd == 0 {
		delta = z.Clusters[0].Center - value
	} else {
		d1 := z.Clusters[catInd].Center - value
		d2 := value - z.Clusters[catInd-1].Center
		if d1 < d2 {
			delta = d1
		} else {
			catInd--
			delta = d2
		}
	}

	catVal = z.Clusters[catInd].Center

	// (B) try aggregations; any aggregation nearer than the nearest
	// cluster replaces the running candidate.
	for a := uint8(0); a < z.AggregSize2; a++ {
		center := z.AggregCenter[a]
		var d uint16
		if value > center {
			d = value - center
		} else {
			d = center - value
		}
		if d < delta {
			catInd = z.ClusterSize + a
			catVal = center
			delta = d
		}
	}

	if delta < (catVal >> option) {
		return catInd, catVal, true
	}
	return catInd, catVal, false
}
