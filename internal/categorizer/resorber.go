package categorizer

// resorber attempts to repair a spike or a drop in the central triple of a
// five-element window [ssStartInd, ssStopInd], given the category values
// ssCat already assigned to the window's two trusted end elements. It
// reports whether the repair was accepted.
//
// *relDelta is both input (the best-fit approximation's relative delta, in
// per-mille) and output: on success it holds the resorber's own relative
// delta; on refusal it is left at the best-fit value so the caller can
// compare the two approaches without recomputing best-fit.
//
// A false return with rc == CodeOK is a refusal, not an error: the caller
// falls back to best-fit. A false return with a nonzero rc is fatal to the
// whole correction pass.
func resorber(z *CategorySet, v []uint16, ssCat []uint16, ssStartInd, ssStopInd uint16, relDelta *uint16) (bool, ReturnCode) {
	// only a quintuple is handled; anything else is best-fit only
	if ssStopInd-ssStartInd != 4 {
		return false, CodeOK
	}

	relDeltaBestfit := *relDelta
	var option uint8
	if relDeltaBestfit > 100 {
		option = OptEighth
	} else {
		option = OptSixteenth
	}

	vInd := ssStartInd
	vSum := int32(v[vInd]) - int32(ssCat[0])
	vSum += int32(v[vInd+1]) + int32(v[vInd+2]) + int32(v[vInd+3])
	vSum += int32(v[vInd+4]) - int32(ssCat[4])
	if vSum > Ceil {
		return false, CodeResorberTripleSumError
	}
	tripleVal := uint16(vSum)

	catInd, catVal, classifiable := classify(z, tripleVal, option)
	if !classifiable {
		return false, CodeOK
	}

	vSum = 0
	for vInd = ssStartInd; vInd <= ssStopInd; vInd++ {
		vSum += int32(v[vInd])
	}
	catSum := int32(ssCat[0]) + int32(catVal) + int32(ssCat[4])
	diff := vSum - catSum
	if diff < 0 {
		diff = -diff
	}
	newRelDelta := uint16(1000 * diff / vSum)
	if newRelDelta >= relDeltaBestfit {
		*relDelta = relDeltaBestfit
		return false, CodeOK
	}
	*relDelta = newRelDelta

	vInd = ssStartInd
	v[vInd] = ssCat[0]
	v[vInd+1] = catVal
	v[vInd+2] = 0
	v[vInd+3] = 0
	v[vInd+4] = ssCat[4]

	if catInd >= z.ClusterSize {
		if z.OutlierSize >= no {
			return false, CodeTooManyOutliers
		}
		z.OutlierInd[z.OutlierSize] = ssStartInd + 1
		z.OutlierSize++
	}

	return true, CodeOK
}
