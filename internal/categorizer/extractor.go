package categorizer

// extractor finds the next subsequence of untrusted values starting no
// earlier than *vInd, and reports whether it found one before vStopInd.
// The subsequence starts one element before the first unreliable value and
// ends at the first reliable value that follows it; *vInd is advanced past
// the returned ssStopInd so a caller can call extractor repeatedly to walk
// the whole trace.
//
// The subsequence length is intentionally not checked here; the resorber
// rejects anything other than length 5 and the caller rejects anything
// other than length 4 or 5.
func extractor(v []uint16, vStopInd uint16, vInd *uint16, ssStartInd, ssStopInd *uint16) bool {
	*ssStartInd = 0
	*ssStopInd = 0

	found := false
	for ; *vInd <= vStopInd-2; *vInd++ {
		if v[*vInd]&lsb == unreliable {
			*ssStartInd = *vInd - 1
			found = true
			break
		}
	}
	if !found {
		return false
	}

	for ; *vInd <= vStopInd; *vInd++ {
		if v[*vInd]&lsb == reliable {
			*ssStopInd = *vInd
			*vInd++
			return true
		}
	}
	return false
}
