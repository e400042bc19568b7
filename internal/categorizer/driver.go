package categorizer

// Categorize runs the full clustering and correction pipeline over one
// flagged duration trace, once per polarity, then repairs reliable
// outliers and untrusted subsequences in place.
//
// v must be laid out 1-indexed (v[0] is never read): odd indices hold
// HIGH-durations, even indices hold LOW-durations, and a value's
// reliability is carried in its own LSB. v must be sized to hold two
// sentinel values past sequenceLength; the sentinel is either a forced end
// ((0, 0)) or a normal end ((x, Ceil)).
//
// scratch is caller-owned so repeated calls across a long-running receiver
// can reuse one allocation; its contents on return are not meaningful to a
// caller.
//
// On success, z holds the resulting category sets (z[Low], z[High]) and
// trustworthiness is the largest relative delta (per-mille) any single
// correction applied — 0 if nothing needed correcting. Call PrintSequence
// separately to render the categorized trace; Categorize itself performs
// no I/O.
func Categorize(v []uint16, sequenceLength, unreliableCount uint16, scratch *Scratch) (z [2]CategorySet, trustworthiness uint16, code ReturnCode) {
	var overlap bool

	seqStart := uint16(2) - uint16(High)
	seqStop := sequenceLength - uint16(High)
	ov, rc := clusterer(&z[High], v, seqStart, seqStop, scratch)
	if rc != CodeOK {
		return z, 0, rc
	}
	z[High].Overlap = ov
	overlap = overlap || ov

	seqStart = uint16(2) - uint16(Low)
	seqStop = sequenceLength - uint16(Low)
	ov, rc = clusterer(&z[Low], v, seqStart, seqStop, scratch)
	if rc != CodeOK {
		return z, 0, rc
	}
	z[Low].Overlap = ov
	overlap = overlap || ov

	if !overlap {
		var crc ReturnCode
		crc, trustworthiness = corrector(&z, v, sequenceLength, unreliableCount, scratch)
		if crc != CodeOK {
			return z, trustworthiness, crc
		}
	}

	return z, trustworthiness, CodeOK
}
