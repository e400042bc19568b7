package categorizer

// aggregator groups a polarity's outliers into "aggreg" clusters, sorting
// the outlier indices by value as a side effect. It always starts from
// scratch (AggregSize2 reset to AggregSize1): the post-clustering pass
// calls it with vMinCount == minSize, the corrector's later passes call it
// with vMinCount == 0 so that every outlier group, even a singleton, earns
// an aggregation.
//
// Adjacent outliers (once sorted by value) belong to the same group while
// v_below + (v_above>>3) > v_above; a group materializes into a center
// only if it has strictly more than vMinCount members.
func aggregator(z *CategorySet, v []uint16, vMinCount uint8) ReturnCode {
	z.AggregSize2 = z.AggregSize1
	if z.OutlierSize < 1 {
		return CodeOK
	}

	outlierInd := z.OutlierInd[:z.OutlierSize]
	indexSort(v, outlierInd)

	oLastInd := z.OutlierSize - 1
	oInd := uint8(0)
	finishedAtLast := false

outer:
	for {
		if z.AggregSize2 >= na {
			return CodeTooManyAggregations
		}
		vSum := int32(0)
		vCount := uint8(0)
		for {
			vBelow := v[outlierInd[oInd]]
			vSum += int32(vBelow)
			vCount++
			if oInd >= oLastInd {
				center := uint16(vSum / int32(vCount))
				if vCount > vMinCount {
					z.AggregCenter[z.AggregSize2] = center & msb
					z.AggregSize2++
				}
				finishedAtLast = true
				break outer
			}
			oInd++
			vAbove := v[outlierInd[oInd]]
			if vBelow+(vAbove>>3) <= vAbove {
				break
			}
		}
		center := uint16(vSum / int32(vCount))
		if vCount > vMinCount {
			z.AggregCenter[z.AggregSize2] = center & msb
			z.AggregSize2++
		}
		if oInd >= oLastInd {
			break
		}
	}

	if finishedAtLast {
		return CodeOK
	}

	// last aggregation consists of a single value
	if oInd == oLastInd {
		if z.AggregSize2 >= na {
			return CodeTooManyAggregations
		}
		center := v[outlierInd[oInd]]
		if uint8(1) > vMinCount {
			z.AggregCenter[z.AggregSize2] = center & msb
			z.AggregSize2++
		}
		return CodeOK
	}

	// should never occur
	return CodeAggregatorError
}
