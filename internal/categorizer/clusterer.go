package categorizer

// clusterer turns one polarity's trusted, non-border values into clusters,
// then runs post-clustering: border classification, level-1 (border)
// aggregation, separator-barrier search and outlier sorting.
//
// It reports overlap=true if the bin-clustering phase detected at least one
// ambiguous, overlapping cluster run; a caller must treat that as fatal to
// the whole trace (skip the corrector for both polarities), the way the
// driver does.
func clusterer(z *CategorySet, v []uint16, vStartInd, vStopInd uint16, scratch *Scratch) (overlap bool, rc ReturnCode) {
	binCount := &scratch.binCount
	hitInd := &scratch.hitInd

	z.ClusterSize = 0
	z.AggregSize1 = 0
	z.AggregSize2 = 0
	z.OutlierSize = 0
	z.InlierCount = 0
	cInd := uint8(0)

	hNextFloor := uint16(startVal)
	binWidth2log := uint8(4)
	binWidth := uint16(1) << binWidth2log
	for b := range binCount {
		binCount[b] = 0
	}

histogramLoop:
	for {
		outlierPresence := false

		hWidth32 := uint32(nb) * uint32(binWidth)
		hFloorVal := hNextFloor
		hWidth32 = uint32(hFloorVal) + hWidth32
		var hCeilVal uint16
		if hWidth32 > Ceil {
			hCeilVal = Ceil
		} else {
			hCeilVal = uint16(hWidth32)
		}
		hNextFloor = Ceil

		hCount := uint8(0)
		for vInd := vStartInd + borderWidth; vInd <= vStopInd-borderWidth; vInd += 2 {
			vVal := v[vInd]
			if vVal < hFloorVal {
				continue
			}
			if v[vInd]&lsb == unreliable {
				continue
			}
			if v[vInd+1]&lsb == unreliable {
				continue
			}
			if v[vInd-1]&lsb == unreliable {
				continue
			}
			if vVal >= hCeilVal {
				if vVal < hNextFloor {
					hNextFloor = vVal
				}
				continue
			}
			bInd := uint8((vVal - hFloorVal) >> binWidth2log)
			if bInd >= nb {
				return overlap, CodeHistogramBinRangeError
			}
			if binCount[bInd] >= 255 {
				continue
			}
			binCount[bInd]++
			if hCount < nh {
				if binCount[bInd] <= firstHits {
					hitInd[hCount] = vInd
					hCount++
				}
			} else {
				return overlap, CodeTooManyHits
			}
		}

		bInd := uint8(0)
	binClustering:
		for bInd < nb {
			// first occupied bin after a run of empty bins
			for bInd < nb {
				old := bInd
				bInd++
				if binCount[old] != 0 {
					break
				}
			}
			binStartInd := bInd - 1
			if bInd >= nb {
				if binCount[binStartInd] > 0 {
					hNextFloor = (uint16(binStartInd) << binWidth2log) + hFloorVal
					binCount[binStartInd] = 0
				}
				break binClustering
			}
			if binStartInd >= nb {
				return overlap, CodeBinStartIndError
			}

			cHoleCount := uint8(0)
			binStopInd := uint8(nb)
			for bInd < nb {
				if binCount[bInd] > 0 {
					if cHoleCount > 0 {
						z.InlierCount++
					}
					cHoleCount = 0
				} else {
					cHoleCount++
					if cHoleCount > maxHoles {
						binStopInd = bInd - maxHoles
						break
					}
				}
				bInd++
			}
			if bInd == nb {
				if binStopInd == nb {
					hNextFloor = (uint16(binStartInd) << binWidth2log) + hFloorVal
					for b2 := binStartInd; b2 < nb; b2++ {
						binCount[b2] = 0
					}
				} else {
					return overlap, CodeVeryStrangeError
				}
				break binClustering
			}
			if binStopInd >= nb {
				return overlap, CodeBinStopIndError
			}

			if binStopInd-binStartInd >= 6 {
				ascending := true
				cPrevCount := uint16(0)
				cCount := uint16(binCount[binStartInd]) + uint16(binCount[binStartInd+1])
				for b := binStartInd + 2; b < binStopInd; b++ {
					cCount += uint16(binCount[b])
					if ascending {
						if cCount+3 < cPrevCount {
							ascending = false
						}
					} else if cCount > cPrevCount+3 {
						overlap = true
						ascending = true
						binStopInd = b - 2
						break
					}
					cPrevCount = cCount
					cCount -= uint16(binCount[b-2])
				}
			}

			cCount := uint16(0)
			var binMean uint32
			k := uint8(1)
			for b := binStartInd; b < binStopInd; b++ {
				cCount += uint16(binCount[b])
				binMean += uint32(k) * uint32(binCount[b])
				k++
			}

			if cCount < minSize {
				outlierPresence = true
				continue binClustering
			}
			for b := binStartInd; b < binStopInd; b++ {
				binCount[b] = 0
			}

			if cInd >= nc {
				z.ClusterSize = nc
				return overlap, CodeTooManyClusters
			}
			centerU32 := uint32(binStartInd)<<binWidth2log + (binMean<<binWidth2log)/uint32(cCount) + uint32(hFloorVal) - uint32(binWidth>>1)
			z.Clusters[cInd] = Cluster{
				Count:  cCount,
				Floor:  uint16(uint32(binStartInd)<<binWidth2log + uint32(hFloorVal)),
				Center: uint16(centerU32) & msb,
				Ceil:   uint16(uint32(binStopInd)<<binWidth2log + uint32(hFloorVal)),
			}
			cInd++
			bInd = binStopInd
		}

		if outlierPresence {
			for hInd := uint8(0); hInd < hCount; hInd++ {
				vInd := hitInd[hInd]
				vVal := v[vInd]
				bi := uint8((vVal - hFloorVal) >> binWidth2log)
				if binCount[bi] > 0 {
					if z.OutlierSize >= no {
						return overlap, CodeTooManyOutliers
					}
					z.OutlierInd[z.OutlierSize] = vInd
					z.OutlierSize++
					binCount[bi]--
				}
			}
		}

		if hNextFloor == Ceil {
			break histogramLoop
		}
		hNextFloor -= binWidth

		hWidth32 = uint32(hCeilVal)
		for uint32(hNextFloor) >= hWidth32 {
			binWidth2log++
			binWidth <<= 1
			hWidth32 += uint32(nb) * uint32(binWidth)
		}
	}

	z.ClusterSize = cInd
	if z.ClusterSize == 0 {
		return overlap, CodeNoCluster
	}

	// post-clustering: border values classification
	for vInd := vStartInd; vInd <= vStopInd; vInd += 2 {
		if vInd == vStartInd+borderWidth {
			vInd = vStopInd - borderWidth + 2
		}
		vVal := v[vInd]
		if v[vInd]&lsb == unreliable {
			continue
		}
		if vInd < vStopInd && v[vInd+1]&lsb == unreliable {
			continue
		}
		if vInd > vStartInd && v[vInd-1]&lsb == unreliable {
			continue
		}

		if _, _, ok := classify(z, vVal, OptEighth); !ok {
			// the first HIGH of the sequence is too insecure to produce a useful outlier
			if vInd > 1 {
				if z.OutlierSize >= no {
					return overlap, CodeTooManyOutliers
				}
				z.OutlierInd[z.OutlierSize] = vInd
				z.OutlierSize++
			}
		}
	}

	// level-1 (border) aggregation
	aggRC := aggregator(z, v, minSize)
	z.AggregSize1 = z.AggregSize2
	if aggRC != CodeOK {
		return overlap, aggRC
	}
	oInd := uint8(0)
	for k := uint8(0); k < z.OutlierSize; k++ {
		vInd := z.OutlierInd[k]
		if _, _, ok := classify(z, v[vInd], OptEighth); !ok {
			z.OutlierInd[oInd] = vInd
			oInd++
		}
	}
	z.OutlierSize = oInd

	// separator barrier
	vOldBarrier := uint16(0)
	vNewBarrier := z.Clusters[z.ClusterSize-1].Ceil
	for vNewBarrier > vOldBarrier {
		vOldBarrier = vNewBarrier
		vNewBarrier = 0
		if vOldBarrier < Ceil/10 {
			z.SeparatorBarrier = 10 * vOldBarrier
		} else {
			z.SeparatorBarrier = Ceil
		}
		for oInd := uint8(0); oInd < z.OutlierSize; oInd++ {
			vVal := v[z.OutlierInd[oInd]]
			if vVal < z.SeparatorBarrier && vVal > vNewBarrier {
				vNewBarrier = vVal
			}
		}
	}

	insertionSort(z.OutlierInd[:z.OutlierSize])

	return overlap, CodeOK
}
