package categorizer

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// corrector repairs reliable outliers found by the clusterer and untrusted
// subsequences flagged by the recorder. It never touches the clusters
// themselves, only the raw durations and each polarity's outlier and
// aggregation tables.
//
// corrector must not be called when either polarity's clusterer reported
// overlap; the caller (Categorize) enforces that.
//
// The returned trustworthiness value is the largest relative delta (in
// per-mille) applied by any single correction; it is a diagnostic, not a
// pass/fail signal.
func corrector(z *[2]CategorySet, v []uint16, vLength, unreliableCount uint16, scratch *Scratch) (ReturnCode, uint16) {
	if z[High].ClusterSize == 0 || z[Low].ClusterSize == 0 {
		return CodeNoCluster, 0
	}
	vStartInd := uint16(1)
	vStopInd := vLength
	relDeltaMax := uint16(0)

	// 2.2.1 outlier correction: merged top-down pass over reliable outliers
	if z[High].OutlierSize > 0 || z[Low].OutlierSize > 0 {
		if uint16(z[High].OutlierSize)+uint16(z[Low].OutlierSize) > nm {
			return CodeMergedOutlierSizeError, relDeltaMax
		}
		mOutlierInd := &scratch.mOutlier
		mOutlierSize := mergeSorted(
			z[High].OutlierInd[:z[High].OutlierSize],
			z[Low].OutlierInd[:z[Low].OutlierSize],
			mOutlierInd[:],
		)

		if mOutlierSize > 0 {
			for mInd := mOutlierSize - 1; mInd >= 0; mInd-- {
				currVInd := mOutlierInd[mInd]
				currPol := Polarity(currVInd & lsb)

				if v[currVInd] > z[currPol].SeparatorBarrier {
					// top-outlier, treated like a resistant outlier
					continue
				}

				flag := false
				vSum := int32(v[currVInd])
				tCenterSum := int32(0)
				var prevCenter, nextCenter, currCenter uint16

				prevVInd := currVInd - 1
				if prevVInd >= vStartInd {
					_, prevCenter, flag = classify(&z[Polarity(prevVInd&lsb)], v[prevVInd], OptQuarter)
					tCenterSum += int32(prevCenter)
					vSum += int32(v[prevVInd])
				}
				nextVInd := currVInd + 1
				if nextVInd <= vStopInd {
					_, c, ok := classify(&z[Polarity(nextVInd&lsb)], v[nextVInd], OptQuarter)
					nextCenter = c
					flag = ok && flag
					tCenterSum += int32(nextCenter)
					vSum += int32(v[nextVInd])
				}
				_, c, ok := classify(&z[currPol], v[currVInd], OptQuarter)
				currCenter = c
				flag = ok || flag

				relDeltaResistant := uint16(1000 * abs32(vSum-(tCenterSum+int32(v[currVInd]))) / vSum)
				relDeltaCorrectable := uint16(1000 * abs32(vSum-(tCenterSum+int32(currCenter))) / vSum)

				if !flag || relDeltaResistant < relDeltaCorrectable {
					// resistant (true) outlier: keep it for aggregation
					continue
				}

				// correctable (false) outlier: overwrite with category centers
				if prevVInd >= vStartInd {
					v[prevVInd] = prevCenter & msb
				}
				v[currVInd] = currCenter & msb
				if nextVInd <= vStopInd {
					v[nextVInd] = nextCenter & msb
				}
				if relDeltaCorrectable > relDeltaMax {
					relDeltaMax = relDeltaCorrectable
				}
				mOutlierInd[mInd] = 0

				if mInd > 0 && mOutlierInd[mInd-1] == prevVInd {
					v[prevVInd] = prevCenter
					mOutlierInd[mInd-1] = 0
					mInd--
				}
			}

			// split the merged list back: surviving entries are the resistant outliers
			z[High].OutlierSize = 0
			z[Low].OutlierSize = 0
			for mInd := 0; mInd < mOutlierSize; mInd++ {
				currVInd := mOutlierInd[mInd]
				if currVInd == 0 {
					continue
				}
				pol := Polarity(currVInd & lsb)
				z[pol].OutlierInd[z[pol].OutlierSize] = currVInd
				z[pol].OutlierSize++
			}

			// 2.2.1.3 resistant outlier aggregation (level 2)
			if rc := aggregator(&z[High], v, 0); rc != CodeOK {
				return rc, relDeltaMax
			}
			if rc := aggregator(&z[Low], v, 0); rc != CodeOK {
				return rc, relDeltaMax
			}
		}
	}

	// 2.2.2 untrusted subsequence correction
	if unreliableCount > 0 {
		extractorInd := vStartInd + borderWidth
		var ssStartInd, ssStopInd uint16

		for extractor(v, vStopInd, &extractorInd, &ssStartInd, &ssStopInd) {
			ssLen := ssStopInd - ssStartInd + 1
			if ssLen < 4 || ssLen > 5 {
				return CodeSubsequenceLengthError, relDeltaMax
			}

			// unreliable top-values are considered reliable by sheer size
			for vInd := ssStartInd; vInd <= ssStopInd; vInd++ {
				pol := Polarity(vInd & lsb)
				if v[vInd] > z[pol].SeparatorBarrier {
					if z[pol].OutlierSize >= no {
						return CodeTooManyOutliers, relDeltaMax
					}
					z[pol].OutlierInd[z[pol].OutlierSize] = vInd
					z[pol].OutlierSize++
					if rc := aggregator(&z[pol], v, 0); rc != CodeOK {
						return rc, relDeltaMax
					}
				}
			}

			var ssCat [5]uint16
			ssInd := 0
			vSum := int32(0)
			catSum := int32(0)
			flag := true
			for vInd := ssStartInd; vInd <= ssStopInd; vInd++ {
				pol := Polarity(vInd & lsb)
				_, catVal, ok := classify(&z[pol], v[vInd], OptEighth)
				flag = ok && flag
				vSum += int32(v[vInd])
				catSum += int32(catVal)
				ssCat[ssInd] = catVal
				ssInd++
			}
			relDelta := uint16(1000 * abs32(vSum-catSum) / vSum)

			if flag {
				ssInd = 0
				for vInd := ssStartInd; vInd <= ssStopInd; vInd++ {
					v[vInd] = ssCat[ssInd]
					ssInd++
				}
			} else {
				midPol := Polarity((ssStartInd + 1) & lsb)
				ok, resorbRC := resorber(&z[midPol], v, ssCat[:], ssStartInd, ssStopInd, &relDelta)
				if !ok {
					if resorbRC != CodeOK {
						return resorbRC, relDeltaMax
					}
					ssInd = 0
					for vInd := ssStartInd; vInd <= ssStopInd; vInd++ {
						v[vInd] = ssCat[ssInd]
						ssInd++
					}
				}
			}

			if relDelta > relDeltaMax {
				relDeltaMax = relDelta
			}
		}
	}

	return CodeOK, relDeltaMax
}
