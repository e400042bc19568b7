package categorizer

// insertionSort sorts s in ascending order in place. Ports the library's
// "sort" helper; it must stay a stable insertion sort, not sort.Slice,
// because the corrector's determinism depends on ties breaking the same
// way every run.
func insertionSort(s []uint16) {
	for i := 1; i < len(s); i++ {
		tmp := s[i]
		if s[i-1] > tmp {
			j := i
			for {
				s[j] = s[j-1]
				j--
				if j == 0 || s[j-1] <= tmp {
					break
				}
			}
			s[j] = tmp
		}
	}
}

// indexSort sorts ind in place so that v[ind[i]] is ascending, without
// touching v itself. Ports the library's "index_sort" helper, used only by
// the aggregator.
func indexSort(v []uint16, ind []uint16) {
	for i := 1; i < len(ind); i++ {
		tmpInd := ind[i]
		tmp := v[tmpInd]
		if v[ind[i-1]] > tmp {
			j := i
			for {
				ind[j] = ind[j-1]
				j--
				if j == 0 || v[ind[j-1]] <= tmp {
					break
				}
			}
			ind[j] = tmpInd
		}
	}
}

// mergeSorted merges two ascending arrays into dst (sized len(a)+len(b)) and
// returns the number of elements written. Ports the library's "merge"
// helper; doubles are not removed, matching the original (the corrector
// relies on being able to see an index twice if it legitimately appears in
// both polarity lists, which cannot happen since outlier indices already
// carry their own polarity in the LSB, but the helper itself makes no such
// assumption).
func mergeSorted(a, b []uint16, dst []uint16) int {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			dst[k] = a[i]
			i++
		} else {
			dst[k] = b[j]
			j++
		}
		k++
	}
	for i < len(a) {
		dst[k] = a[i]
		i++
		k++
	}
	for j < len(b) {
		dst[k] = b[j]
		j++
		k++
	}
	return k
}
