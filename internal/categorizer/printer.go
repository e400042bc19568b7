package categorizer

import (
	"fmt"
	"io"
)

// PrintSequence renders the categorized HIGH/LOW duration sequence: one
// character per element, plus a parallel reliability row per polarity.
// Special markers:
//
//	"!" unreliable value
//	"*" value at or above the polarity's separator barrier
//	"-" value below the center of the lowest cluster
//	"?" value does not belong to any category
//
// Category indices below 10 print as digits; higher indices print as
// lowercase letters starting at 'a'.
func PrintSequence(w io.Writer, z [2]CategorySet, v []uint16, length uint16) {
	stopInd := length
	if v[stopInd+1] != 0 && v[stopInd+2] != 0 {
		stopInd += 2
	}

	fmt.Fprint(w, "ind : 0")
	k := 0
	j := 2
	for vInd := uint16(0); vInd <= stopInd; vInd += 2 {
		if j == 10 {
			k++
			if k == 10 {
				k = 0
			}
			fmt.Fprintf(w, "%d", k)
			j = 2
		} else {
			j += 2
			fmt.Fprint(w, " ")
		}
	}
	fmt.Fprintln(w)

	printReliabilityRow(w, v, stopInd, High)

	fmt.Fprint(w, "HIGH: ")
	printCategoryRow(w, &z[High], v, stopInd, High)
	fmt.Fprintln(w)
	fmt.Fprint(w, "LOW : ")
	printCategoryRow(w, &z[Low], v, stopInd, Low)
	fmt.Fprintln(w)

	printReliabilityRow(w, v, stopInd, Low)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Categories")
	maxCats := z[High].ClusterSize + z[High].AggregSize2
	if other := z[Low].ClusterSize + z[Low].AggregSize2; other > maxCats {
		maxCats = other
	}
	fmt.Fprint(w, "ind : ")
	for c := uint8(0); c < maxCats; c++ {
		fmt.Fprintf(w, "\t%d", c)
	}
	fmt.Fprintln(w)

	printCategoryValues(w, "HIGH: ", &z[High])
	printCategoryValues(w, "LOW : ", &z[Low])
}

func printReliabilityRow(w io.Writer, v []uint16, stopInd uint16, pol Polarity) {
	fmt.Fprint(w, "    : ")
	start := 2 - uint16(pol)
	for vInd := start; vInd <= stopInd; vInd += 2 {
		if v[vInd] == 0 {
			fmt.Fprint(w, " ")
			continue
		}
		if v[vInd]&lsb == reliable {
			fmt.Fprint(w, " ")
		} else {
			fmt.Fprint(w, "!")
		}
	}
	fmt.Fprintln(w)
}

func printCategoryRow(w io.Writer, z *CategorySet, v []uint16, stopInd uint16, pol Polarity) {
	start := 2 - uint16(pol)
	for vInd := start; vInd <= stopInd; vInd += 2 {
		if v[vInd] == 0 {
			fmt.Fprint(w, " ")
			continue
		}
		if v[vInd] >= z.SeparatorBarrier {
			fmt.Fprint(w, "*")
			continue
		}
		catInd, catVal, near := classify(z, v[vInd], OptEighth)
		if near {
			if catInd < 10 {
				fmt.Fprintf(w, "%d", catInd)
			} else {
				fmt.Fprintf(w, "%c", 87+catInd)
			}
			continue
		}
		if catInd == 0 && v[vInd] < catVal {
			fmt.Fprint(w, "-")
		} else {
			fmt.Fprint(w, "?")
		}
	}
}

func printCategoryValues(w io.Writer, label string, z *CategorySet) {
	fmt.Fprint(w, label)
	for c := uint8(0); c < z.ClusterSize; c++ {
		fmt.Fprintf(w, "\t%d", z.Clusters[c].Center)
	}
	fmt.Fprint(w, ";")
	for a := uint8(0); a < z.AggregSize2; a++ {
		fmt.Fprintf(w, "\t%d", z.AggregCenter[a])
	}
	fmt.Fprintln(w)
}

// PrintCategories renders the clusters, outliers and aggregations of one
// polarity's category set, as a diagnostic companion to PrintSequence.
func PrintCategories(w io.Writer, z *CategorySet, v []uint16) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Clusters")
	fmt.Fprintln(w, "ind\tcount\tfloor\tcenter\tceil")
	for i := uint8(0); i < z.ClusterSize; i++ {
		c := z.Clusters[i]
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", i, c.Count, c.Floor, c.Center, c.Ceil)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "inlier count       :\t%d\n", z.InlierCount)
	fmt.Fprintf(w, "top-outlier barrier:\t%d\n", z.SeparatorBarrier)
	fmt.Fprintf(w, "outlier size       :\t%d\n", z.OutlierSize)
	if z.OutlierSize > 0 {
		fmt.Fprint(w, "outlier indices    :\t")
		for i := uint8(0); i < z.OutlierSize; i++ {
			fmt.Fprintf(w, "%d\t", z.OutlierInd[i])
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, "outlier values     :\t")
		for i := uint8(0); i < z.OutlierSize; i++ {
			fmt.Fprintf(w, "%d\t", v[z.OutlierInd[i]])
		}
		fmt.Fprintln(w)
	}
	if z.AggregSize2 > 0 {
		fmt.Fprint(w, "aggregation centers:\t")
		for i := uint8(0); i < z.AggregSize2; i++ {
			fmt.Fprintf(w, "%d\t", z.AggregCenter[i])
		}
		fmt.Fprintln(w)
	}
}
