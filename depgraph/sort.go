package depgraph

import "sort"

func sortStrings(ss []string) {
	sort.Slice(ss, func(i, j int) bool { return ss[i] < ss[j] })
}

func sortRelTypes(rts []RelType) {
	sort.Slice(rts, func(i, j int) bool { return rts[i] < rts[j] })
}
