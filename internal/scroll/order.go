package scroll

import (
	"bytes"
	"sort"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// orderAndConcat sorts pages by (index, asset_name) per spec.md §4.H
// step 4 — pages without an index sort after indexed ones, ties and
// missing indices fall back to asset_name — then concatenates their
// segments. A repeated index among indexed pages is an error.
func orderAndConcat(pages []chain.Page) ([]byte, error) {
	sorted := make([]chain.Page, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		aHas, bHas := a.Index >= 0, b.Index >= 0
		if aHas != bHas {
			return aHas // indexed pages sort before un-indexed ones
		}
		if aHas && bHas && a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.AssetName < b.AssetName
	})

	seen := map[int]string{}
	var buf bytes.Buffer
	for _, p := range sorted {
		if p.Index >= 0 {
			if other, dup := seen[p.Index]; dup && other != p.AssetName {
				return nil, &chain.MalformedError{Where: "scroll: duplicate page index " + p.AssetName + "/" + other}
			}
			seen[p.Index] = p.AssetName
		}
		for _, seg := range p.Segments {
			buf.Write(seg)
		}
	}
	return buf.Bytes(), nil
}
