// EpiScope Envigado: Hospital Discharge Diagnosis Co-occurrence Analysis
// Copyright (c) 2025 Municipio de Envigado.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License along with this program. If not, see
// <https://github.com/chec0/EpiScopeEnvigado/blob/master/LICENSE.txt>.

package cooccur

import (
	"sort"
)

// PairCount is the number of patients A sharing the diagnosis pair (I, J),
// with I < J under the vocabulary order. A pair is represented exactly once.
type PairCount struct {
	I, J int
	A    int
}

// CountCooccurrences computes the strict upper triangle of the Gram product
// of the incidence matrix with itself: for every unordered diagnosis pair,
// the number of patients carrying both. The result is sparse; pairs that
// never co-occur are absent, not explicit zeroes. Because each CSR row is
// sorted, walking the ordered combinations within a row directly yields
// i < j without a post-hoc canonicalization step. Output is sorted by (I, J).
func CountCooccurrences(m *IncidenceMatrix) []PairCount {
	nofCols := len(m.Vocab.Codes)
	counts := map[int64]int{}
	for r := 0; r < m.NofPatients; r++ {
		row := m.Row(r)
		for x := 0; x < len(row); x++ {
			for y := x + 1; y < len(row); y++ {
				counts[int64(row[x])*int64(nofCols)+int64(row[y])]++
			}
		}
	}
	pairs := make([]PairCount, 0, len(counts))
	for key, a := range counts {
		pairs = append(pairs, PairCount{
			I: int(key / int64(nofCols)),
			J: int(key % int64(nofCols)),
			A: a,
		})
	}
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].I != pairs[y].I {
			return pairs[x].I < pairs[y].I
		}
		return pairs[x].J < pairs[y].J
	})
	return pairs
}
