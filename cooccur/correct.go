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

// BenjaminiHochberg adjusts raw p-values with the Benjamini-Hochberg false
// discovery rate procedure. The returned slice is positionally aligned with
// the input: adjusted[i] belongs to pvalues[i]. Adjusted values are
// non-decreasing as raw p-values increase and never smaller than the raw
// value.
func BenjaminiHochberg(pvalues []float64) []float64 {
	m := len(pvalues)
	if m == 0 {
		return nil
	}
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool {
		return pvalues[order[x]] < pvalues[order[y]]
	})
	// p(k) * m / k for 1-indexed rank k, then a running minimum from the
	// largest rank down enforces monotonicity
	adjusted := make([]float64, m)
	runningMin := 1.0
	for k := m; k >= 1; k-- {
		adj := pvalues[order[k-1]] * float64(m) / float64(k)
		if adj > 1 {
			adj = 1
		}
		if adj < runningMin {
			runningMin = adj
		}
		adjusted[order[k-1]] = runningMin
	}
	return adjusted
}

// AttachAdjustedPValues runs the correction over the full result list and
// stores the adjusted p-value on each result. The pairing is by position,
// which is why the raw p-values are taken from the results in their original
// order. No result is dropped here; thresholding is a downstream concern.
func AttachAdjustedPValues(results []*AssociationResult) {
	if len(results) == 0 {
		return
	}
	pvalues := make([]float64, len(results))
	for i, r := range results {
		pvalues[i] = r.PValue
	}
	adjusted := BenjaminiHochberg(pvalues)
	for i, r := range results {
		r.PValueAdj = adjusted[i]
	}
}
