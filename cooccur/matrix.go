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

// Vocabulary is the deterministically ordered set of 3-character diagnosis
// codes kept for analysis. Column indices used everywhere downstream, and
// in particular the i < j orientation of reported pairs, refer to this
// lexicographic order.
type Vocabulary struct {
	Codes []string
	Index map[string]int
}

// IncidenceMatrix is a sparse binary patient x diagnosis matrix in
// compressed sparse row form. Row r covers Cols[RowPtr[r]:RowPtr[r+1]], the
// column indices of the diagnoses of patient r, sorted ascending. The dense
// equivalent is never materialized: vocabularies run into the thousands
// before filtering and patients into the hundreds of thousands.
type IncidenceMatrix struct {
	NofPatients int
	Vocab       *Vocabulary
	RowPtr      []int
	Cols        []int
	ColCounts   []int //patients per kept diagnosis column
}

// buildVocabulary computes the sorted union of all 3-character codes across
// patients. The sort fixes the column order so results are reproducible.
func buildVocabulary(patients []*PatientDiagnoses) []string {
	seen := map[string]bool{}
	for _, p := range patients {
		for _, code := range p.Codes3 {
			seen[code] = true
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// BuildIncidenceMatrix converts the consolidated 3-character diagnosis sets
// into a sparse binary incidence matrix over the sorted vocabulary, then
// drops diagnosis columns observed in fewer than minSupport patients. The
// kept columns preserve their relative order, so the filtered column order
// remains a stable sub-sequence of the full vocabulary order. Patients with
// no kept diagnoses remain as empty rows and still count in NofPatients.
func BuildIncidenceMatrix(patients []*PatientDiagnoses, minSupport int) *IncidenceMatrix {
	full := buildVocabulary(patients)
	// per-diagnosis patient counts over the full vocabulary
	fullIndex := make(map[string]int, len(full))
	for i, code := range full {
		fullIndex[code] = i
	}
	fullCounts := make([]int, len(full))
	for _, p := range patients {
		for _, code := range p.Codes3 {
			fullCounts[fullIndex[code]]++
		}
	}
	// retain columns meeting the support threshold, in the same order
	kept := make([]string, 0, len(full))
	keptCounts := make([]int, 0, len(full))
	for i, code := range full {
		if fullCounts[i] >= minSupport {
			kept = append(kept, code)
			keptCounts = append(keptCounts, fullCounts[i])
		}
	}
	vocab := &Vocabulary{Codes: kept, Index: make(map[string]int, len(kept))}
	for i, code := range kept {
		vocab.Index[code] = i
	}
	// build the CSR rows against the filtered vocabulary; Codes3 is sorted,
	// and the vocabulary order is lexicographic, so each row comes out sorted
	m := &IncidenceMatrix{
		NofPatients: len(patients),
		Vocab:       vocab,
		RowPtr:      make([]int, 1, len(patients)+1),
		ColCounts:   keptCounts,
	}
	for _, p := range patients {
		for _, code := range p.Codes3 {
			if col, ok := vocab.Index[code]; ok {
				m.Cols = append(m.Cols, col)
			}
		}
		m.RowPtr = append(m.RowPtr, len(m.Cols))
	}
	return m
}

// Row returns the column indices of patient r.
func (m *IncidenceMatrix) Row(r int) []int {
	return m.Cols[m.RowPtr[r]:m.RowPtr[r+1]]
}
