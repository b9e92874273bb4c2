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

// Row is one hospital-discharge record as supplied by ingestion: a patient
// identifier and up to seven raw diagnosis field values, one per clinical
// role (admission, principal discharge, related discharge 1-3, complication,
// death). Fields may be empty.
type Row struct {
	PatientID string
	DxFields  []string
}

// PatientDiagnoses holds the consolidated diagnosis sets of one patient.
// Codes are unique and sorted; repeated mentions across visits and fields
// collapse to a single occurrence.
type PatientDiagnoses struct {
	ID     string
	Codes4 []string //unique 4-character codes
	Codes3 []string //unique 3-character codes, Z and R chapters excluded
}

// Consolidation is the result of folding all discharge rows per patient.
// Patients are ordered by ID so that every downstream structure, and
// ultimately every exported table, is reproducible across runs.
type Consolidation struct {
	Patients    []*PatientDiagnoses
	DroppedRows int //rows without a patient identifier
	RawMentions int //non-empty diagnosis fields seen before deduplication
}

// Consolidate groups the raw per-visit diagnosis fields by patient
// identifier into deduplicated diagnosis sets at 4- and 3-character
// granularity. Rows with an empty patient identifier are dropped and
// counted, never fatal. A patient whose fields are all empty still appears
// in the output with empty sets: they contribute to the total patient count.
func Consolidate(rows []Row) *Consolidation {
	sets4 := map[string]map[string]bool{}
	dropped := 0
	mentions := 0
	for _, row := range rows {
		if row.PatientID == "" {
			dropped++
			continue
		}
		set, ok := sets4[row.PatientID]
		if !ok {
			set = map[string]bool{}
			sets4[row.PatientID] = set
		}
		for _, field := range row.DxFields {
			code4, _, ok := NormalizeCode(field)
			if !ok {
				continue
			}
			mentions++
			set[code4] = true
		}
	}
	ids := make([]string, 0, len(sets4))
	for id := range sets4 {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	patients := make([]*PatientDiagnoses, 0, len(ids))
	for _, id := range ids {
		set4 := sets4[id]
		codes4 := make([]string, 0, len(set4))
		set3 := map[string]bool{}
		for code4 := range set4 {
			codes4 = append(codes4, code4)
			_, code3, _ := NormalizeCode(code4)
			if !ExcludedFrom3DigitAnalysis(code3) {
				set3[code3] = true
			}
		}
		codes3 := make([]string, 0, len(set3))
		for code3 := range set3 {
			codes3 = append(codes3, code3)
		}
		sort.Strings(codes4)
		sort.Strings(codes3)
		patients = append(patients, &PatientDiagnoses{ID: id, Codes4: codes4, Codes3: codes3})
	}
	return &Consolidation{Patients: patients, DroppedRows: dropped, RawMentions: mentions}
}
