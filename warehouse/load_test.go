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

package warehouse

import (
	"testing"

	"github.com/chec0/EpiScopeEnvigado/cooccur"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociationRows(t *testing.T) {
	results := []*cooccur.AssociationResult{{
		Dx1: "E11", Desc1: "DIABETES", Dx2: "I10", Desc2: "HIPERTENSION",
		Chi2: 12.459, PValue: 0.000416, OR: 4.8095,
		CILower: 1.9483, CIUpper: 11.8749,
		CountDx1: 40, CountDx2: 30, CountCooccurrence: 20,
		PJoint: 0.2, PSecondGivenFirst: 0.5, PFirstGivenSecond: 0.6667,
		PValueAdj: 0.000416,
	}}
	rows := associationRows(results)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(associationColumns))
	assert.Equal(t, "E11", rows[0][0])
	assert.Equal(t, "DIABETES", rows[0][1])
	assert.Equal(t, "I10", rows[0][2])
	assert.Equal(t, "HIPERTENSION", rows[0][3])
	assert.Equal(t, 12.459, rows[0][4])
	assert.Equal(t, 0.000416, rows[0][5])
	assert.Equal(t, 4.8095, rows[0][6])
	assert.Equal(t, 40, rows[0][9])
	assert.Equal(t, 30, rows[0][10])
	assert.Equal(t, 20, rows[0][11])
	assert.Equal(t, 0.000416, rows[0][15])
}

func TestFrequencyRows(t *testing.T) {
	frequencies := []cooccur.DiagnosisFrequency{
		{Code: "E119", Patients: 42, Desc4: "DIABETES SIN COMPLICACION", Desc3: "DIABETES MELLITUS"},
	}
	rows := frequencyRows(frequencies)
	require.Len(t, rows, 1)
	assert.Equal(t, []interface{}{"E119", 42, "DIABETES SIN COMPLICACION", "DIABETES MELLITUS"}, rows[0])
}

func TestConsolidatedRows(t *testing.T) {
	patients := []*cooccur.PatientDiagnoses{
		{ID: "PAC00001", Codes4: []string{"E119", "I10X"}},
		{ID: "PAC00002", Codes4: nil},
	}
	rows := consolidatedRows(patients)
	require.Len(t, rows, 2)
	assert.Equal(t, []interface{}{"PAC00001", "E119,I10X"}, rows[0])
	assert.Equal(t, []interface{}{"PAC00002", ""}, rows[1])
}
