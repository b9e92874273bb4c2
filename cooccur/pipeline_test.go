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
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cohortRows builds discharge rows for the cohort of the statistics tests:
// 100 patients, 40 with E11, 30 with I10, 20 with both.
func cohortRows() []Row {
	rows := make([]Row, 100)
	for i := range rows {
		var fields []string
		switch {
		case i < 20:
			fields = []string{"E11.9", "I10"}
		case i < 40:
			fields = []string{"E11.9"}
		case i < 50:
			fields = []string{"I10"}
		default:
			fields = []string{""}
		}
		rows[i] = Row{PatientID: fmt.Sprintf("PAC%05d", i), DxFields: fields}
	}
	return rows
}

func TestRunFullPipeline(t *testing.T) {
	cfg := Config{MinSupport: 10, MinPairCount: 5, Alpha: 0.05}
	analysis, err := Run(cohortRows(), stubCatalog{"E11": "DIABETES", "I10": "HIPERTENSION"}, cfg)
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Len(t, analysis.Consolidation.Patients, 100)
	assert.Equal(t, []string{"E11", "I10"}, analysis.Matrix.Vocab.Codes)
	require.Len(t, analysis.Pairs, 1)
	require.Len(t, analysis.Results, 1)
	r := analysis.Results[0]
	// the single tested pair keeps its raw p-value after correction
	assert.Equal(t, r.PValue, r.PValueAdj)
	require.Len(t, analysis.Significant, 1)
	assert.Same(t, r, analysis.Significant[0])
}

func TestRunEmptyInputFails(t *testing.T) {
	_, err := Run(nil, nil, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty input table")
}

func TestRunNoIdentifiedPatientsFails(t *testing.T) {
	rows := []Row{
		{PatientID: "", DxFields: []string{"I10"}},
		{PatientID: "", DxFields: []string{"E11.9"}},
	}
	_, err := Run(rows, nil, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patient identifier")
}

func TestRunShortCircuitsOnEmptyVocabulary(t *testing.T) {
	rows := []Row{
		{PatientID: "PAC00001", DxFields: []string{"I10"}},
		{PatientID: "PAC00002", DxFields: []string{"E11.9"}},
	}
	analysis, err := Run(rows, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, analysis.Consolidation.Patients, 2)
	assert.Empty(t, analysis.Matrix.Vocab.Codes)
	assert.Empty(t, analysis.Pairs)
	assert.Empty(t, analysis.Results)
	assert.Empty(t, analysis.Significant)
}

func TestRunShortCircuitsOnNoCooccurrences(t *testing.T) {
	// both codes meet support but never share a patient
	rows := make([]Row, 20)
	for i := range rows {
		code := "I10"
		if i%2 == 0 {
			code = "E11.9"
		}
		rows[i] = Row{PatientID: fmt.Sprintf("PAC%05d", i), DxFields: []string{code}}
	}
	analysis, err := Run(rows, nil, Config{MinSupport: 5, MinPairCount: 5, Alpha: 0.05})
	require.NoError(t, err)
	assert.Len(t, analysis.Matrix.Vocab.Codes, 2)
	assert.Empty(t, analysis.Pairs)
	assert.Empty(t, analysis.Results)
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := Config{MinSupport: 10, MinPairCount: 5, Alpha: 0.05}
	catalog := stubCatalog{"E11": "DIABETES", "I10": "HIPERTENSION"}
	var exports [2]bytes.Buffer
	for i := 0; i < 2; i++ {
		analysis, err := Run(cohortRows(), catalog, cfg)
		require.NoError(t, err)
		require.NoError(t, WriteAssociations(&exports[i], analysis.Significant))
		require.NoError(t, WriteConsolidated(&exports[i], analysis.Consolidation.Patients))
	}
	assert.Equal(t, exports[0].String(), exports[1].String())
}

func TestFilterSignificant(t *testing.T) {
	results := []*AssociationResult{
		{Dx1: "A09", Dx2: "E11", PValueAdj: 0.01},
		{Dx1: "A09", Dx2: "I10", PValueAdj: 0.05}, // boundary: strictly below only
		{Dx1: "E11", Dx2: "I10", PValueAdj: 0.049},
		{Dx1: "E11", Dx2: "J18", PValueAdj: 0.9},
	}
	significant := FilterSignificant(results, 0.05)
	require.Len(t, significant, 2)
	assert.Same(t, results[0], significant[0])
	assert.Same(t, results[2], significant[1])
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.MinSupport)
	assert.Equal(t, 5, cfg.MinPairCount)
	assert.Equal(t, 0.05, cfg.Alpha)
}
