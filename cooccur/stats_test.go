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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog map[string]string

func (s stubCatalog) Describe(code string) (string, bool) {
	desc, ok := s[code]
	return desc, ok
}

// hypertensionDiabetesCohort builds 100 patients where E11 occurs in 40,
// I10 in 30, and both in 20. The remaining 50 patients carry neither.
func hypertensionDiabetesCohort() *IncidenceMatrix {
	sets := make([][]string, 100)
	for i := range sets {
		switch {
		case i < 20:
			sets[i] = []string{"E11", "I10"}
		case i < 40:
			sets[i] = []string{"E11"}
		case i < 50:
			sets[i] = []string{"I10"}
		default:
			sets[i] = []string{}
		}
	}
	return BuildIncidenceMatrix(makePatients(sets...), 1)
}

func TestTestAssociationsContingencyStatistics(t *testing.T) {
	m := hypertensionDiabetesCohort()
	pairs := CountCooccurrences(m)
	require.Len(t, pairs, 1)
	require.Equal(t, 20, pairs[0].A)

	catalog := stubCatalog{"E11": "DIABETES MELLITUS TIPO 2", "I10": "HIPERTENSION ESENCIAL"}
	results := TestAssociations(m, pairs, catalog, 5)
	require.Len(t, results, 1)
	r := results[0]

	assert.Equal(t, "E11", r.Dx1)
	assert.Equal(t, "DIABETES MELLITUS TIPO 2", r.Desc1)
	assert.Equal(t, "I10", r.Dx2)
	assert.Equal(t, "HIPERTENSION ESENCIAL", r.Desc2)
	assert.Equal(t, 40, r.CountDx1)
	assert.Equal(t, 30, r.CountDx2)
	assert.Equal(t, 20, r.CountCooccurrence)

	// the uncorrected cells partition the cohort: a=20, b=20, c=10, d=50
	a := r.CountCooccurrence
	b := r.CountDx1 - a
	c := r.CountDx2 - a
	d := m.NofPatients - a - b - c
	assert.Equal(t, 20, b)
	assert.Equal(t, 10, c)
	assert.Equal(t, 50, d)
	assert.Equal(t, m.NofPatients, a+b+c+d)

	// adjusted cells 20.5/20.5/10.5/50.5
	assert.InDelta(t, 12.4593, r.Chi2, 1e-3)
	assert.InDelta(t, 0.000416, r.PValue, 2e-5)
	assert.InDelta(t, 4.80952, r.OR, 1e-4)
	assert.InDelta(t, 1.9483, r.CILower, 1e-3)
	assert.InDelta(t, 11.8749, r.CIUpper, 1e-3)

	// probabilities come from the uncorrected counts
	assert.InDelta(t, 0.2, r.PJoint, 1e-12)
	assert.InDelta(t, 0.5, r.PSecondGivenFirst, 1e-12)
	assert.InDelta(t, 20.0/30.0, r.PFirstGivenSecond, 1e-12)

	// the adjusted p-value is not attached at this stage
	assert.Zero(t, r.PValueAdj)
}

func TestTestAssociationsConfidenceIntervalBracketsOR(t *testing.T) {
	m := hypertensionDiabetesCohort()
	results := TestAssociations(m, CountCooccurrences(m), nil, 5)
	require.Len(t, results, 1)
	r := results[0]
	assert.Less(t, r.CILower, r.OR)
	assert.Less(t, r.OR, r.CIUpper)
	assert.Greater(t, r.CILower, 0.0)
}

func TestTestAssociationsSkipsPairsBelowMinCount(t *testing.T) {
	// the A09 pairs co-occur in 4 patients each, below the threshold of 5;
	// E11/I10 co-occur in 6 and survive
	patients := makePatients(
		[]string{"E11", "I10"},
		[]string{"E11", "I10"},
		[]string{"E11", "I10"},
		[]string{"E11", "A09"},
		[]string{"I10", "A09"},
		[]string{"A09", "E11", "I10"},
		[]string{"A09", "E11", "I10"},
		[]string{"A09", "E11", "I10"},
	)
	m := BuildIncidenceMatrix(patients, 1)
	pairs := CountCooccurrences(m)
	results := TestAssociations(m, pairs, nil, 5)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.CountCooccurrence, 5)
	}
	require.Len(t, results, 1)
	assert.Equal(t, "E11", results[0].Dx1)
	assert.Equal(t, "I10", results[0].Dx2)
	assert.Equal(t, 6, results[0].CountCooccurrence)
}

func TestTestAssociationsMissingCatalogEntry(t *testing.T) {
	m := hypertensionDiabetesCohort()
	catalog := stubCatalog{"E11": "DIABETES MELLITUS TIPO 2"}
	results := TestAssociations(m, CountCooccurrences(m), catalog, 5)
	require.Len(t, results, 1)
	assert.Equal(t, "DIABETES MELLITUS TIPO 2", results[0].Desc1)
	assert.Equal(t, NoDescription, results[0].Desc2)
}

func TestTestAssociationsNilCatalog(t *testing.T) {
	m := hypertensionDiabetesCohort()
	results := TestAssociations(m, CountCooccurrences(m), nil, 5)
	require.Len(t, results, 1)
	assert.Equal(t, NoDescription, results[0].Desc1)
	assert.Equal(t, NoDescription, results[0].Desc2)
}

// faultyCatalog panics when asked to describe one particular code, standing
// in for unforeseen failures inside a single pair's test.
type faultyCatalog struct {
	bad string
}

func (f faultyCatalog) Describe(code string) (string, bool) {
	if code == f.bad {
		panic("catalog lookup corrupted")
	}
	return "", false
}

func TestTestAssociationsIsolatesFailingPairs(t *testing.T) {
	// every pair of A09/E11/I10 co-occurs; both pairs involving E11 fail
	sets := make([][]string, 10)
	for i := range sets {
		sets[i] = []string{"A09", "E11", "I10"}
	}
	m := BuildIncidenceMatrix(makePatients(sets...), 1)
	pairs := CountCooccurrences(m)
	require.Len(t, pairs, 3)

	results := TestAssociations(m, pairs, faultyCatalog{bad: "E11"}, 1)
	// the poisoned pairs are skipped, the batch survives
	require.Len(t, results, 1)
	assert.Equal(t, "A09", results[0].Dx1)
	assert.Equal(t, "I10", results[0].Dx2)
	assert.Equal(t, NoDescription, results[0].Desc1)
	assert.Equal(t, NoDescription, results[0].Desc2)
	assert.Equal(t, 10, results[0].CountCooccurrence)
}

func TestTestAssociationsPreservesPairOrder(t *testing.T) {
	sets := make([][]string, 60)
	for i := range sets {
		switch {
		case i < 10:
			sets[i] = []string{"A09", "E11"}
		case i < 20:
			sets[i] = []string{"A09", "I10"}
		case i < 30:
			sets[i] = []string{"E11", "I10"}
		default:
			sets[i] = []string{"A09", "E11", "I10"}
		}
	}
	m := BuildIncidenceMatrix(makePatients(sets...), 1)
	pairs := CountCooccurrences(m)
	results := TestAssociations(m, pairs, nil, 1)
	require.Len(t, results, len(pairs))
	for i, pair := range pairs {
		assert.Equal(t, m.Vocab.Codes[pair.I], results[i].Dx1)
		assert.Equal(t, m.Vocab.Codes[pair.J], results[i].Dx2)
		assert.Equal(t, pair.A, results[i].CountCooccurrence)
	}
}
