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
	"math"

	"github.com/exascience/pargo/parallel"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// DescriptionCatalog resolves a 3-character diagnosis code to a
// human-readable description. It is supplied by an external catalog
// collaborator and treated as a read-only mapping.
type DescriptionCatalog interface {
	Describe(code string) (string, bool)
}

// NoDescription is the label reported for codes the catalog cannot resolve.
const NoDescription = "NO DEFINIDA"

// AssociationResult is one tested diagnosis pair with its full contingency
// statistics. PValueAdj is attached by the multiple-testing correction; all
// other fields are immutable after testing.
type AssociationResult struct {
	Dx1, Desc1        string
	Dx2, Desc2        string
	Chi2              float64
	PValue            float64
	OR                float64
	CILower           float64
	CIUpper           float64
	CountDx1          int
	CountDx2          int
	CountCooccurrence int
	PJoint            float64 //P(dx1 and dx2)
	PSecondGivenFirst float64 //P(dx2 | dx1)
	PFirstGivenSecond float64 //P(dx1 | dx2)
	PValueAdj         float64
}

var (
	chi2Dist = distuv.ChiSquared{K: 1}
	// two-sided 97.5th percentile of the standard normal, for the 95% CI
	zQuantile = distuv.UnitNormal.Quantile(0.975)
)

// describeOrDefault resolves a code through the catalog, falling back to the
// NoDescription placeholder. A missing catalog entry is never fatal.
func describeOrDefault(catalog DescriptionCatalog, code string) string {
	if catalog == nil {
		return NoDescription
	}
	if desc, ok := catalog.Describe(code); ok {
		return desc
	}
	return NoDescription
}

// testPair builds the 2x2 contingency table for one co-occurring pair and
// computes its statistics. With count_i and count_j the per-diagnosis patient
// totals and n the number of patients, the uncorrected cells are
// a (both), b = count_i - a (i only), c = count_j - a (j only), and
// d = n - a - b - c (neither), satisfying a + b + c + d = n. The
// Haldane-Anscombe adjustment adds 0.5 to every tested cell, so no cell can
// be zero and neither the chi-square nor the log-odds standard error can
// divide by zero.
func testPair(m *IncidenceMatrix, pair PairCount, catalog DescriptionCatalog) *AssociationResult {
	countI := m.ColCounts[pair.I]
	countJ := m.ColCounts[pair.J]
	n := m.NofPatients
	a := float64(pair.A) + 0.5
	b := float64(countI-pair.A) + 0.5
	c := float64(countJ-pair.A) + 0.5
	d := float64(n-countI-countJ+pair.A) + 0.5
	total := a + b + c + d
	// uncorrected chi-square on the adjusted table; the +0.5 already plays
	// the stabilizing role, so no Yates correction on top
	diff := a*d - b*c
	chi2 := total * diff * diff / ((a + b) * (c + d) * (a + c) * (b + d))
	pValue := chi2Dist.Survival(chi2)
	or := (a * d) / (b * c)
	seLogOR := math.Sqrt(1/a + 1/b + 1/c + 1/d)
	logOR := math.Log(or)
	result := &AssociationResult{
		Dx1:               m.Vocab.Codes[pair.I],
		Desc1:             describeOrDefault(catalog, m.Vocab.Codes[pair.I]),
		Dx2:               m.Vocab.Codes[pair.J],
		Desc2:             describeOrDefault(catalog, m.Vocab.Codes[pair.J]),
		Chi2:              chi2,
		PValue:            pValue,
		OR:                or,
		CILower:           math.Exp(logOR - zQuantile*seLogOR),
		CIUpper:           math.Exp(logOR + zQuantile*seLogOR),
		CountDx1:          countI,
		CountDx2:          countJ,
		CountCooccurrence: pair.A,
		PJoint:            float64(pair.A) / float64(n),
	}
	// conditional probabilities on uncorrected counts; report 0 rather than
	// dividing by a zero denominator
	if countI > 0 {
		result.PSecondGivenFirst = float64(pair.A) / float64(countI)
	}
	if countJ > 0 {
		result.PFirstGivenSecond = float64(pair.A) / float64(countJ)
	}
	return result
}

// TestAssociations computes contingency statistics for every co-occurring
// pair with at least minPairCount shared patients. Pairs are tested in
// parallel: each pair reads only the shared read-only counts and writes into
// its own positionally fixed slot, so the output order matches the input
// pair order regardless of scheduling. A panic while testing one pair skips
// that pair with a warning instead of aborting the batch.
func TestAssociations(m *IncidenceMatrix, pairs []PairCount, catalog DescriptionCatalog, minPairCount int) []*AssociationResult {
	slots := make([]*AssociationResult, len(pairs))
	parallel.Range(0, len(pairs), 0, func(low, high int) {
		for i := low; i < high; i++ {
			if pairs[i].A < minPairCount {
				continue
			}
			func(i int) {
				defer func() {
					if r := recover(); r != nil {
						logrus.WithFields(logrus.Fields{
							"dx1":   m.Vocab.Codes[pairs[i].I],
							"dx2":   m.Vocab.Codes[pairs[i].J],
							"panic": r,
						}).Warn("skipping diagnosis pair: statistical test failed")
					}
				}()
				slots[i] = testPair(m, pairs[i], catalog)
			}(i)
		}
	})
	results := make([]*AssociationResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	return results
}
