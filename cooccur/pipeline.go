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
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config carries the tunable thresholds of the analysis.
type Config struct {
	MinSupport   int     //minimum patients per diagnosis to keep its column
	MinPairCount int     //minimum co-occurrence count to test a pair
	Alpha        float64 //significance cutoff on adjusted p-values
}

// DefaultConfig returns the thresholds used by the Envigado RIPS analysis.
func DefaultConfig() Config {
	return Config{MinSupport: 30, MinPairCount: 5, Alpha: 0.05}
}

// Analysis bundles the intermediate and final artifacts of one run. The
// pipeline is strictly linear: consolidated, matrix-built, counted, tested,
// corrected. Each stage reads only the artifacts of the previous one.
type Analysis struct {
	Config        Config
	Consolidation *Consolidation
	Matrix        *IncidenceMatrix
	Pairs         []PairCount
	Results       []*AssociationResult //all tested pairs, corrected
	Significant   []*AssociationResult //results with PValueAdj < Alpha
}

// Run executes the full co-occurrence pipeline over a row-oriented discharge
// table. An empty input table is a validation error and fails fast; an
// intermediate stage that comes up empty (no codes above the support
// threshold, no co-occurring pairs) short-circuits into an empty result set
// instead.
func Run(rows []Row, catalog DescriptionCatalog, cfg Config) (*Analysis, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty input table: no discharge rows to analyze")
	}
	analysis := &Analysis{Config: cfg}

	analysis.Consolidation = Consolidate(rows)
	if analysis.Consolidation.DroppedRows > 0 {
		logrus.WithField("rows", analysis.Consolidation.DroppedRows).
			Warn("dropped rows without patient identifier")
	}
	logrus.WithFields(logrus.Fields{
		"patients": len(analysis.Consolidation.Patients),
		"mentions": analysis.Consolidation.RawMentions,
	}).Info("consolidated diagnoses per patient")
	if len(analysis.Consolidation.Patients) == 0 {
		return nil, errors.New("no rows carry a patient identifier")
	}

	analysis.Matrix = BuildIncidenceMatrix(analysis.Consolidation.Patients, cfg.MinSupport)
	logrus.WithFields(logrus.Fields{
		"diagnoses":  len(analysis.Matrix.Vocab.Codes),
		"minSupport": cfg.MinSupport,
	}).Info("built incidence matrix")
	if len(analysis.Matrix.Vocab.Codes) == 0 {
		return analysis, nil
	}

	analysis.Pairs = CountCooccurrences(analysis.Matrix)
	logrus.WithField("pairs", len(analysis.Pairs)).Info("counted co-occurring diagnosis pairs")
	if len(analysis.Pairs) == 0 {
		return analysis, nil
	}

	analysis.Results = TestAssociations(analysis.Matrix, analysis.Pairs, catalog, cfg.MinPairCount)
	logrus.WithField("tested", len(analysis.Results)).Info("tested diagnosis pair associations")

	AttachAdjustedPValues(analysis.Results)
	analysis.Significant = FilterSignificant(analysis.Results, cfg.Alpha)
	logrus.WithFields(logrus.Fields{
		"significant": len(analysis.Significant),
		"alpha":       cfg.Alpha,
	}).Info("selected significant associations")
	return analysis, nil
}

// FilterSignificant selects the results whose adjusted p-value falls below
// the significance cutoff, preserving order.
func FilterSignificant(results []*AssociationResult, alpha float64) []*AssociationResult {
	significant := []*AssociationResult{}
	for _, r := range results {
		if r.PValueAdj < alpha {
			significant = append(significant, r)
		}
	}
	return significant
}
