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

package app

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/valyala/fastrand"
)

//Synthetic RIPS generator. Real RIPS extracts cannot leave the municipal
//network, so experiments and benchmarks run against generated tables with a
//similar shape: a handful of prevalent chronic conditions that co-occur, a
//long tail of rare codes, administrative Z/R codes, and dirty cells.

// simulatedDx is one diagnosis in the synthetic population with its
// prevalence per 1000 patients.
type simulatedDx struct {
	code      string
	perMille  uint32
	companion string //code frequently co-occurring with this one, if any
}

var simulatedPool = []simulatedDx{
	{code: "I10X", perMille: 280, companion: "E119"}, //hypertension
	{code: "E119", perMille: 160, companion: "N189"}, //type 2 diabetes
	{code: "N189", perMille: 70, companion: ""},      //chronic kidney disease
	{code: "J189", perMille: 90, companion: ""},      //pneumonia
	{code: "A090", perMille: 60, companion: ""},      //gastroenteritis
	{code: "I500", perMille: 50, companion: "I10X"},  //heart failure
	{code: "Z000", perMille: 120, companion: ""},     //excluded chapter
	{code: "R509", perMille: 80, companion: ""},      //excluded chapter
	{code: "C189", perMille: 8, companion: ""},       //below common thresholds
}

// SimulateRips writes a synthetic RIPS CSV with the given number of
// patients. Each patient gets one to three discharge rows; diagnoses are
// drawn independently per prevalence, and companions are added with 60%
// probability to plant detectable associations. The generator is not
// seedable: fastrand trades reproducibility for speed, which is fine for
// smoke data.
func SimulateRips(path string, nofPatients int) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating synthetic RIPS file %s", path)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	header := append([]string{IDColumn}, DxColumns...)
	header = append(header, admissionDateColumn, dischargeDateColumn,
		externalCauseColumn, admissionRouteColumn)
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "writing synthetic header")
	}
	var rng fastrand.RNG
	for p := 0; p < nofPatients; p++ {
		id := fmt.Sprintf("PAC%05d", p)
		codes := drawDiagnoses(&rng)
		rows := int(rng.Uint32n(3)) + 1
		for r := 0; r < rows; r++ {
			row := make([]string, len(DxColumns))
			for i, code := range spread(&rng, codes, len(DxColumns)) {
				row[i] = code
			}
			day := rng.Uint32n(28) + 1
			month := rng.Uint32n(12) + 1
			// hospitalizations are mostly general illness through the
			// emergency department, like the real extracts
			cause := "13"
			if rng.Uint32n(100) < 15 {
				cause = fmt.Sprintf("%02d", rng.Uint32n(15)+1)
			}
			route := fmt.Sprintf("%02d", rng.Uint32n(4)+1)
			record := append([]string{id}, row...)
			record = append(record,
				fmt.Sprintf("%02d/%02d/2023", day, month),
				fmt.Sprintf("%02d/%02d/2023", day, month),
				cause, route)
			if err := writer.Write(record); err != nil {
				return errors.Wrap(err, "writing synthetic row")
			}
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flushing synthetic RIPS file")
}

// drawDiagnoses samples a patient's diagnosis set from the pool.
func drawDiagnoses(rng *fastrand.RNG) []string {
	seen := map[string]bool{}
	var codes []string
	add := func(code string) {
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	for _, dx := range simulatedPool {
		if rng.Uint32n(1000) < dx.perMille {
			add(dx.code)
			if dx.companion != "" && rng.Uint32n(100) < 60 {
				add(dx.companion)
			}
		}
	}
	return codes
}

// spread distributes a patient's codes over the diagnosis fields in order,
// occasionally skipping a field to leave gaps like real extracts. Codes
// beyond the field count are dropped for this row; they usually reappear on
// the patient's other rows.
func spread(rng *fastrand.RNG, codes []string, fields int) []string {
	row := make([]string, fields)
	next := 0
	for _, code := range codes {
		if next >= fields {
			break
		}
		row[next] = code
		next++
		if next < fields-1 && rng.Uint32n(100) < 30 {
			next++
		}
	}
	return row
}
