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
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

//Exported tables are tab-separated so they can be handed as-is to the
//warehouse loader or opened in a spreadsheet. Statistics are rounded here,
//at the reporting boundary only: the correction step upstream always runs on
//full-precision p-values.

// AssociationHeader is the column contract of the association table.
var AssociationHeader = []string{
	"Dx1", "Desc1", "Dx2", "Desc2", "Chi2", "p_value", "OR",
	"IC95_Lower", "IC95_Upper", "count_dx1", "count_dx2",
	"count_coocurrence", "P_conjunta", "P_B_dado_A", "P_A_dado_B",
	"p_value_adj",
}

// WriteAssociations writes one line per association result with the columns
// of AssociationHeader.
func WriteAssociations(w io.Writer, results []*AssociationResult) error {
	if _, err := fmt.Fprintln(w, strings.Join(AssociationHeader, "\t")); err != nil {
		return errors.Wrap(err, "writing association header")
	}
	for _, r := range results {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3f\t%s\t%.3f\t%.3f\t%.3f\t%d\t%d\t%d\t%.5f\t%.5f\t%.5f\t%.5f\n",
			r.Dx1, r.Desc1, r.Dx2, r.Desc2, r.Chi2,
			strconv.FormatFloat(r.PValue, 'E', -1, 64),
			r.OR, r.CILower, r.CIUpper,
			r.CountDx1, r.CountDx2, r.CountCooccurrence,
			r.PJoint, r.PSecondGivenFirst, r.PFirstGivenSecond,
			r.PValueAdj)
		if err != nil {
			return errors.Wrap(err, "writing association row")
		}
	}
	return nil
}

// WriteConsolidated writes the per-patient consolidated 4-character
// diagnosis lists: one line per patient, codes comma-separated in sorted
// order.
func WriteConsolidated(w io.Writer, patients []*PatientDiagnoses) error {
	if _, err := fmt.Fprintln(w, "ID\tdiagnosticos_4dig"); err != nil {
		return errors.Wrap(err, "writing consolidated header")
	}
	for _, p := range patients {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", p.ID, strings.Join(p.Codes4, ",")); err != nil {
			return errors.Wrap(err, "writing consolidated row")
		}
	}
	return nil
}

// DiagnosisFrequency is one row of the frequency summary: a 4-character
// code, the number of distinct patients carrying it, and its catalog
// descriptions at both granularities.
type DiagnosisFrequency struct {
	Code     string
	Patients int
	Desc4    string
	Desc3    string
}

// DiagnosisFrequencies counts, for every 4-character code observed, the
// distinct patients carrying it and resolves the 4- and 3-character catalog
// descriptions. catalog4 may be nil when no sub-category catalog is
// available. Codes come out in descending patient count, ties broken by
// code, mirroring a frequency report sorted for reading.
func DiagnosisFrequencies(patients []*PatientDiagnoses, catalog3, catalog4 DescriptionCatalog) []DiagnosisFrequency {
	counts := map[string]int{}
	for _, p := range patients {
		for _, code := range p.Codes4 {
			counts[code]++
		}
	}
	frequencies := make([]DiagnosisFrequency, 0, len(counts))
	for code, n := range counts {
		_, code3, _ := NormalizeCode(code)
		frequencies = append(frequencies, DiagnosisFrequency{
			Code:     code,
			Patients: n,
			Desc4:    describeOrDefault(catalog4, code),
			Desc3:    describeOrDefault(catalog3, code3),
		})
	}
	sort.Slice(frequencies, func(x, y int) bool {
		if frequencies[x].Patients != frequencies[y].Patients {
			return frequencies[x].Patients > frequencies[y].Patients
		}
		return frequencies[x].Code < frequencies[y].Code
	})
	return frequencies
}

// WriteFrequencySummary writes the frequency summary of the given patients.
func WriteFrequencySummary(w io.Writer, patients []*PatientDiagnoses, catalog3, catalog4 DescriptionCatalog) error {
	if _, err := fmt.Fprintln(w, "Diagnostico\tPacientes\tDescripcion_4dig\tDescripcion_3dig"); err != nil {
		return errors.Wrap(err, "writing frequency header")
	}
	for _, f := range DiagnosisFrequencies(patients, catalog3, catalog4) {
		_, err := fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", f.Code, f.Patients, f.Desc4, f.Desc3)
		if err != nil {
			return errors.Wrap(err, "writing frequency row")
		}
	}
	return nil
}

// WriteAssociationsToFile writes the association table to a file path.
func WriteAssociationsToFile(results []*AssociationResult, path string) error {
	return writeToFile(path, func(w io.Writer) error {
		return WriteAssociations(w, results)
	})
}

// WriteConsolidatedToFile writes the consolidated patient table to a file
// path.
func WriteConsolidatedToFile(patients []*PatientDiagnoses, path string) error {
	return writeToFile(path, func(w io.Writer) error {
		return WriteConsolidated(w, patients)
	})
}

// WriteFrequencySummaryToFile writes the frequency summary to a file path.
func WriteFrequencySummaryToFile(patients []*PatientDiagnoses, catalog3, catalog4 DescriptionCatalog, path string) error {
	return writeToFile(path, func(w io.Writer) error {
		return WriteFrequencySummary(w, patients, catalog3, catalog4)
	})
}

func writeToFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "closing %s", path)
}
