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
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
)

//Hospitalization summary over the administrative RIPS columns: per admission
//route and per external cause, the number of discharge rows and the mean stay
//in days over the rows whose stay could be derived from the date columns.

// Administrative category labels of the hospitalization summary.
const (
	AdmissionRouteCategory = "VIA INGRESO"
	ExternalCauseCategory  = "CAUSA EXT"
)

// AdmissionSummaryRow aggregates the discharge rows of one administrative
// code: how many rows carry it and their mean stay in days. MeanStayDays is 0
// when none of the rows has a derivable stay.
type AdmissionSummaryRow struct {
	Category     string
	Code         string
	Description  string
	Rows         int
	MeanStayDays float64
}

type stayBucket struct {
	rows  int
	stays int
	days  int
}

func (b *stayBucket) add(record *Record) {
	b.rows++
	if record.StayDays >= 0 {
		b.stays++
		b.days += record.StayDays
	}
}

func (b *stayBucket) meanStay() float64 {
	if b.stays == 0 {
		return 0
	}
	return float64(b.days) / float64(b.stays)
}

// SummarizeAdmissions aggregates the cleaned discharge records per admission
// route and per external cause. Rows without the administrative value are
// skipped for that category. Routes come first, causes second, codes sorted
// within each category, so the summary is reproducible across runs.
func SummarizeAdmissions(records []*Record) []AdmissionSummaryRow {
	routes := map[string]*stayBucket{}
	causes := map[string]*stayBucket{}
	for _, record := range records {
		if record.AdmissionRoute != "" {
			bucket, ok := routes[record.AdmissionRoute]
			if !ok {
				bucket = &stayBucket{}
				routes[record.AdmissionRoute] = bucket
			}
			bucket.add(record)
		}
		if record.ExternalCause != "" {
			bucket, ok := causes[record.ExternalCause]
			if !ok {
				bucket = &stayBucket{}
				causes[record.ExternalCause] = bucket
			}
			bucket.add(record)
		}
	}
	rows := summaryRows(AdmissionRouteCategory, routes, AdmissionRouteDescription)
	return append(rows, summaryRows(ExternalCauseCategory, causes, ExternalCauseDescription)...)
}

func summaryRows(category string, buckets map[string]*stayBucket, describe func(string) string) []AdmissionSummaryRow {
	codes := make([]string, 0, len(buckets))
	for code := range buckets {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	rows := make([]AdmissionSummaryRow, 0, len(codes))
	for _, code := range codes {
		bucket := buckets[code]
		rows = append(rows, AdmissionSummaryRow{
			Category:     category,
			Code:         code,
			Description:  describe(code),
			Rows:         bucket.rows,
			MeanStayDays: bucket.meanStay(),
		})
	}
	return rows
}

// WriteAdmissionsSummary writes the hospitalization summary as a
// tab-separated table.
func WriteAdmissionsSummary(w io.Writer, records []*Record) error {
	if _, err := fmt.Fprintln(w, "Categoria\tCodigo\tDescripcion\tFilas\tEstancia_Media"); err != nil {
		return errors.Wrap(err, "writing admissions summary header")
	}
	for _, row := range SummarizeAdmissions(records) {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n",
			row.Category, row.Code, row.Description, row.Rows, row.MeanStayDays)
		if err != nil {
			return errors.Wrap(err, "writing admissions summary row")
		}
	}
	return nil
}

// WriteAdmissionsSummaryToFile writes the hospitalization summary to a file
// path.
func WriteAdmissionsSummaryToFile(records []*Record, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := WriteAdmissionsSummary(file, records); err != nil {
		file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "closing %s", path)
}
