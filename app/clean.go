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
	"regexp"
	"strings"
	"time"

	"github.com/chec0/EpiScopeEnvigado/cooccur"
	"github.com/sirupsen/logrus"
)

//Data-quality validation of the discharge records. Anomalies are counted and
//repaired locally; cleaning never rejects the batch. Only the absence of the
//patient-identifier column (detected at parse time) is fatal.

var (
	// patient identifiers are pseudonymized as PAC followed by five digits
	patientIDRe = regexp.MustCompile(`^PAC\d{5}$`)
	// CIE-10 syntax: letter (U excluded from chapter range), two
	// alphanumerics, optional sub-category after the decimal separator
	cie10Re = regexp.MustCompile(`^[A-TV-Z][0-9][0-9A-Z](\.[0-9A-Z]{1,2})?$`)
)

// CleaningReport counts the anomalies observed while validating a batch of
// RIPS records.
type CleaningReport struct {
	Rows           int
	InvalidIDs     int //identifiers that do not match the PAC##### shape
	MalformedCodes int //non-empty diagnosis fields failing CIE-10 syntax
	RepairedDates  int //future or out-of-order dates reset to missing
}

// ValidPatientID reports whether an identifier has the pseudonymized RIPS
// shape used by the Envigado extracts.
func ValidPatientID(id string) bool {
	return patientIDRe.MatchString(id)
}

// ValidCie10Code reports whether a raw diagnosis value is syntactically
// valid CIE-10, before normalization.
func ValidCie10Code(code string) bool {
	return cie10Re.MatchString(code)
}

// Clean validates and repairs a batch of RIPS records in place and returns
// the report. Identifiers are uppercased and trimmed; malformed identifiers
// and codes are counted but kept, since the normalizer downstream recovers
// them. Dates in the future, or discharges before admission, are reset to
// missing; the stay duration in days is derived where both dates survive.
func Clean(records []*Record) *CleaningReport {
	report := &CleaningReport{Rows: len(records)}
	today := time.Now()
	for _, record := range records {
		record.ID = strings.ToUpper(strings.TrimSpace(record.ID))
		if record.ID != "" && !ValidPatientID(record.ID) {
			report.InvalidIDs++
		}
		for i, dx := range record.DxFields {
			dx = strings.ToUpper(strings.TrimSpace(dx))
			record.DxFields[i] = dx
			// missing-value markers are not malformed codes
			if _, _, ok := cooccur.NormalizeCode(dx); ok && !ValidCie10Code(dx) {
				report.MalformedCodes++
			}
		}
		record.ExternalCause = CanonicalAdminCode(record.ExternalCause)
		record.AdmissionRoute = CanonicalAdminCode(record.AdmissionRoute)
		if !record.Admission.IsZero() && record.Admission.After(today) {
			record.Admission = time.Time{}
			report.RepairedDates++
		}
		if !record.Discharge.IsZero() && record.Discharge.After(today) {
			record.Discharge = time.Time{}
			report.RepairedDates++
		}
		if !record.Admission.IsZero() && !record.Discharge.IsZero() &&
			record.Discharge.Before(record.Admission) {
			record.Discharge = time.Time{}
			report.RepairedDates++
		}
		if !record.Admission.IsZero() && !record.Discharge.IsZero() {
			record.StayDays = int(record.Discharge.Sub(record.Admission).Hours() / 24)
		} else {
			record.StayDays = -1
		}
	}
	if report.InvalidIDs > 0 || report.MalformedCodes > 0 || report.RepairedDates > 0 {
		logrus.WithFields(logrus.Fields{
			"rows":           report.Rows,
			"invalidIDs":     report.InvalidIDs,
			"malformedCodes": report.MalformedCodes,
			"repairedDates":  report.RepairedDates,
		}).Warn("data-quality anomalies recovered during cleaning")
	}
	return report
}
