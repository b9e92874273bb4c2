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
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chec0/EpiScopeEnvigado/cooccur"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//The app package ingests the inputs of the analysis: the RIPS
//hospital-discharge table and the CIE-10 description catalog. RIPS (Registro
//Individual de Prestación de Servicios de Salud) is the Colombian national
//billing record format; each row is one discharge with up to seven diagnosis
//fields, one per clinical role.

// IDColumn is the patient-identifier column of the RIPS table. Without it
// the analysis cannot run.
const IDColumn = "ID"

// DxColumns lists the RIPS diagnosis columns in clinical-role order:
// admission, principal discharge, related discharge 1-3, complication,
// death.
var DxColumns = []string{
	"DIAGNOSTICO INGRESO",
	"Cod_Dx_Ppal_Egreso",
	"DIAG EGRESO REL 1",
	"DIAG EGRESO REL 2",
	"DIAG EGRESO REL 3",
	"DIAG COMPLICACION",
	"DIAG MUERTE",
}

// Optional columns consumed by the cleaning and summary steps when present.
const (
	admissionDateColumn  = "Fecha_Ingreso"
	dischargeDateColumn  = "Fecha_Egreso"
	externalCauseColumn  = "CAUSA EXT"
	admissionRouteColumn = "VIA INGRESO"
)

// Record is one RIPS discharge row in typed form. Dates are zero when the
// source column is absent or unparseable; StayDays is -1 when either date is
// missing. ExternalCause and AdmissionRoute carry the raw administrative
// codes, empty when the column is absent.
type Record struct {
	ID             string
	DxFields       []string //aligned with DxColumns; empty string when missing
	Admission      time.Time
	Discharge      time.Time
	StayDays       int
	ExternalCause  string
	AdmissionRoute string
}

// ParseRipsData reads the RIPS discharge table from a CSV file.
func ParseRipsData(file string) ([]*Record, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "opening RIPS file %s", file)
	}
	defer f.Close()
	records, err := ReadRips(f)
	return records, errors.Wrapf(err, "parsing RIPS file %s", file)
}

// ReadRips parses the RIPS discharge table from a reader. The header row
// determines column positions; the patient-identifier column is mandatory
// and its absence is a configuration error. Diagnosis columns are optional
// individually, but a table with none of them carries no analyzable signal
// and is flagged with a warning.
func ReadRips(r io.Reader) ([]*Record, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty RIPS input: no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading RIPS header")
	}
	columnIndex := map[string]int{}
	for i, name := range header {
		columnIndex[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	idIdx, ok := columnIndex[strings.ToUpper(IDColumn)]
	if !ok {
		return nil, errors.Errorf("RIPS table has no %s column", IDColumn)
	}
	dxIdx := make([]int, len(DxColumns))
	nofDxColumns := 0
	for i, name := range DxColumns {
		if idx, ok := columnIndex[strings.ToUpper(name)]; ok {
			dxIdx[i] = idx
			nofDxColumns++
		} else {
			dxIdx[i] = -1
		}
	}
	if nofDxColumns == 0 {
		logrus.Warn("RIPS table has no diagnosis columns; consolidation will be empty")
	}
	admissionIdx, dischargeIdx := -1, -1
	if idx, ok := columnIndex[strings.ToUpper(admissionDateColumn)]; ok {
		admissionIdx = idx
	}
	if idx, ok := columnIndex[strings.ToUpper(dischargeDateColumn)]; ok {
		dischargeIdx = idx
	}
	causeIdx, routeIdx := -1, -1
	if idx, ok := columnIndex[strings.ToUpper(externalCauseColumn)]; ok {
		causeIdx = idx
	}
	if idx, ok := columnIndex[strings.ToUpper(admissionRouteColumn)]; ok {
		routeIdx = idx
	}
	var records []*Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading RIPS row")
		}
		record := &Record{
			ID:       field(row, idIdx),
			DxFields: make([]string, len(DxColumns)),
			StayDays: -1,
		}
		for i, idx := range dxIdx {
			record.DxFields[i] = field(row, idx)
		}
		record.Admission = parseRipsDate(field(row, admissionIdx))
		record.Discharge = parseRipsDate(field(row, dischargeIdx))
		record.ExternalCause = field(row, causeIdx)
		record.AdmissionRoute = field(row, routeIdx)
		records = append(records, record)
	}
	return records, nil
}

// Rows converts typed RIPS records to the row contract of the co-occurrence
// core: patient identifier plus raw diagnosis fields.
func Rows(records []*Record) []cooccur.Row {
	rows := make([]cooccur.Row, len(records))
	for i, record := range records {
		rows[i] = cooccur.Row{PatientID: record.ID, DxFields: record.DxFields}
	}
	return rows
}

// field returns the idx-th cell of a row, tolerating short rows and absent
// columns.
func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRipsDate parses the dd/mm/yyyy dates used by RIPS exports. ISO and
// dash-separated variants show up in some municipal extracts.
func parseRipsDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"02/01/2006", "02-01-2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// skipBOM drops a UTF-8 byte order mark when the export tool prepended one.
func skipBOM(r io.Reader) io.Reader {
	buffered := bufio.NewReader(r)
	bom, err := buffered.Peek(3)
	if err == nil && len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		buffered.Discard(3)
	}
	return buffered
}
