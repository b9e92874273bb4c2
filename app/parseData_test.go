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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ripsSample = `ID,DIAGNOSTICO INGRESO,Cod_Dx_Ppal_Egreso,DIAG EGRESO REL 1,Fecha_Ingreso,Fecha_Egreso,CAUSA EXT,VIA INGRESO
PAC00001,I10,E11.9,,05/03/2023,08/03/2023,13,01
PAC00002,J18.9,J18.9,A09,12/06/2023,,,02
`

func TestReadRips(t *testing.T) {
	records, err := ReadRips(strings.NewReader(ripsSample))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "PAC00001", first.ID)
	require.Len(t, first.DxFields, len(DxColumns))
	assert.Equal(t, "I10", first.DxFields[0])
	assert.Equal(t, "E11.9", first.DxFields[1])
	assert.Equal(t, "", first.DxFields[2])
	// columns absent from the header read as empty
	assert.Equal(t, "", first.DxFields[6])
	assert.Equal(t, time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC), first.Admission)
	assert.Equal(t, time.Date(2023, 3, 8, 0, 0, 0, 0, time.UTC), first.Discharge)
	assert.Equal(t, "13", first.ExternalCause)
	assert.Equal(t, "01", first.AdmissionRoute)

	second := records[1]
	assert.Equal(t, "PAC00002", second.ID)
	assert.Equal(t, "A09", second.DxFields[2])
	assert.True(t, second.Discharge.IsZero())
	assert.Equal(t, -1, second.StayDays)
	assert.Equal(t, "", second.ExternalCause)
	assert.Equal(t, "02", second.AdmissionRoute)
}

func TestReadRipsHeaderCaseInsensitive(t *testing.T) {
	input := "id,diagnostico ingreso\nPAC00001,I10\n"
	records, err := ReadRips(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "PAC00001", records[0].ID)
	assert.Equal(t, "I10", records[0].DxFields[0])
}

func TestReadRipsSkipsByteOrderMark(t *testing.T) {
	input := "\xEF\xBB\xBFID,DIAGNOSTICO INGRESO\nPAC00001,I10\n"
	records, err := ReadRips(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "PAC00001", records[0].ID)
}

func TestReadRipsMissingIDColumn(t *testing.T) {
	input := "DIAGNOSTICO INGRESO,Cod_Dx_Ppal_Egreso\nI10,E11.9\n"
	_, err := ReadRips(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ID column")
}

func TestReadRipsEmptyInput(t *testing.T) {
	_, err := ReadRips(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestReadRipsToleratesShortRows(t *testing.T) {
	input := "ID,DIAGNOSTICO INGRESO,Cod_Dx_Ppal_Egreso\nPAC00001\n"
	records, err := ReadRips(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "PAC00001", records[0].ID)
	assert.Equal(t, "", records[0].DxFields[0])
}

func TestRows(t *testing.T) {
	records := []*Record{
		{ID: "PAC00001", DxFields: []string{"I10", "E11.9"}},
		{ID: "PAC00002", DxFields: []string{"J18.9"}},
	}
	rows := Rows(records)
	require.Len(t, rows, 2)
	assert.Equal(t, "PAC00001", rows[0].PatientID)
	assert.Equal(t, []string{"I10", "E11.9"}, rows[0].DxFields)
	assert.Equal(t, "PAC00002", rows[1].PatientID)
}

func TestParseRipsDate(t *testing.T) {
	expected := time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, expected, parseRipsDate("05/03/2023"))
	assert.Equal(t, expected, parseRipsDate("05-03-2023"))
	assert.Equal(t, expected, parseRipsDate("2023-03-05"))
	assert.True(t, parseRipsDate("").IsZero())
	assert.True(t, parseRipsDate("not a date").IsZero())
}
