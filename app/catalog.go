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
	"io"
	"os"
	"strings"

	"github.com/chec0/EpiScopeEnvigado/cooccur"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Cie10Catalog maps CIE-10 codes to human-readable descriptions at 3- and
// 4-character granularity. It is read-only after parsing.
type Cie10Catalog struct {
	Desc3 map[string]string
	Desc4 map[string]string
}

// CIE-10 catalog columns, following the warehouse dimension table layout.
const (
	cie3CodeColumn = "cie_3cat"
	cie3DescColumn = "desc_3cat"
	cie4CodeColumn = "cie_4cat"
	cie4DescColumn = "desc_4cat"
)

// ParseCie10Catalog reads the CIE-10 catalog from a CSV file with columns
// cie_3cat, desc_3cat, cie_4cat, desc_4cat. Duplicate codes keep the first
// description seen, rows with an empty code or description are skipped.
func ParseCie10Catalog(file string) (*Cie10Catalog, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "opening CIE-10 catalog %s", file)
	}
	defer f.Close()
	catalog, err := ReadCie10Catalog(f)
	return catalog, errors.Wrapf(err, "parsing CIE-10 catalog %s", file)
}

// ReadCie10Catalog parses the CIE-10 catalog from a reader.
func ReadCie10Catalog(r io.Reader) (*Cie10Catalog, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty CIE-10 catalog: no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading catalog header")
	}
	columnIndex := map[string]int{}
	for i, name := range header {
		columnIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}
	code3Idx, ok3 := columnIndex[cie3CodeColumn]
	desc3Idx, okd3 := columnIndex[cie3DescColumn]
	if !ok3 || !okd3 {
		return nil, errors.Errorf("catalog has no %s/%s columns", cie3CodeColumn, cie3DescColumn)
	}
	code4Idx, ok4 := columnIndex[cie4CodeColumn]
	desc4Idx, okd4 := columnIndex[cie4DescColumn]
	if !ok4 || !okd4 {
		// 4-character descriptions only enrich the frequency summary
		code4Idx, desc4Idx = -1, -1
		logrus.Warnf("catalog has no %s/%s columns; 4-character descriptions unavailable", cie4CodeColumn, cie4DescColumn)
	}
	catalog := &Cie10Catalog{Desc3: map[string]string{}, Desc4: map[string]string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading catalog row")
		}
		addCatalogEntry(catalog.Desc3, field(row, code3Idx), field(row, desc3Idx))
		if code4Idx >= 0 {
			addCatalogEntry(catalog.Desc4, field(row, code4Idx), field(row, desc4Idx))
		}
	}
	return catalog, nil
}

func addCatalogEntry(dict map[string]string, code, desc string) {
	code = strings.ToUpper(code)
	if code == "" || desc == "" {
		return
	}
	if _, ok := dict[code]; !ok {
		dict[code] = desc
	}
}

// Describe resolves a 3-character code. Cie10Catalog satisfies the core's
// DescriptionCatalog interface at the category granularity.
func (c *Cie10Catalog) Describe(code string) (string, bool) {
	desc, ok := c.Desc3[code]
	return desc, ok
}

// Catalog4 returns a view of the catalog keyed by 4-character codes, for the
// frequency summary export.
func (c *Cie10Catalog) Catalog4() cooccur.DescriptionCatalog {
	return subCategoryCatalog{c}
}

type subCategoryCatalog struct {
	c *Cie10Catalog
}

func (s subCategoryCatalog) Describe(code string) (string, bool) {
	desc, ok := s.c.Desc4[code]
	return desc, ok
}

//Administrative RIPS catalogs. These code lists are fixed by the national
//RIPS specification, so they ship with the tool rather than with the data.

// NotDefined is the description for administrative codes outside the
// official catalogs.
const NotDefined = "NO DEFINIDA"

// externalCauses maps the RIPS CAUSA EXT code to its description.
var externalCauses = map[string]string{
	"01": "ACCIDENTE DE TRABAJO",
	"02": "ACCIDENTE DE TRÁNSITO",
	"03": "ACCIDENTE RÁBICO",
	"04": "ACCIDENTE OFÍDICO",
	"05": "OTRO TIPO DE ACCIDENTE",
	"06": "EVENTO CATASTRÓFICO",
	"07": "LESIÓN POR AGRESIÓN",
	"08": "LESIÓN AUTO INFLIGIDA",
	"09": "SOSPECHA DE MALTRATO FÍSICO",
	"10": "SOSPECHA DE ABUSO SEXUAL",
	"11": "SOSPECHA DE VIOLENCIA SEXUAL",
	"12": "SOSPECHA DE MALTRATO EMOCIONAL",
	"13": "ENFERMEDAD GENERAL",
	"14": "ENFERMEDAD PROFESIONAL",
	"15": "OTRA",
}

// admissionRoutes maps the RIPS VIA INGRESO code to its description.
var admissionRoutes = map[string]string{
	"01": "URGENCIAS",
	"02": "CONSULTA EXTERNA",
	"03": "REMITIDO",
	"04": "NACIDO EN LA INSTITUCIÓN",
}

// ExternalCauses returns a copy of the external-cause catalog, for seeding
// warehouse dimension tables.
func ExternalCauses() map[string]string {
	return copyCatalog(externalCauses)
}

// AdmissionRoutes returns a copy of the admission-route catalog.
func AdmissionRoutes() map[string]string {
	return copyCatalog(admissionRoutes)
}

func copyCatalog(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ExternalCauseDescription resolves a CAUSA EXT code, zero-padding
// single-digit codes the way the source systems emit them.
func ExternalCauseDescription(code string) string {
	return lookupPadded(externalCauses, code)
}

// AdmissionRouteDescription resolves a VIA INGRESO code.
func AdmissionRouteDescription(code string) string {
	return lookupPadded(admissionRoutes, code)
}

// CanonicalAdminCode trims an administrative code and zero-pads single
// digits the way the source systems emit them.
func CanonicalAdminCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) == 1 {
		code = "0" + code
	}
	return code
}

func lookupPadded(dict map[string]string, code string) string {
	if desc, ok := dict[CanonicalAdminCode(code)]; ok {
		return desc
	}
	return NotDefined
}
