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
	"strings"
)

//Diagnosis codes arrive as raw CIE-10 strings typed into seven different RIPS
//fields by hospital staff. Before any counting they are canonicalized to two
//granularities: a 4-character sub-category code (code4) and its 3-character
//category prefix (code3). The 3-character analysis additionally excludes the
//administrative chapters Z (factors influencing health status) and R
//(symptoms and abnormal findings), which do not represent diseases.

// missingValues lists field contents that mean "no diagnosis recorded". RIPS
// exports are not consistent about how they encode empty cells.
var missingValues = map[string]bool{
	"":     true,
	"NONE": true,
	"NAN":  true,
	"NULL": true,
	"NA":   true,
	"N/A":  true,
	"-":    true,
}

// NormalizeCode canonicalizes a raw diagnosis field value. It trims
// surrounding whitespace, uppercases, removes the decimal separator, and
// truncates to at most 4 characters. It returns the 4-character code, its
// 3-character prefix, and false when the value encodes a missing diagnosis.
func NormalizeCode(raw string) (code4, code3 string, ok bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if missingValues[code] {
		return "", "", false
	}
	code = strings.ReplaceAll(code, ".", "")
	if code == "" {
		return "", "", false
	}
	if len(code) > 4 {
		code = code[:4]
	}
	code4 = code
	if len(code) > 3 {
		code3 = code[:3]
	} else {
		code3 = code
	}
	return code4, code3, true
}

// ExcludedFrom3DigitAnalysis reports whether a 3-character category code
// belongs to a chapter that is left out of the co-occurrence analysis.
func ExcludedFrom3DigitAnalysis(code3 string) bool {
	if code3 == "" {
		return true
	}
	return code3[0] == 'Z' || code3[0] == 'R'
}
