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

// Package warehouse loads the exported analysis tables into the relational
// warehouse consumed by the dashboards. The loader is a boundary
// collaborator: it consumes finished result tables and never influences the
// statistics.
package warehouse

import (
	"context"
	"sort"
	"strings"

	"github.com/chec0/EpiScopeEnvigado/cooccur"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Loader wraps a PostgreSQL connection pool for pushing result tables.
type Loader struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection to the warehouse and verifies it.
func Connect(ctx context.Context, connStr string) (*Loader, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to warehouse")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging warehouse")
	}
	return &Loader{pool: pool}, nil
}

// Close releases the connection pool.
func (l *Loader) Close() {
	l.pool.Close()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS analisis_coocurrencias (
		dx1 TEXT NOT NULL,
		desc1 TEXT NOT NULL,
		dx2 TEXT NOT NULL,
		desc2 TEXT NOT NULL,
		chi2 DOUBLE PRECISION NOT NULL,
		p_value DOUBLE PRECISION NOT NULL,
		odds_ratio DOUBLE PRECISION NOT NULL,
		ic95_lower DOUBLE PRECISION NOT NULL,
		ic95_upper DOUBLE PRECISION NOT NULL,
		count_dx1 INTEGER NOT NULL,
		count_dx2 INTEGER NOT NULL,
		count_coocurrence INTEGER NOT NULL,
		p_conjunta DOUBLE PRECISION NOT NULL,
		p_b_dado_a DOUBLE PRECISION NOT NULL,
		p_a_dado_b DOUBLE PRECISION NOT NULL,
		p_value_adj DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (dx1, dx2)
	)`,
	`CREATE TABLE IF NOT EXISTS consolidado_4dig (
		id TEXT PRIMARY KEY,
		diagnosticos_4dig TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS frecuencia_diagnosticos (
		diagnostico TEXT PRIMARY KEY,
		pacientes INTEGER NOT NULL,
		desc_4dig TEXT NOT NULL,
		desc_3dig TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_causa_ext (
		causa_ext_id TEXT PRIMARY KEY,
		causa_ext_desc TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_via_ingreso (
		via_ingreso_id TEXT PRIMARY KEY,
		via_ingreso_desc TEXT NOT NULL
	)`,
}

// CreateSchema creates the warehouse tables when they do not exist yet.
func CreateSchema(ctx context.Context, l *Loader) error {
	for _, stmt := range schemaStatements {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "creating warehouse schema")
		}
	}
	return nil
}

// LoadDimensions seeds the administrative dimension tables from the fixed
// RIPS catalogs. Existing rows are replaced so catalog updates propagate.
func LoadDimensions(ctx context.Context, l *Loader, externalCauses, admissionRoutes map[string]string) error {
	if err := replaceDimension(ctx, l, "dim_causa_ext", "causa_ext_id", "causa_ext_desc", externalCauses); err != nil {
		return err
	}
	return replaceDimension(ctx, l, "dim_via_ingreso", "via_ingreso_id", "via_ingreso_desc", admissionRoutes)
}

func replaceDimension(ctx context.Context, l *Loader, table, idColumn, descColumn string, catalog map[string]string) error {
	if _, err := l.pool.Exec(ctx, "TRUNCATE "+table); err != nil {
		return errors.Wrapf(err, "truncating %s", table)
	}
	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	rows := make([][]interface{}, len(codes))
	for i, code := range codes {
		rows[i] = []interface{}{code, catalog[code]}
	}
	_, err := l.pool.CopyFrom(ctx, pgx.Identifier{table},
		[]string{idColumn, descColumn}, pgx.CopyFromRows(rows))
	return errors.Wrapf(err, "loading %s", table)
}

// LoadAssociations replaces the association table with the given results and
// returns the number of rows loaded.
func LoadAssociations(ctx context.Context, l *Loader, results []*cooccur.AssociationResult) (int64, error) {
	if _, err := l.pool.Exec(ctx, "TRUNCATE analisis_coocurrencias"); err != nil {
		return 0, errors.Wrap(err, "truncating analisis_coocurrencias")
	}
	n, err := l.pool.CopyFrom(ctx, pgx.Identifier{"analisis_coocurrencias"},
		associationColumns, pgx.CopyFromRows(associationRows(results)))
	if err != nil {
		return n, errors.Wrap(err, "loading analisis_coocurrencias")
	}
	logrus.WithField("rows", n).Info("loaded association table into warehouse")
	return n, nil
}

// LoadConsolidated replaces the consolidated per-patient table and returns
// the number of rows loaded.
func LoadConsolidated(ctx context.Context, l *Loader, patients []*cooccur.PatientDiagnoses) (int64, error) {
	if _, err := l.pool.Exec(ctx, "TRUNCATE consolidado_4dig"); err != nil {
		return 0, errors.Wrap(err, "truncating consolidado_4dig")
	}
	n, err := l.pool.CopyFrom(ctx, pgx.Identifier{"consolidado_4dig"},
		[]string{"id", "diagnosticos_4dig"}, pgx.CopyFromRows(consolidatedRows(patients)))
	if err != nil {
		return n, errors.Wrap(err, "loading consolidado_4dig")
	}
	logrus.WithField("rows", n).Info("loaded consolidated table into warehouse")
	return n, nil
}

// LoadFrequencies replaces the per-diagnosis frequency table and returns the
// number of rows loaded.
func LoadFrequencies(ctx context.Context, l *Loader, frequencies []cooccur.DiagnosisFrequency) (int64, error) {
	if _, err := l.pool.Exec(ctx, "TRUNCATE frecuencia_diagnosticos"); err != nil {
		return 0, errors.Wrap(err, "truncating frecuencia_diagnosticos")
	}
	n, err := l.pool.CopyFrom(ctx, pgx.Identifier{"frecuencia_diagnosticos"},
		[]string{"diagnostico", "pacientes", "desc_4dig", "desc_3dig"},
		pgx.CopyFromRows(frequencyRows(frequencies)))
	if err != nil {
		return n, errors.Wrap(err, "loading frecuencia_diagnosticos")
	}
	logrus.WithField("rows", n).Info("loaded frequency table into warehouse")
	return n, nil
}

var associationColumns = []string{
	"dx1", "desc1", "dx2", "desc2", "chi2", "p_value", "odds_ratio",
	"ic95_lower", "ic95_upper", "count_dx1", "count_dx2",
	"count_coocurrence", "p_conjunta", "p_b_dado_a", "p_a_dado_b",
	"p_value_adj",
}

// associationRows converts results to the positional row form CopyFrom
// expects, aligned with associationColumns.
func associationRows(results []*cooccur.AssociationResult) [][]interface{} {
	rows := make([][]interface{}, len(results))
	for i, r := range results {
		rows[i] = []interface{}{
			r.Dx1, r.Desc1, r.Dx2, r.Desc2, r.Chi2, r.PValue, r.OR,
			r.CILower, r.CIUpper, r.CountDx1, r.CountDx2,
			r.CountCooccurrence, r.PJoint, r.PSecondGivenFirst,
			r.PFirstGivenSecond, r.PValueAdj,
		}
	}
	return rows
}

func frequencyRows(frequencies []cooccur.DiagnosisFrequency) [][]interface{} {
	rows := make([][]interface{}, len(frequencies))
	for i, f := range frequencies {
		rows[i] = []interface{}{f.Code, f.Patients, f.Desc4, f.Desc3}
	}
	return rows
}

// consolidatedRows converts patients to positional rows, codes joined with
// commas in their sorted order.
func consolidatedRows(patients []*cooccur.PatientDiagnoses) [][]interface{} {
	rows := make([][]interface{}, len(patients))
	for i, p := range patients {
		rows[i] = []interface{}{p.ID, strings.Join(p.Codes4, ",")}
	}
	return rows
}
