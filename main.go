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

package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chec0/EpiScopeEnvigado/app"
	"github.com/chec0/EpiScopeEnvigado/cooccur"
	"github.com/chec0/EpiScopeEnvigado/warehouse"
	"github.com/sirupsen/logrus"
)

/*
Episcope computes statistically significant pairwise co-occurrences between
CIE-10 diagnosis codes from hospital-discharge (RIPS) records.

Usage:
	episcope ripsFile cie10File outputPath [flags]

Example:
	episcope RIPS_20232024_HOSP.csv cie10.csv ./results/ --minSupport 30
	--minCooccurrence 5 --alpha 0.05 --name envigado2024
	--dbURL postgres://episcope@localhost:5432/episcope

The flags are:

--minSupport nr
	The minimum number of patients a 3-character diagnosis needs before it is
	kept in the analysis vocabulary. Rare codes below this support produce
	unstable contingency tables and are filtered from the incidence matrix.
--minCooccurrence nr
	The minimum number of patients sharing a diagnosis pair before the pair is
	statistically tested. Pairs below this count are too sparse for a
	meaningful chi-square even with the continuity adjustment.
--alpha nr
	The significance cutoff applied to Benjamini-Hochberg adjusted p-values
	when selecting the exported associations.
--name string
	The name of the run. This is used to generate the names of the output
	files.
--dbURL string
	A PostgreSQL connection string. When given, the result tables are also
	loaded into the warehouse consumed by the dashboards.
--simulate nr
	Generate a synthetic RIPS table with the given number of patients at the
	ripsFile path before running the analysis on it. Useful for trying the
	tool without access to real discharge data.
--nrOfThreads nr
	The number of threads episcope uses.
*/

const (
	programVersion = 0.1
	programName    = "episcope"
)

func programMessage() string {
	return fmt.Sprint(programName, " version ", programVersion, " compiled with ", runtime.Version())
}

const episcopeHelp = "\nepiscope parameters:\n" +
	"episcope ripsFile cie10File outputPath \n" +
	"[--minSupport nr]\n" +
	"[--minCooccurrence nr]\n" +
	"[--alpha nr]\n" +
	"[--name string]\n" +
	"[--dbURL string]\n" +
	"[--simulate nr]\n" +
	"[--nrOfThreads nr]\n"

func parseFlags(flags flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(ioutil.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		x := 0
		if err != flag.ErrHelp {
			fmt.Fprint(os.Stderr, err)
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(x)
	}
	if flags.NArg() > 0 {
		fmt.Fprint(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

func getFileName(s, help string) string {
	switch s {
	case "-h", "--h", "-help", "--help":
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	return s
}

func main() {
	var (
		// required parameters
		ripsFile   string //The RIPS hospital-discharge table (CSV)
		cie10File  string //The CIE-10 description catalog (CSV)
		outputPath string //The path where output files are written
		// optional flags
		minSupport      int
		minCooccurrence int
		alpha           float64
		name            string
		dbURL           string
		simulate        int
		nrOfThreads     int
	)
	defaults := cooccur.DefaultConfig()
	var flags flag.FlagSet
	flags.IntVar(&minSupport, "minSupport", defaults.MinSupport, "The minimum number of patients "+
		"with a diagnosis for that diagnosis to be kept in the analysis vocabulary.")
	flags.IntVar(&minCooccurrence, "minCooccurrence", defaults.MinPairCount, "The minimum number "+
		"of patients sharing a diagnosis pair for that pair to be tested.")
	flags.Float64Var(&alpha, "alpha", defaults.Alpha, "The significance cutoff on adjusted "+
		"p-values for the exported associations.")
	flags.StringVar(&name, "name", "exp1", "The name of the run. This is used to generate the "+
		"names of the output files.")
	flags.StringVar(&dbURL, "dbURL", "", "A PostgreSQL connection string for loading the result "+
		"tables into the warehouse.")
	flags.IntVar(&simulate, "simulate", 0, "Generate a synthetic RIPS table with this many "+
		"patients at the ripsFile path before analyzing it.")
	flags.IntVar(&nrOfThreads, "nrOfThreads", 0, "The number of threads episcope uses.")
	// parse optional arguments
	parseFlags(flags, 4, episcopeHelp)
	// parse required arguments
	ripsFile = getFileName(os.Args[1], episcopeHelp)
	cie10File = getFileName(os.Args[2], episcopeHelp)
	outputPath, _ = filepath.Abs(getFileName(os.Args[3], episcopeHelp))
	outputPath = outputPath + string(filepath.Separator)
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
	}
	// create output directory
	if err := os.MkdirAll(filepath.Dir(outputPath), 0700); err != nil {
		logrus.Fatal(err)
	}
	logrus.Info(programMessage())
	logrus.WithFields(logrus.Fields{
		"rips":            ripsFile,
		"cie10":           cie10File,
		"output":          outputPath,
		"minSupport":      minSupport,
		"minCooccurrence": minCooccurrence,
		"alpha":           alpha,
		"name":            name,
	}).Info("starting run")

	//0. Optionally generate a synthetic RIPS table
	if simulate > 0 {
		logrus.WithField("patients", simulate).Info("generating synthetic RIPS table")
		if err := app.SimulateRips(ripsFile, simulate); err != nil {
			logrus.Fatal(err)
		}
	}

	//1. Parse inputs
	records, err := app.ParseRipsData(ripsFile)
	if err != nil {
		logrus.Fatal(err)
	}
	app.Clean(records)
	catalog, err := app.ParseCie10Catalog(cie10File)
	if err != nil {
		logrus.Fatal(err)
	}

	//2. Run the co-occurrence pipeline
	cfg := cooccur.Config{MinSupport: minSupport, MinPairCount: minCooccurrence, Alpha: alpha}
	analysis, err := cooccur.Run(app.Rows(records), catalog, cfg)
	if err != nil {
		logrus.Fatal(err)
	}

	//3. Export the result tables
	patients := analysis.Consolidation.Patients
	consolidatedFile := filepath.Join(outputPath, fmt.Sprintf("%s_consolidado_por_usuario_4dig.tsv", name))
	if err := cooccur.WriteConsolidatedToFile(patients, consolidatedFile); err != nil {
		logrus.Fatal(err)
	}
	frequencyFile := filepath.Join(outputPath, fmt.Sprintf("%s_frecuencia_diagnosticos_CIE4.tsv", name))
	if err := cooccur.WriteFrequencySummaryToFile(patients, catalog, catalog.Catalog4(), frequencyFile); err != nil {
		logrus.Fatal(err)
	}
	significantFile := filepath.Join(outputPath, fmt.Sprintf("%s_coocurrencias_significativas.tsv", name))
	if err := cooccur.WriteAssociationsToFile(analysis.Significant, significantFile); err != nil {
		logrus.Fatal(err)
	}
	admissionsFile := filepath.Join(outputPath, fmt.Sprintf("%s_resumen_hospitalizacion.tsv", name))
	if err := app.WriteAdmissionsSummaryToFile(records, admissionsFile); err != nil {
		logrus.Fatal(err)
	}
	logrus.WithFields(logrus.Fields{
		"consolidated": consolidatedFile,
		"frequencies":  frequencyFile,
		"significant":  significantFile,
		"admissions":   admissionsFile,
	}).Info("exported result tables")
	printTopAssociations(analysis.Significant, 20)

	//4. Optionally load the warehouse
	if dbURL != "" {
		ctx := context.Background()
		loader, err := warehouse.Connect(ctx, dbURL)
		if err != nil {
			logrus.Fatal(err)
		}
		defer loader.Close()
		if err := warehouse.CreateSchema(ctx, loader); err != nil {
			logrus.Fatal(err)
		}
		if err := warehouse.LoadDimensions(ctx, loader, app.ExternalCauses(), app.AdmissionRoutes()); err != nil {
			logrus.Fatal(err)
		}
		if _, err := warehouse.LoadAssociations(ctx, loader, analysis.Significant); err != nil {
			logrus.Fatal(err)
		}
		if _, err := warehouse.LoadConsolidated(ctx, loader, patients); err != nil {
			logrus.Fatal(err)
		}
		frequencies := cooccur.DiagnosisFrequencies(patients, catalog, catalog.Catalog4())
		if _, err := warehouse.LoadFrequencies(ctx, loader, frequencies); err != nil {
			logrus.Fatal(err)
		}
	}
}

// printTopAssociations prints the strongest associations to standard output
// for a quick look at the run.
func printTopAssociations(results []*cooccur.AssociationResult, max int) {
	if len(results) < max {
		max = len(results)
	}
	fmt.Println("Top significant associations:")
	for i := 0; i < max; i++ {
		r := results[i]
		fmt.Printf("%s (%s) <-> %s (%s): OR=%.3f [%.3f, %.3f], n=%d, p_adj=%.5f\n",
			r.Dx1, r.Desc1, r.Dx2, r.Desc2, r.OR, r.CILower, r.CIUpper,
			r.CountCooccurrence, r.PValueAdj)
	}
}
