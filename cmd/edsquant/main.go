// Package main provides an offline quantification tool for EDS spectrum
// images. It builds a spectral dictionary from a metadata record, dumps it
// for external decomposition engines, and turns fitted factorizations into
// concentration reports, plots and HTML summaries.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/adriente/esmpy/internal/eds"
	"github.com/adriente/esmpy/internal/eds/render"
	"github.com/adriente/esmpy/internal/version"
)

// fittedFile is the on-disk exchange format for an external engine's
// result: row-major W (dictionary columns x phases) and H (phases x
// pixels) matrices.
type fittedFile struct {
	W [][]float64 `json:"w"`
	H [][]float64 `json:"h"`
}

func main() {
	metadataPath := flag.String("metadata", "", "Path to the dataset metadata JSON record (required)")
	elements := flag.String("elements", "", "Comma-separated element identifiers overriding the metadata record")
	mode := flag.String("mode", "bremsstrahlung", "Dictionary mode: identity, characteristic or bremsstrahlung")
	cutoffs := flag.String("cutoffs", "", "Reference cut-offs as elem=keV pairs, comma-separated (e.g. Cu=3.0)")
	stoichiometries := flag.String("stoichiometries", "", "Comma-separated compound formulas for extra columns (e.g. Fe2O3)")
	gOut := flag.String("g-out", "", "Write the built dictionary matrix as CSV")
	fitted := flag.String("fitted", "", "JSON file with fitted W and H matrices from an external engine")
	report := flag.Bool("report", false, "Print a concentration report for the fitted W")
	absolute := flag.Bool("abs", false, "Report absolute concentrations instead of relative")
	htmlOut := flag.String("html-out", "", "Write an HTML quantification report")
	plotOut := flag.String("plot-out", "", "Directory for PNG spectrum plots and abundance heatmaps")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("edsquant %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *metadataPath == "" {
		flag.Usage()
		log.Fatal("missing required -metadata flag")
	}

	meta, err := eds.LoadMetadata(*metadataPath)
	if err != nil {
		log.Fatalf("load metadata: %v", err)
	}

	pixels := meta.Spatial.Height * meta.Spatial.Width
	data := mat.NewDense(meta.Axis.Size, pixels, nil)
	spim, err := eds.NewSpectrumImage(data, meta.Spatial.Height, meta.Spatial.Width, meta)
	if err != nil {
		log.Fatalf("open dataset: %v", err)
	}

	if *elements != "" {
		if err := spim.SetElements(splitList(*elements)); err != nil {
			log.Fatalf("set elements: %v", err)
		}
	}

	dictMode, err := eds.ParseMode(*mode)
	if err != nil {
		log.Fatalf("parse mode: %v", err)
	}

	opts := eds.BuildOptions{Stoichiometries: splitList(*stoichiometries)}
	if opts.ReferenceCutoffs, err = parseCutoffs(*cutoffs); err != nil {
		log.Fatalf("parse cutoffs: %v", err)
	}

	run, err := eds.NewRun(*metadataPath, dictMode, opts)
	if err != nil {
		log.Fatalf("start run: %v", err)
	}
	log.Printf("run %s: building %s dictionary for %s", run.RunID, dictMode, *metadataPath)

	dict, err := spim.BuildDictionary(dictMode, opts)
	if err != nil {
		run.Finish("failed")
		log.Fatalf("build dictionary: %v", err)
	}
	log.Printf("run %s: dictionary has %d columns (%s)", run.RunID, dict.Columns(), strings.Join(dict.Elements(), ", "))

	if *gOut != "" {
		if err := writeMatrixCSV(*gOut, dict.Matrix()); err != nil {
			run.Finish("failed")
			log.Fatalf("write dictionary: %v", err)
		}
		log.Printf("run %s: wrote dictionary to %s", run.RunID, *gOut)
	}

	if *fitted != "" {
		if err := processFitted(spim, dict, *fitted, *report, *absolute, *htmlOut, *plotOut); err != nil {
			run.Finish("failed")
			log.Fatalf("process fitted result: %v", err)
		}
	}

	run.Finish("completed")
	log.Printf("run %s: completed in %s", run.RunID, run.Duration())
}

func processFitted(spim *eds.SpectrumImage, dict *eds.Dictionary, path string, report, absolute bool, htmlOut, plotOut string) error {
	fit, err := loadFitted(path)
	if err != nil {
		return err
	}
	if err := eds.ValidateFitShapes(fit, spim, dict); err != nil {
		return err
	}

	if report {
		if err := eds.WriteConcentrationReport(os.Stdout, dict, fit, eds.ReportOptions{Absolute: absolute}); err != nil {
			return fmt.Errorf("concentration report: %w", err)
		}
	}

	if htmlOut != "" || plotOut != "" {
		quant, err := spim.Quantify(dict, fit, eds.QuantifyOptions{})
		if err != nil {
			return fmt.Errorf("quantify: %w", err)
		}
		if htmlOut != "" {
			if err := render.WriteHTMLReport(htmlOut, quant); err != nil {
				return err
			}
		}
		if plotOut != "" {
			if err := writePlots(plotOut, spim, dict, fit); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePlots(dir string, spim *eds.SpectrumImage, dict *eds.Dictionary, fit *eds.FitResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}

	phases, _ := fit.H.Dims()
	names := make([]string, phases)
	for p := 0; p < phases; p++ {
		names[p] = fmt.Sprintf("p%d", p)
		file := filepath.Join(dir, fmt.Sprintf("spectrum_p%d.png", p))
		if err := render.PhaseSpectrumPlot(file, dict.Energies(), dict, fit.W, p); err != nil {
			return err
		}
	}
	return render.AbundanceHeatmaps(dir, fit.H, names, spim.Height, spim.Width)
}

func loadFitted(path string) (*eds.FitResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fitted file: %w", err)
	}
	var ff fittedFile
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("parse fitted file: %w", err)
	}

	w, err := denseFromRows(ff.W)
	if err != nil {
		return nil, fmt.Errorf("fitted W: %w", err)
	}
	h, err := denseFromRows(ff.H)
	if err != nil {
		return nil, fmt.Errorf("fitted H: %w", err)
	}
	return &eds.FitResult{W: w, H: h}, nil
}

func denseFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	cols := len(rows[0])
	flat := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(len(rows), cols, flat), nil
}

func writeMatrixCSV(path string, m *mat.Dense) error {
	if m == nil {
		return fmt.Errorf("identity mode has no dictionary matrix")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows, cols := m.Dims()
	record := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseCutoffs(s string) (map[string]float64, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]float64)
	for _, pair := range splitList(s) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed cutoff %q, want elem=keV", pair)
		}
		kev, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed cutoff energy %q: %w", val, err)
		}
		out[strings.TrimSpace(key)] = kev
	}
	return out, nil
}
