// Package edxs implements the physics model behind the EDS spectral
// dictionary: characteristic emission synthesis, detector response,
// thin-film absorption and a parametric continuum basis.
package edxs

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/adriente/esmpy/internal/periodic"
)

// gaussianFWHM converts a FWHM to the Gaussian sigma.
const gaussianFWHM = 2.354820045

// Params collects everything needed to evaluate the physics model.
type Params struct {
	BeamKeV        float64          `json:"beam_kev"`
	Axis           EnergyAxis       `json:"axis"`
	WidthSlope     float64          `json:"width_slope"`     // FWHM slope, keV/keV
	WidthIntercept float64          `json:"width_intercept"` // FWHM at 0 keV, keV
	DBName         string           `json:"db_name,omitempty"`
	Detector       DetectorSpec     `json:"detector"`
	Abs            AbsorptionParams `json:"absorption"`

	// DB overrides DBName when non-nil, for externally supplied tables.
	DB LineDB `json:"-"`
}

// GSpec describes the columns of a dictionary build.
type GSpec struct {
	// Elements are symbols ("Fe") or compound formulas ("Fe2O3") in row
	// order. Order is preserved in the generated columns.
	Elements []string

	// ReferenceCutoffs maps a symbol to a cut-off energy in keV. Listed
	// elements are split into two columns ("_lo" below the cut-off,
	// "_hi" above) instead of one.
	ReferenceCutoffs map[string]float64

	// Stoichiometries are additional compound columns appended after the
	// element columns, each an atomic-ratio-weighted sum of its member
	// element spectra.
	Stoichiometries []string

	// WithBackground appends the two continuum basis columns.
	WithBackground bool
}

// Model evaluates characteristic spectra and builds dictionary matrices.
// A Model holds the column bookkeeping of its last build; callers that
// interleave builds must use one Model per dictionary.
type Model struct {
	params   Params
	db       LineDB
	det      *detector
	energies []float64

	// state recorded by the last BuildG
	spec          GSpec
	modelElements []string
	norms         []float64
}

// NewModel validates the parameters and prepares the detector response.
func NewModel(p Params) (*Model, error) {
	if err := p.Axis.Validate(); err != nil {
		return nil, err
	}
	if p.BeamKeV <= 0 {
		return nil, fmt.Errorf("beam energy must be positive, got %g keV", p.BeamKeV)
	}
	if p.WidthIntercept <= 0 {
		return nil, fmt.Errorf("width intercept must be positive, got %g keV", p.WidthIntercept)
	}
	db := p.DB
	if db == nil {
		var err error
		db, err = LoadLineDB(p.DBName)
		if err != nil {
			return nil, err
		}
	}
	det, err := newDetector(p.Detector)
	if err != nil {
		return nil, err
	}
	return &Model{
		params:   p,
		db:       db,
		det:      det,
		energies: p.Axis.Values(),
	}, nil
}

// Params returns the model parameters.
func (m *Model) Params() Params { return m.params }

// Energies returns the per-channel energy axis in keV.
func (m *Model) Energies() []float64 { return m.energies }

// ModelElements returns the column names of the last build, in column
// order, excluding the background columns.
func (m *Model) ModelElements() []string { return m.modelElements }

// Norms returns the per-column normalisation factors of the last build,
// aligned with ModelElements.
func (m *Model) Norms() []float64 { return m.norms }

// fwhm returns the detector line width at an energy.
func (m *Model) fwhm(energyKeV float64) float64 {
	return m.params.WidthSlope*energyKeV + m.params.WidthIntercept
}

// rawLines synthesizes the unit-area Gaussian emission lines of one
// element, without detector or absorption response. Series whose edge lies
// above the beam energy cannot be ionised and are skipped; remaining
// series are scaled by the overvoltage factor ln(U)/U.
func (m *Model) rawLines(symbol string) ([]float64, error) {
	if !m.db.HasElement(symbol) {
		return nil, fmt.Errorf("%w: no emission lines for %q", periodic.ErrUnknownElement, symbol)
	}
	spec := make([]float64, len(m.energies))
	for _, series := range m.db.SeriesFor(symbol) {
		if series.EdgeKeV <= 0 || series.EdgeKeV >= m.params.BeamKeV {
			continue
		}
		u := m.params.BeamKeV / series.EdgeKeV
		excitation := math.Log(u) / u
		for _, line := range series.Lines {
			if line.EnergyKeV >= m.params.BeamKeV {
				continue
			}
			sigma := m.fwhm(line.EnergyKeV) / gaussianFWHM
			amp := line.Weight * excitation / (sigma * math.Sqrt(2*math.Pi))
			for i, e := range m.energies {
				d := (e - line.EnergyKeV) / sigma
				spec[i] += amp * math.Exp(-0.5*d*d)
			}
		}
	}
	return spec, nil
}

// response returns the per-channel detector efficiency times the thin-film
// absorption correction for a sample composition.
func (m *Model) response(massFractions map[string]float64) []float64 {
	out := make([]float64, len(m.energies))
	for i, e := range m.energies {
		out[i] = m.det.Efficiency(e) * absorptionCorrection(massFractions, m.params.Abs, e)
	}
	return out
}

// Characteristic synthesizes the absorption- and efficiency-corrected
// characteristic spectrum of one element or compound, unnormalised.
func (m *Model) Characteristic(identifier string) ([]float64, error) {
	resp := m.response(equalMassFractions(baseSymbols([]string{identifier})))
	return m.characteristicWithResponse(identifier, resp)
}

func (m *Model) characteristicWithResponse(identifier string, resp []float64) ([]float64, error) {
	var spec []float64
	if periodic.IsFormula(identifier) {
		terms, err := periodic.ParseFormula(identifier)
		if err != nil {
			return nil, err
		}
		spec = make([]float64, len(m.energies))
		for _, term := range terms {
			sub, err := m.rawLines(term.Symbol)
			if err != nil {
				return nil, err
			}
			floats.AddScaled(spec, float64(term.Count), sub)
		}
	} else {
		var err error
		spec, err = m.rawLines(identifier)
		if err != nil {
			return nil, err
		}
	}
	floats.Mul(spec, resp)
	return spec, nil
}

// BuildG generates the dictionary matrix (channels x columns) and records
// the column bookkeeping. Element columns are normalised to unit sum with
// the norms retained; the two continuum columns, when requested, are
// appended unnormalised so the solver's b0/b1 weights stay in physical
// units.
func (m *Model) BuildG(spec GSpec) (*mat.Dense, error) {
	if len(spec.Elements) == 0 && len(spec.Stoichiometries) == 0 {
		return nil, fmt.Errorf("dictionary build needs at least one element")
	}

	sample := equalMassFractions(baseSymbols(append(append([]string{}, spec.Elements...), spec.Stoichiometries...)))
	resp := m.response(sample)

	var (
		names   []string
		norms   []float64
		columns [][]float64
	)
	appendColumn := func(name string, col []float64) {
		norm := floats.Sum(col)
		if norm > 0 {
			floats.Scale(1/norm, col)
		} else {
			norm = 1
		}
		names = append(names, name)
		norms = append(norms, norm)
		columns = append(columns, col)
	}

	for _, elt := range spec.Elements {
		col, err := m.characteristicWithResponse(elt, resp)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", elt, err)
		}
		cutoff, split := spec.ReferenceCutoffs[elt]
		if !split {
			appendColumn(elt, col)
			continue
		}
		lo := make([]float64, len(col))
		hi := make([]float64, len(col))
		for i, e := range m.energies {
			if e < cutoff {
				lo[i] = col[i]
			} else {
				hi[i] = col[i]
			}
		}
		appendColumn(elt+"_lo", lo)
		appendColumn(elt+"_hi", hi)
	}
	for _, compound := range spec.Stoichiometries {
		col, err := m.characteristicWithResponse(compound, resp)
		if err != nil {
			return nil, fmt.Errorf("stoichiometry %q: %w", compound, err)
		}
		appendColumn(compound, col)
	}

	nCols := len(columns)
	if spec.WithBackground {
		nCols += 2
	}
	g := mat.NewDense(len(m.energies), nCols, nil)
	for j, col := range columns {
		g.SetCol(j, col)
	}
	if spec.WithBackground {
		m.setContinuumColumns(g, resp)
	}

	m.spec = spec
	m.modelElements = names
	m.norms = norms
	return g, nil
}

// UpdateBackgroundColumns recomputes only the two trailing continuum
// columns of g using mass fractions estimated from a partial weight
// matrix. Element columns, column order and the cached norms are
// untouched. partW may be nil, in which case the a-priori equal-mass
// composition is used again.
func (m *Model) UpdateBackgroundColumns(g *mat.Dense, partW *mat.Dense) error {
	if !m.spec.WithBackground {
		return fmt.Errorf("dictionary was built without background columns")
	}
	rows, cols := g.Dims()
	if rows != len(m.energies) || cols != len(m.modelElements)+2 {
		return fmt.Errorf("dictionary shape (%d,%d) does not match model (%d,%d)",
			rows, cols, len(m.energies), len(m.modelElements)+2)
	}

	sample := m.estimateMassFractions(partW)
	m.setContinuumColumns(g, m.response(sample))
	return nil
}

func (m *Model) setContinuumColumns(g *mat.Dense, resp []float64) {
	_, cols := g.Dims()
	b0 := make([]float64, len(m.energies))
	b1 := make([]float64, len(m.energies))
	for i, e := range m.energies {
		b0[i] = continuumShape0(m.params.BeamKeV, e) * resp[i]
		b1[i] = continuumShape1(m.params.BeamKeV, e) * resp[i]
	}
	g.SetCol(cols-2, b0)
	g.SetCol(cols-1, b1)
}

// estimateMassFractions converts a partial W estimate (model columns x
// phases, background rows included) into per-symbol mass fractions.
// Column intensities are de-normalised with the cached norms, averaged
// over phases and weighted by atomic mass.
func (m *Model) estimateMassFractions(partW *mat.Dense) map[string]float64 {
	symbols := baseSymbols(m.modelElements)
	if partW == nil {
		return equalMassFractions(symbols)
	}
	rows, phases := partW.Dims()
	if rows < len(m.modelElements) || phases == 0 {
		return equalMassFractions(symbols)
	}

	massBySym := make(map[string]float64)
	for i, name := range m.modelElements {
		avg := 0.0
		for p := 0; p < phases; p++ {
			if w := partW.At(i, p); w > 0 {
				avg += w
			}
		}
		avg = avg / float64(phases) * m.norms[i]
		if avg == 0 {
			continue
		}
		for sym, count := range symbolCounts(name) {
			mass, err := periodic.MassOf(sym)
			if err != nil {
				continue
			}
			massBySym[sym] += avg * float64(count) * mass
		}
	}

	total := 0.0
	for _, v := range massBySym {
		total += v
	}
	if total <= 0 {
		return equalMassFractions(symbols)
	}
	for sym := range massBySym {
		massBySym[sym] /= total
	}
	return massBySym
}

// baseSymbols expands model column names (symbols, split-line names,
// compounds) into the unique underlying element symbols, preserving first
// appearance order.
func baseSymbols(names []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range names {
		for sym := range symbolCounts(name) {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	return out
}

// symbolCounts maps a column name to its element symbols with atomic
// counts. Split-line suffixes are stripped; compounds are expanded via
// their formula; unknown names yield nothing.
func symbolCounts(name string) map[string]int {
	base := strings.TrimSuffix(strings.TrimSuffix(name, "_lo"), "_hi")
	if periodic.IsSymbol(base) {
		return map[string]int{base: 1}
	}
	terms, err := periodic.ParseFormula(base)
	if err != nil {
		return nil
	}
	out := make(map[string]int, len(terms))
	for _, t := range terms {
		out[t.Symbol] += t.Count
	}
	return out
}
