package edxs

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"
)

// SDDName identifies the bundled silicon drift detector efficiency curve.
const SDDName = "SDD_efficiency.txt"

//go:embed tables/SDD_efficiency.txt
var sddEfficiencyTable []byte

// DetectorSpec selects a detector response model: either a named tabulated
// efficiency curve (bundled SDD curve), or a parametric layer stack.
type DetectorSpec struct {
	// Type is the efficiency table name. Empty means use Layers.
	Type string `json:"type,omitempty"`

	// Layers describes absorbing layers in front of the active volume:
	// window, contact and dead layer. Ignored when Type is set.
	Layers []DetectorLayer `json:"layers,omitempty"`

	// ActiveThicknessCm is the active silicon thickness of a parametric
	// detector. Ignored when Type is set.
	ActiveThicknessCm float64 `json:"active_thickness_cm,omitempty"`
}

// DetectorLayer is one absorbing layer of a parametric detector stack.
type DetectorLayer struct {
	// AtomicNumber of the dominant absorber in the layer.
	AtomicNumber int     `json:"atomic_number"`
	ThicknessCm  float64 `json:"thickness_cm"`
	DensityGcm3  float64 `json:"density_gcm3"`
}

// detector is the evaluatable form of a DetectorSpec.
type detector struct {
	spec   DetectorSpec
	table  interp.PiecewiseLinear // set for tabulated detectors
	minKeV float64
	maxKeV float64
}

func newDetector(spec DetectorSpec) (*detector, error) {
	d := &detector{spec: spec}
	if spec.Type == "" {
		if len(spec.Layers) == 0 || spec.ActiveThicknessCm <= 0 {
			return nil, fmt.Errorf("parametric detector needs layers and an active thickness")
		}
		return d, nil
	}
	if spec.Type != SDDName {
		return nil, fmt.Errorf("unknown detector type %q", spec.Type)
	}
	xs, ys, err := parseEfficiencyTable(sddEfficiencyTable)
	if err != nil {
		return nil, fmt.Errorf("detector %s: %w", spec.Type, err)
	}
	if err := d.table.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("detector %s: fit efficiency curve: %w", spec.Type, err)
	}
	d.minKeV = xs[0]
	d.maxKeV = xs[len(xs)-1]
	return d, nil
}

// Efficiency returns the detection efficiency at an energy. Tabulated
// curves are interpolated piecewise-linearly and clamped to the table
// range; parametric stacks use layer attenuation plus active absorption.
func (d *detector) Efficiency(energyKeV float64) float64 {
	if d.spec.Type != "" {
		e := energyKeV
		if e < d.minKeV {
			e = d.minKeV
		}
		if e > d.maxKeV {
			e = d.maxKeV
		}
		return d.table.Predict(e)
	}

	transmitted := 1.0
	for _, layer := range d.spec.Layers {
		mu := massAttenuation(layer.AtomicNumber, energyKeV)
		transmitted *= math.Exp(-mu * layer.DensityGcm3 * layer.ThicknessCm)
	}
	const (
		siliconZ       = 14
		siliconDensity = 2.33
	)
	muSi := massAttenuation(siliconZ, energyKeV)
	absorbed := 1 - math.Exp(-muSi*siliconDensity*d.spec.ActiveThicknessCm)
	return transmitted * absorbed
}

func parseEfficiencyTable(data []byte) (xs, ys []float64, err error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, nil, fmt.Errorf("line %d: want 2 columns, got %d", lineNo, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if len(xs) < 2 {
		return nil, nil, fmt.Errorf("efficiency table needs at least 2 rows, got %d", len(xs))
	}
	return xs, ys, nil
}
