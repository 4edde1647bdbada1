package edxs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/adriente/esmpy/internal/testutil"
)

func testParams() Params {
	return Params{
		BeamKeV:        200,
		Axis:           EnergyAxis{OffsetKeV: 0.2, ScaleKeV: 0.01, Size: 1000},
		WidthSlope:     0.01,
		WidthIntercept: 0.065,
		DBName:         DefaultDBName,
		Detector:       DetectorSpec{Type: SDDName},
		Abs:            AbsorptionParams{ThicknessCm: 200e-7, DensityGcm3: 3.5, TakeOffDeg: 22},
	}
}

func TestEnergyAxisValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		axis    EnergyAxis
		wantErr bool
	}{
		{"valid", EnergyAxis{OffsetKeV: 0.2, ScaleKeV: 0.01, Size: 100}, false},
		{"offset at threshold", EnergyAxis{OffsetKeV: 0.01, ScaleKeV: 0.01, Size: 100}, true},
		{"offset zero", EnergyAxis{OffsetKeV: 0, ScaleKeV: 0.01, Size: 100}, true},
		{"negative scale", EnergyAxis{OffsetKeV: 0.2, ScaleKeV: -0.01, Size: 100}, true},
		{"empty axis", EnergyAxis{OffsetKeV: 0.2, ScaleKeV: 0.01, Size: 0}, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.axis.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrCalibration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewModelRejectsBadCalibration(t *testing.T) {
	t.Parallel()

	p := testParams()
	p.Axis.OffsetKeV = 0.005
	_, err := NewModel(p)
	assert.ErrorIs(t, err, ErrCalibration)
}

func TestCharacteristicPeaksAtLineEnergy(t *testing.T) {
	t.Parallel()

	m, err := NewModel(testParams())
	require.NoError(t, err)

	spec, err := m.Characteristic("Fe")
	require.NoError(t, err)
	require.Len(t, spec, 1000)

	// The strongest channel should sit at the Fe K-alpha energy.
	peak := floats.MaxIdx(spec)
	peakKeV := m.Energies()[peak]
	assert.InDelta(t, 6.40, peakKeV, 0.05)
	assert.Greater(t, floats.Sum(spec), 0.0)
}

func TestCharacteristicUnknownElement(t *testing.T) {
	t.Parallel()

	m, err := NewModel(testParams())
	require.NoError(t, err)

	_, err = m.Characteristic("Ar") // no lines in the bundled table
	assert.Error(t, err)
}

func TestBuildGShapesAndNorms(t *testing.T) {
	t.Parallel()

	m, err := NewModel(testParams())
	require.NoError(t, err)

	g, err := m.BuildG(GSpec{
		Elements:         []string{"Fe", "Cu", "O"},
		ReferenceCutoffs: map[string]float64{"Cu": 3.0},
		Stoichiometries:  []string{"Fe2O3"},
		WithBackground:   true,
	})
	require.NoError(t, err)

	rows, cols := g.Dims()
	assert.Equal(t, 1000, rows)
	// Fe, Cu_lo, Cu_hi, O, Fe2O3 plus two continuum columns.
	assert.Equal(t, 7, cols)
	assert.Equal(t, []string{"Fe", "Cu_lo", "Cu_hi", "O", "Fe2O3"}, m.ModelElements())
	require.Len(t, m.Norms(), 5)

	// Element columns are normalised to unit sum.
	testutil.AssertAllFinite(t, g)
	for j := 0; j < 5; j++ {
		testutil.AssertColumnSum(t, g, j, 1.0, 1e-9)
	}

	// The Cu split columns respect the cut-off energy.
	cutoffIdx := m.params.Axis.Index(3.0)
	lo := mat.Col(nil, 1, g)
	hi := mat.Col(nil, 2, g)
	assert.Zero(t, floats.Sum(lo[cutoffIdx+1:]))
	assert.Zero(t, floats.Sum(hi[:cutoffIdx]))
}

func TestBuildGWithoutBackground(t *testing.T) {
	t.Parallel()

	m, err := NewModel(testParams())
	require.NoError(t, err)

	g, err := m.BuildG(GSpec{Elements: []string{"Si"}})
	require.NoError(t, err)
	_, cols := g.Dims()
	assert.Equal(t, 1, cols)

	err = m.UpdateBackgroundColumns(g, nil)
	assert.Error(t, err)
}

func TestUpdateBackgroundColumnsOnlyTouchesContinuum(t *testing.T) {
	t.Parallel()

	m, err := NewModel(testParams())
	require.NoError(t, err)

	g, err := m.BuildG(GSpec{Elements: []string{"Fe", "O"}, WithBackground: true})
	require.NoError(t, err)
	before := mat.DenseCopyOf(g)
	normsBefore := append([]float64{}, m.Norms()...)

	// A lopsided weight estimate: the first phase is almost pure Fe.
	partW := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.1, 0.9,
		0.01, 0.01,
		0.01, 0.01,
	})
	require.NoError(t, m.UpdateBackgroundColumns(g, partW))

	// Element columns must be bit-identical, norms reused.
	for j := 0; j < 2; j++ {
		assert.Equal(t, mat.Col(nil, j, before), mat.Col(nil, j, g), "element column %d", j)
	}
	assert.Equal(t, normsBefore, m.Norms())

	// The continuum columns must actually change under the new composition.
	changed := false
	for _, j := range []int{2, 3} {
		if !floats.Equal(mat.Col(nil, j, before), mat.Col(nil, j, g)) {
			changed = true
		}
	}
	assert.True(t, changed, "continuum columns unchanged after refresh")
}

func TestParametricDetector(t *testing.T) {
	t.Parallel()

	p := testParams()
	p.Detector = DetectorSpec{
		Layers: []DetectorLayer{
			{AtomicNumber: 4, ThicknessCm: 25e-7, DensityGcm3: 1.85}, // Be window
			{AtomicNumber: 13, ThicknessCm: 30e-7, DensityGcm3: 2.70},
		},
		ActiveThicknessCm: 0.045,
	}
	m, err := NewModel(p)
	require.NoError(t, err)

	// Mid-range photons should be detected far better than very soft ones.
	effLow := m.det.Efficiency(0.3)
	effMid := m.det.Efficiency(5.0)
	assert.Greater(t, effMid, effLow)
	assert.LessOrEqual(t, effMid, 1.0)
	assert.GreaterOrEqual(t, effLow, 0.0)
}

func TestAbsorptionCorrectionBounds(t *testing.T) {
	t.Parallel()

	abs := AbsorptionParams{ThicknessCm: 200e-7, DensityGcm3: 3.5, TakeOffDeg: 22}
	frac := map[string]float64{"Fe": 0.7, "O": 0.3}

	soft := absorptionCorrection(frac, abs, 0.5)
	hard := absorptionCorrection(frac, abs, 15.0)
	assert.Greater(t, hard, soft, "soft x-rays absorb more")
	assert.LessOrEqual(t, hard, 1.0)
	assert.Greater(t, soft, 0.0)

	// Vanishing thickness means no correction at all.
	assert.Equal(t, 1.0, absorptionCorrection(frac, AbsorptionParams{}, 1.0))
}

func TestMassAttenuationEdgeJump(t *testing.T) {
	t.Parallel()

	// Crossing the Fe K edge (7.112 keV) upward multiplies the
	// attenuation by the shell jump.
	below := massAttenuation(26, 7.0)
	above := massAttenuation(26, 7.2)
	assert.Greater(t, above, below)
}
