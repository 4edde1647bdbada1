package eds

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func reportTestDict() (*Dictionary, *FitResult) {
	dict := &Dictionary{
		mode:     ModeBremsstrahlung,
		matrix:   mat.NewDense(10, 4, nil),
		elements: []string{"Fe", "O"},
		norms:    []float64{2.0, 0.5},
	}
	w := mat.NewDense(4, 3, []float64{
		0.6, 0.0, 0.2,
		0.2, 0.0, 0.6,
		0.05, 0.0, 0.05,
		0.01, 0.0, 0.01,
	})
	return dict, &FitResult{W: w}
}

func TestConcentrationReportRelative(t *testing.T) {
	t.Parallel()

	dict, fit := reportTestDict()
	var buf strings.Builder
	require.NoError(t, WriteConcentrationReport(&buf, dict, fit, ReportOptions{}))
	out := buf.String()

	assert.Contains(t, out, "Concentrations report")
	// Phase 1 has zero elemental weight and is excluded from the table.
	assert.Contains(t, out, "p0")
	assert.Contains(t, out, "p2")
	assert.NotContains(t, out, "p1")

	// Phase 0: Fe 0.6/0.8 = 0.75, O 0.2/0.8 = 0.25.
	assert.Contains(t, out, "Fe : 0.7500 0.2500")
	assert.Contains(t, out, "O  : 0.2500 0.7500")
}

func TestConcentrationReportAbsolute(t *testing.T) {
	t.Parallel()

	dict, fit := reportTestDict()
	var buf strings.Builder
	require.NoError(t, WriteConcentrationReport(&buf, dict, fit, ReportOptions{Absolute: true}))
	out := buf.String()

	assert.Contains(t, out, "Abs. quantif. report")
	// Fe weight 0.6 divided by its norm 2.0.
	assert.Contains(t, out, "3.000e-01")
	// O weight 0.2 divided by its norm 0.5.
	assert.Contains(t, out, "4.000e-01")
}

func TestConcentrationReportSelected(t *testing.T) {
	t.Parallel()

	dict, fit := reportTestDict()
	var buf strings.Builder
	require.NoError(t, WriteConcentrationReport(&buf, dict, fit, ReportOptions{Selected: []string{"Fe"}}))
	out := buf.String()

	assert.Contains(t, out, "Fe")
	assert.NotContains(t, out, "O  :")
	// With only Fe selected, each remaining phase is 100% Fe.
	assert.Contains(t, out, "1.0000")

	var empty strings.Builder
	err := WriteConcentrationReport(&empty, dict, fit, ReportOptions{Selected: []string{"Cu"}})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestConcentrationReportContractErrors(t *testing.T) {
	t.Parallel()

	dict, fit := reportTestDict()
	var buf strings.Builder

	err := WriteConcentrationReport(&buf, &Dictionary{mode: ModeIdentity}, fit, ReportOptions{})
	assert.ErrorIs(t, err, ErrMissingMetadata)

	err = WriteConcentrationReport(&buf, dict, &FitResult{W: mat.NewDense(1, 1, nil)}, ReportOptions{})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
