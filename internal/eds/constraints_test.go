package eds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestBuildFixedWNoBackground(t *testing.T) {
	t.Parallel()

	phases := []PhaseConstraint{
		{Name: "p0", Pins: map[string]Pin{"Fe": Fixed(0.0)}},
	}
	fw, err := BuildFixedW(phases, []string{"Fe", "O"}, false)
	require.NoError(t, err)

	rows, cols := fw.Matrix().Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, 0.0, fw.Matrix().At(0, 0))
	assert.Equal(t, -1.0, fw.Matrix().At(1, 0))

	v, pinned := fw.PinnedAt(0, 0)
	assert.True(t, pinned)
	assert.Equal(t, 0.0, v)
	_, pinned = fw.PinnedAt(1, 0)
	assert.False(t, pinned)
}

func TestBuildFixedWBackgroundRows(t *testing.T) {
	t.Parallel()

	phases := []PhaseConstraint{
		{Name: "p0", Pins: map[string]Pin{"b0": Fixed(0.05), "b1": Free()}},
	}
	fw, err := BuildFixedW(phases, []string{"Si"}, true)
	require.NoError(t, err)

	rows, cols := fw.Matrix().Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, -1.0, fw.Matrix().At(0, 0), "Si row stays free")
	assert.Equal(t, 0.05, fw.Matrix().At(1, 0), "b0 row pinned")
	assert.Equal(t, -1.0, fw.Matrix().At(2, 0), "b1 row stays free")
}

func TestBuildFixedWNoPhaseOverwrite(t *testing.T) {
	t.Parallel()

	phases := []PhaseConstraint{
		{Name: "p0", Pins: map[string]Pin{"Fe": Fixed(0.25)}},
		{Name: "p1", Pins: map[string]Pin{"O": Fixed(0.75)}},
	}
	fw, err := BuildFixedW(phases, []string{"Fe", "O"}, false)
	require.NoError(t, err)

	assert.Equal(t, 0.25, fw.Matrix().At(0, 0))
	assert.Equal(t, -1.0, fw.Matrix().At(0, 1))
	assert.Equal(t, -1.0, fw.Matrix().At(1, 0))
	assert.Equal(t, 0.75, fw.Matrix().At(1, 1))
}

func TestBuildFixedWLenientAndStrict(t *testing.T) {
	t.Parallel()

	phases := []PhaseConstraint{
		{Name: "p0", Pins: map[string]Pin{"Cu": Fixed(0.1)}},
	}

	// Lenient default: the unmatched identifier is silently ignored.
	fw, err := BuildFixedW(phases, []string{"Fe", "O"}, false)
	require.NoError(t, err)
	assert.Equal(t, -1.0, fw.Matrix().At(0, 0))
	assert.Equal(t, -1.0, fw.Matrix().At(1, 0))

	// Strict mode rejects it.
	_, err = BuildFixedW(phases, []string{"Fe", "O"}, false, Strict())
	assert.ErrorIs(t, err, ErrInvalidRange)

	// Background keys without a background dictionary are also unmatched.
	bg := []PhaseConstraint{{Name: "p0", Pins: map[string]Pin{"b0": Fixed(0.05)}}}
	fw, err = BuildFixedW(bg, []string{"Fe"}, false)
	require.NoError(t, err)
	assert.Equal(t, -1.0, fw.Matrix().At(0, 0))
}

func TestBuildFixedWNegativePin(t *testing.T) {
	t.Parallel()

	phases := []PhaseConstraint{
		{Name: "p0", Pins: map[string]Pin{"Fe": Fixed(-0.5)}},
	}
	_, err := BuildFixedW(phases, []string{"Fe"}, false)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFixedWValidateAgainstDictionary(t *testing.T) {
	t.Parallel()

	dict := &Dictionary{
		mode:     ModeBremsstrahlung,
		matrix:   mat.NewDense(10, 4, nil),
		elements: []string{"Fe", "O"},
		norms:    []float64{1, 1},
	}

	fw, err := BuildFixedW([]PhaseConstraint{{Name: "p0"}}, []string{"Fe", "O"}, true)
	require.NoError(t, err)
	assert.NoError(t, fw.ValidateAgainst(dict))

	bad, err := BuildFixedW([]PhaseConstraint{{Name: "p0"}}, []string{"Fe", "O"}, false)
	require.NoError(t, err)
	assert.ErrorIs(t, bad.ValidateAgainst(dict), ErrShapeMismatch)
}

func TestBuildChemicalMappingW(t *testing.T) {
	t.Parallel()

	t.Run("without background", func(t *testing.T) {
		t.Parallel()
		fw, err := BuildChemicalMappingW([]string{"Fe", "O", "Si"}, 0, false)
		require.NoError(t, err)
		rows, cols := fw.Matrix().Dims()
		assert.Equal(t, 3, rows)
		assert.Equal(t, 3, cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if i == j {
					assert.Equal(t, -1.0, fw.Matrix().At(i, j))
				} else {
					assert.Equal(t, 0.0, fw.Matrix().At(i, j))
				}
			}
		}
	})

	t.Run("with background phases", func(t *testing.T) {
		t.Parallel()
		fw, err := BuildChemicalMappingW([]string{"Fe", "O"}, 1, true)
		require.NoError(t, err)
		rows, cols := fw.Matrix().Dims()
		assert.Equal(t, 4, rows)
		assert.Equal(t, 3, cols)

		// Element phases: own element free, everything else pinned to 0.
		assert.Equal(t, -1.0, fw.Matrix().At(0, 0))
		assert.Equal(t, 0.0, fw.Matrix().At(1, 0))
		assert.Equal(t, 0.0, fw.Matrix().At(2, 0))
		assert.Equal(t, 0.0, fw.Matrix().At(3, 0))

		// Background phase: element rows pinned to 0, continuum rows free.
		assert.Equal(t, 0.0, fw.Matrix().At(0, 2))
		assert.Equal(t, 0.0, fw.Matrix().At(1, 2))
		assert.Equal(t, -1.0, fw.Matrix().At(2, 2))
		assert.Equal(t, -1.0, fw.Matrix().At(3, 2))
	})
}

func newConstraintTestImage(t *testing.T, height, width int) *SpectrumImage {
	t.Helper()
	data := mat.NewDense(4, height*width, nil)
	meta := &Metadata{Spatial: SpatialMeta{ScaleX: 1, ScaleY: 1}}
	s, err := NewSpectrumImage(data, height, width, meta)
	require.NoError(t, err)
	return s
}

func TestBuildFixedHNotFixedRoundTrip(t *testing.T) {
	t.Parallel()

	s := newConstraintTestImage(t, 5, 6)
	fh, err := s.BuildFixedH([]PhaseArea{{Name: "p0", Constraint: NotFixed()}})
	require.NoError(t, err)

	rows, cols := fh.Matrix().Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 30, cols)

	grid := fh.Grid(0)
	require.Len(t, grid, 5)
	for y := range grid {
		require.Len(t, grid[y], 6)
		for x := range grid[y] {
			assert.Equal(t, -1.0, grid[y][x])
		}
	}
}

func TestBuildFixedHRegion(t *testing.T) {
	t.Parallel()

	s := newConstraintTestImage(t, 5, 6)
	region := Rect{Left: 0, Top: 0, Right: 4, Bottom: 2}
	fh, err := s.BuildFixedH([]PhaseArea{
		{Name: "p0", Constraint: RegionArea([]Rect{region}, 1)},
	})
	require.NoError(t, err)

	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			want := -1.0
			if y < 2 && x < 4 {
				want = 1.0
			}
			assert.Equal(t, want, fh.Matrix().At(0, y*6+x), "pixel (%d,%d)", y, x)
		}
	}
}

func TestBuildFixedHRegionScaled(t *testing.T) {
	t.Parallel()

	s := newConstraintTestImage(t, 8, 8)
	s.Meta.Spatial.ScaleX = 2
	s.Meta.Spatial.ScaleY = 2

	// Physical [0,8)x[0,4) divided by scale 2 pins pixels x<4, y<2.
	fh, err := s.BuildFixedH([]PhaseArea{
		{Name: "p0", Constraint: RegionArea([]Rect{{Left: 0, Top: 0, Right: 8, Bottom: 4}}, 0.5)},
	})
	require.NoError(t, err)

	v, pinned := fh.PinnedAt(0, 1, 3)
	assert.True(t, pinned)
	assert.Equal(t, 0.5, v)
	_, pinned = fh.PinnedAt(0, 2, 3)
	assert.False(t, pinned)
	_, pinned = fh.PinnedAt(0, 1, 4)
	assert.False(t, pinned)
}

func TestBuildFixedHMask(t *testing.T) {
	t.Parallel()

	s := newConstraintTestImage(t, 2, 3)
	mask := [][]bool{
		{true, false, false},
		{false, false, true},
	}
	fh, err := s.BuildFixedH([]PhaseArea{
		{Name: "p0", Constraint: MaskArea(mask, 0.8)},
		{Name: "p1", Constraint: NotFixed()},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.8, fh.Matrix().At(0, 0))
	assert.Equal(t, -1.0, fh.Matrix().At(0, 1))
	assert.Equal(t, 0.8, fh.Matrix().At(0, 5))
	for j := 0; j < 6; j++ {
		assert.Equal(t, -1.0, fh.Matrix().At(1, j))
	}
	assert.Equal(t, []string{"p0", "p1"}, fh.Phases())
}

func TestBuildFixedHErrors(t *testing.T) {
	t.Parallel()

	s := newConstraintTestImage(t, 2, 3)

	t.Run("value out of range", func(t *testing.T) {
		t.Parallel()
		_, err := s.BuildFixedH([]PhaseArea{
			{Name: "p0", Constraint: RegionArea([]Rect{{Right: 1, Bottom: 1}}, 1.5)},
		})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		_, err := s.BuildFixedH([]PhaseArea{
			{Name: "p0", Constraint: SpatialConstraint{Kind: "blob"}},
		})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("mask shape mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := s.BuildFixedH([]PhaseArea{
			{Name: "p0", Constraint: MaskArea([][]bool{{true}}, 1)},
		})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}
