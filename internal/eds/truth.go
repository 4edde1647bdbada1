package eds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GroundTruth returns the reference phases and maps in their stored
// orientation: phases as channels x phases, maps as height x width x
// phases. Simulated datasets carry these in metadata; experimental ones
// do not. The stored arrays are never mutated.
func (s *SpectrumImage) GroundTruth() (phases *mat.Dense, maps [][][]float64, err error) {
	t := s.Meta.Truth
	if t == nil || len(t.Phases) == 0 {
		return nil, nil, ErrNoGroundTruth
	}
	channels := len(t.Phases)
	nPhases := len(t.Phases[0])
	p := mat.NewDense(channels, nPhases, nil)
	for i, row := range t.Phases {
		if len(row) != nPhases {
			return nil, nil, fmt.Errorf("%w: ragged truth phases row %d", ErrShapeMismatch, i)
		}
		p.SetRow(i, row)
	}
	return p, t.Maps, nil
}

// GroundTruthMatrices returns the reference data reshaped for the
// factorization layout: phases as phases x channels and maps flattened to
// phases x pixels (row-major spatial order).
func (s *SpectrumImage) GroundTruthMatrices() (phases, maps *mat.Dense, err error) {
	stored, storedMaps, err := s.GroundTruth()
	if err != nil {
		return nil, nil, err
	}
	channels, nPhases := stored.Dims()
	phases = mat.NewDense(nPhases, channels, nil)
	phases.Copy(stored.T())

	if len(storedMaps) != s.Height {
		return nil, nil, fmt.Errorf("%w: truth maps have %d rows, dataset height is %d",
			ErrShapeMismatch, len(storedMaps), s.Height)
	}
	maps = mat.NewDense(nPhases, s.Pixels(), nil)
	for y, row := range storedMaps {
		if len(row) != s.Width {
			return nil, nil, fmt.Errorf("%w: truth maps row %d has %d columns, dataset width is %d",
				ErrShapeMismatch, y, len(row), s.Width)
		}
		for x, perPhase := range row {
			if len(perPhase) != nPhases {
				return nil, nil, fmt.Errorf("%w: truth maps pixel (%d,%d) has %d phases, want %d",
					ErrShapeMismatch, y, x, len(perPhase), nPhases)
			}
			for p := 0; p < nPhases; p++ {
				maps.Set(p, y*s.Width+x, perPhase[p])
			}
		}
	}
	return phases, maps, nil
}

// PhaseScore holds validation metrics for one phase row: correlation and
// mean squared error between a fitted map and its reference.
type PhaseScore struct {
	Phase       int
	Correlation float64
	MSE         float64
}

// ScoreAgainstTruth compares fitted per-phase rows against reference rows
// of the same shape. Purely observational: used to validate simulated
// decompositions, never consulted during fitting. NaN cells (masked
// pixels) are skipped pairwise.
func ScoreAgainstTruth(got, want *mat.Dense) ([]PhaseScore, error) {
	gr, gc := got.Dims()
	wr, wc := want.Dims()
	if gr != wr || gc != wc {
		return nil, fmt.Errorf("%w: fitted rows are (%d,%d), reference is (%d,%d)",
			ErrShapeMismatch, gr, gc, wr, wc)
	}

	scores := make([]PhaseScore, gr)
	for p := 0; p < gr; p++ {
		var xs, ys []float64
		sse := 0.0
		for j := 0; j < gc; j++ {
			x, y := got.At(p, j), want.At(p, j)
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			xs = append(xs, x)
			ys = append(ys, y)
			d := x - y
			sse += d * d
		}
		score := PhaseScore{Phase: p}
		if len(xs) > 1 {
			score.Correlation = stat.Correlation(xs, ys, nil)
			score.MSE = sse / float64(len(xs))
		}
		scores[p] = score
	}
	return scores, nil
}
