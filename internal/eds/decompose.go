package eds

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitResult is the output of a decomposition engine run: W is dictionary
// columns x phases, H is phases x pixels, G is channels x dictionary
// columns. The core reads fitted results, it never mutates them.
type FitResult struct {
	W *mat.Dense
	H *mat.Dense
	G *mat.Dense
}

// Decomposer is the external factorization engine contract. The engine
// consumes the data matrix, the dictionary and the constraint matrices
// (nil means unconstrained) plus an optional navigation mask (true =
// pixel excluded from the fit), and returns the fitted triple. The
// engine's loss, regularisation and convergence are outside the core.
type Decomposer interface {
	Decompose(x *mat.Dense, g *mat.Dense, fixedW, fixedH *mat.Dense, navMask []bool) (*FitResult, error)
}

// ValidateFitShapes checks a fitted result against the engine's shape
// contract for a dataset and dictionary. A mismatch means the engine and
// the core disagree about the problem layout.
func ValidateFitShapes(fit *FitResult, s *SpectrumImage, dict *Dictionary) error {
	if fit == nil || fit.W == nil || fit.H == nil {
		return fmt.Errorf("%w: incomplete fit result", ErrShapeMismatch)
	}
	wRows, wCols := fit.W.Dims()
	hRows, hCols := fit.H.Dims()
	if wCols != hRows {
		return fmt.Errorf("%w: W has %d phases, H has %d", ErrShapeMismatch, wCols, hRows)
	}
	if hCols != s.Pixels() {
		return fmt.Errorf("%w: H has %d pixels, dataset has %d", ErrShapeMismatch, hCols, s.Pixels())
	}
	if dict != nil && dict.Mode() != ModeIdentity {
		if wRows != dict.Columns() {
			return fmt.Errorf("%w: W has %d rows, dictionary has %d columns",
				ErrShapeMismatch, wRows, dict.Columns())
		}
		if fit.G != nil {
			gRows, gCols := fit.G.Dims()
			if gRows != s.Channels() || gCols != dict.Columns() {
				return fmt.Errorf("%w: G is (%d,%d), want (%d,%d)",
					ErrShapeMismatch, gRows, gCols, s.Channels(), dict.Columns())
			}
		}
	}
	return nil
}
