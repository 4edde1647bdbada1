package eds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// QuantifyOptions tunes the quantification pipeline.
type QuantifyOptions struct {
	// NavMask marks excluded pixels (true = excluded). Excluded pixels
	// propagate as NaN in every element map rather than biasing sums.
	NavMask []bool

	// SkipElements are dropped from the output, with the remaining rows
	// renormalised to 100 percent.
	SkipElements []string

	// Norms overrides the dictionary's per-element normalisation
	// factors; when nil the dictionary norms are used.
	Norms []float64
}

// Quantification is the result of one quantification run: per-element
// atomic-percent maps plus the ordering and normalisation used. It is
// derived strictly from one fitted result and recomputed on demand.
type Quantification struct {
	Elements []string
	Maps     *mat.Dense // elements x pixels, values in atomic percent
	Height   int
	Width    int
	Norms    []float64
}

// Map returns one element's abundance reshaped to the spatial grid.
func (q *Quantification) Map(element string) ([][]float64, error) {
	for i, name := range q.Elements {
		if name != element {
			continue
		}
		out := make([][]float64, q.Height)
		for y := 0; y < q.Height; y++ {
			row := make([]float64, q.Width)
			for x := 0; x < q.Width; x++ {
				row[x] = q.Maps.At(i, y*q.Width+x)
			}
			out[y] = row
		}
		return out, nil
	}
	return nil, fmt.Errorf("element %q not in quantification", element)
}

// Quantify converts a fitted factorization into calibrated per-element
// concentration maps. The reconstructed contribution tensor W*H is
// reduced to element rows (background rows dropped), divided by the
// per-element normalisation factors, and renormalised so each pixel's
// element contributions sum to 100. Pixels excluded by the navigation
// mask come out as NaN everywhere; pixels with no elemental signal come
// out as NaN/Inf rather than raising. Identical inputs give bit-identical
// output.
func (s *SpectrumImage) Quantify(dict *Dictionary, fit *FitResult, opts QuantifyOptions) (*Quantification, error) {
	if dict == nil || len(dict.Elements()) == 0 {
		return nil, fmt.Errorf("%w: dictionary element bookkeeping (build a non-identity dictionary first)", ErrMissingMetadata)
	}
	if err := ValidateFitShapes(fit, s, dict); err != nil {
		return nil, err
	}
	if opts.NavMask != nil && len(opts.NavMask) != s.Pixels() {
		return nil, fmt.Errorf("%w: navigation mask has %d pixels, dataset has %d",
			ErrShapeMismatch, len(opts.NavMask), s.Pixels())
	}

	elements := FullElementNames(dict.Elements())
	norms := opts.Norms
	if norms == nil {
		norms = dict.Norms()
	}
	if len(norms) != len(elements) {
		return nil, fmt.Errorf("%w: %d normalisation factors for %d elements",
			ErrShapeMismatch, len(norms), len(elements))
	}

	var wh mat.Dense
	wh.Mul(fit.W, fit.H)

	// Keep element rows only; background rows never enter quantification.
	keep := make([]int, 0, len(elements))
	names := make([]string, 0, len(elements))
	usedNorms := make([]float64, 0, len(elements))
	for i, name := range elements {
		if containsString(opts.SkipElements, name) {
			continue
		}
		keep = append(keep, i)
		names = append(names, name)
		usedNorms = append(usedNorms, norms[i])
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: every element skipped", ErrInvalidRange)
	}

	pixels := s.Pixels()
	maps := mat.NewDense(len(keep), pixels, nil)
	for r, i := range keep {
		norm := usedNorms[r]
		for j := 0; j < pixels; j++ {
			v := wh.At(i, j)
			if norm != 0 {
				v /= norm
			}
			maps.Set(r, j, v)
		}
	}

	// Percent renormalisation per pixel. A zero column sum propagates as
	// NaN/Inf: an undefined composition, not an error.
	for j := 0; j < pixels; j++ {
		if opts.NavMask != nil && opts.NavMask[j] {
			for r := range keep {
				maps.Set(r, j, math.NaN())
			}
			continue
		}
		sum := 0.0
		for r := range keep {
			sum += maps.At(r, j)
		}
		scale := sum / 100
		for r := range keep {
			maps.Set(r, j, maps.At(r, j)/scale)
		}
	}

	return &Quantification{
		Elements: names,
		Maps:     maps,
		Height:   s.Height,
		Width:    s.Width,
		Norms:    usedNorms,
	}, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
