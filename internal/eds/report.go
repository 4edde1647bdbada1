package eds

import (
	"fmt"
	"io"
)

// ReportOptions configures the concentration report.
type ReportOptions struct {
	// Absolute prints physically-scaled concentrations (weights divided
	// by the stored norms) in exponential notation; otherwise relative
	// concentrations renormalised over each phase are printed in fixed
	// notation.
	Absolute bool

	// Selected restricts the report to a subset of element names; empty
	// means all elements.
	Selected []string
}

// WriteConcentrationReport writes a fixed-width per-phase concentration
// table from a fitted W: columns are phases, rows are elements. Phases
// whose selected element weights sum to zero are excluded from the
// relative normalisation.
func WriteConcentrationReport(w io.Writer, dict *Dictionary, fit *FitResult, opts ReportOptions) error {
	if dict == nil || len(dict.Elements()) == 0 {
		return fmt.Errorf("%w: dictionary element bookkeeping", ErrMissingMetadata)
	}
	if fit == nil || fit.W == nil {
		return fmt.Errorf("%w: fitted W", ErrShapeMismatch)
	}

	elements := FullElementNames(dict.Elements())
	norms := dict.Norms()
	wRows, phases := fit.W.Dims()
	if wRows < len(elements) {
		return fmt.Errorf("%w: fitted W has %d rows, dictionary has %d element columns",
			ErrShapeMismatch, wRows, len(elements))
	}

	rows := make([]int, 0, len(elements))
	names := make([]string, 0, len(elements))
	for i, name := range elements {
		if len(opts.Selected) > 0 && !containsString(opts.Selected, name) {
			continue
		}
		rows = append(rows, i)
		names = append(names, name)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: no elements selected", ErrInvalidRange)
	}

	// Phases with no elemental weight are left out so the relative
	// normalisation never divides by zero.
	sums := make([]float64, phases)
	cols := make([]int, 0, phases)
	for p := 0; p < phases; p++ {
		for _, i := range rows {
			sums[p] += fit.W.At(i, p)
		}
		if sums[p] != 0 {
			cols = append(cols, p)
		}
	}

	longest := 0
	for _, name := range names {
		if len(name) > longest {
			longest = len(name)
		}
	}

	if opts.Absolute {
		if _, err := fmt.Fprintln(w, "Abs. quantif. report"); err != nil {
			return err
		}
		header := fmt.Sprintf("%*s", longest, "")
		for _, p := range cols {
			header += fmt.Sprintf("%10s", fmt.Sprintf("p%d", p))
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for r, i := range rows {
			line := fmt.Sprintf("%-*s : ", longest, names[r])
			for _, p := range cols {
				v := fit.W.At(i, p)
				if i < len(norms) && norms[i] != 0 {
					v /= norms[i]
				}
				line += fmt.Sprintf("%.3e ", v)
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := fmt.Fprintln(w, "Concentrations report"); err != nil {
		return err
	}
	header := fmt.Sprintf("%*s", longest, "")
	for _, p := range cols {
		header += fmt.Sprintf("%7s", fmt.Sprintf("p%d", p))
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for r, i := range rows {
		line := fmt.Sprintf("%-*s : ", longest, names[r])
		for _, p := range cols {
			line += fmt.Sprintf("%05.4f ", fit.W.At(i, p)/sums[p])
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
