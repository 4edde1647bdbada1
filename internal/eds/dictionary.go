package eds

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/adriente/esmpy/internal/edxs"
)

// Mode selects the dictionary variant handed to the decomposition engine.
type Mode string

const (
	// ModeIdentity builds no matrix: the data is treated as already
	// being in dictionary coordinates.
	ModeIdentity Mode = "identity"

	// ModeCharacteristic builds one characteristic-emission column per
	// model element.
	ModeCharacteristic Mode = "characteristic"

	// ModeBremsstrahlung builds the characteristic columns plus two
	// trailing continuum basis columns, and supports Refresh.
	ModeBremsstrahlung Mode = "bremsstrahlung"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIdentity, ModeCharacteristic, ModeBremsstrahlung:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown dictionary mode %q", s)
}

// Dictionary is a built spectral dictionary: the G matrix plus the column
// bookkeeping needed by the constraint builders and the quantification
// pipeline. A bremsstrahlung dictionary additionally keeps its physics
// model alive so the continuum columns can be refreshed; use one
// Dictionary per decomposition attempt, refreshes are not safe to run
// concurrently against the same instance.
type Dictionary struct {
	mode     Mode
	matrix   *mat.Dense // nil in identity mode
	elements []string
	norms    []float64
	energies []float64
	model    *edxs.Model // nil unless bremsstrahlung mode
}

// Mode returns the dictionary variant.
func (d *Dictionary) Mode() Mode { return d.mode }

// HasBackground reports whether the two continuum columns are present.
func (d *Dictionary) HasBackground() bool { return d.mode == ModeBremsstrahlung }

// Matrix returns the G matrix (channels x columns), or nil in identity
// mode. The matrix is handed to the engine as-is; the core never mutates
// it during a fit.
func (d *Dictionary) Matrix() *mat.Dense { return d.matrix }

// Elements returns the column names excluding the background columns.
func (d *Dictionary) Elements() []string { return d.elements }

// Norms returns the per-element-column normalisation factors.
func (d *Dictionary) Norms() []float64 { return d.norms }

// Energies returns the per-channel energy axis in keV, or nil in identity
// mode.
func (d *Dictionary) Energies() []float64 { return d.energies }

// Columns returns the dictionary column count including background
// columns, or 0 in identity mode.
func (d *Dictionary) Columns() int {
	if d.matrix == nil {
		return 0
	}
	_, c := d.matrix.Dims()
	return c
}

// Refresh recomputes only the two continuum columns from a partial weight
// estimate. Column order and count are preserved and the cached element
// norms are reused. Only bremsstrahlung dictionaries are refreshable.
func (d *Dictionary) Refresh(partialW *mat.Dense) error {
	if d.mode != ModeBremsstrahlung {
		return fmt.Errorf("dictionary mode %q is not refreshable", d.mode)
	}
	return d.model.UpdateBackgroundColumns(d.matrix, partialW)
}
