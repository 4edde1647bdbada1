package eds

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// freeCell is the engine-facing sentinel for an unconstrained entry. The
// builder API uses tagged Pin values instead, so legitimate non-negative
// pins never collide with the sentinel; the emitted matrices keep the -1
// encoding the decomposition engine documents.
const freeCell = -1.0

// Pin is a tagged constraint cell: either free (learned by the solver) or
// fixed to a non-negative value.
type Pin struct {
	fixed bool
	value float64
}

// Fixed pins a cell to a value.
func Fixed(v float64) Pin { return Pin{fixed: true, value: v} }

// Free leaves a cell to the solver. A Free pin in a constraint map is a
// no-op, which lets callers mirror reference inputs that list entries as
// explicitly unconstrained.
func Free() Pin { return Pin{} }

// IsFixed reports whether the pin carries a value.
func (p Pin) IsFixed() bool { return p.fixed }

// Value returns the pinned value and whether the pin is fixed.
func (p Pin) Value() (float64, bool) { return p.value, p.fixed }

// Reserved identifiers for the two continuum weight rows.
const (
	BackgroundB0 = "b0"
	BackgroundB1 = "b1"
)

// PhaseConstraint pins dictionary-column weights for one phase.
type PhaseConstraint struct {
	Name string
	Pins map[string]Pin
}

// FixedW is the per-phase weight constraint matrix handed to the engine:
// rows are dictionary columns, columns are phases, free cells are -1.
type FixedW struct {
	matrix   *mat.Dense
	elements []string
	phases   []string
}

// Matrix returns the engine-facing constraint matrix.
func (w *FixedW) Matrix() *mat.Dense { return w.matrix }

// Phases returns the phase names in column order.
func (w *FixedW) Phases() []string { return w.phases }

// PinnedAt returns the pinned value at (row, phase) and whether the cell
// is pinned at all.
func (w *FixedW) PinnedAt(row, phase int) (float64, bool) {
	v := w.matrix.At(row, phase)
	if v == freeCell {
		return 0, false
	}
	return v, true
}

// ValidateAgainst checks the shape contract with a built dictionary: the
// row count must equal the dictionary column count exactly.
func (w *FixedW) ValidateAgainst(dict *Dictionary) error {
	rows, _ := w.matrix.Dims()
	if dict.Mode() == ModeIdentity {
		return nil
	}
	if rows != dict.Columns() {
		return fmt.Errorf("%w: fixed W has %d rows, dictionary has %d columns",
			ErrShapeMismatch, rows, dict.Columns())
	}
	return nil
}

// wBuildConfig carries the opt-in strictness switch.
type wBuildConfig struct {
	strict bool
}

// WOption configures BuildFixedW.
type WOption func(*wBuildConfig)

// Strict makes BuildFixedW reject identifiers that match neither an
// element row nor a reserved background key, instead of silently ignoring
// them as the reference behaviour does.
func Strict() WOption {
	return func(c *wBuildConfig) { c.strict = true }
}

// BuildFixedW builds the fixed weight constraint matrix for a phase list.
// Every cell defaults to free; a Fixed pin whose identifier matches an
// element row sets that cell for the phase; the reserved identifiers "b0"
// and "b1" address the two trailing background rows and are only valid
// for background-enabled dictionaries. Pinned values must be
// non-negative. Unmatched identifiers are silently ignored unless the
// Strict option is given.
func BuildFixedW(phases []PhaseConstraint, elements []string, hasBackground bool, opts ...WOption) (*FixedW, error) {
	var cfg wBuildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	rows := len(elements)
	if hasBackground {
		rows += 2
	}
	if rows == 0 || len(phases) == 0 {
		return nil, fmt.Errorf("%w: need at least one element row and one phase", ErrShapeMismatch)
	}

	rowOf := make(map[string]int, rows)
	for i, elt := range elements {
		rowOf[elt] = i
	}
	if hasBackground {
		rowOf[BackgroundB0] = rows - 2
		rowOf[BackgroundB1] = rows - 1
	}

	m := mat.NewDense(rows, len(phases), nil)
	fill(m, freeCell)

	names := make([]string, len(phases))
	for p, phase := range phases {
		names[p] = phase.Name
		for id, pin := range phase.Pins {
			v, isFixed := pin.Value()
			if !isFixed {
				continue
			}
			if v < 0 {
				return nil, fmt.Errorf("%w: pinned value %g for %q in phase %q must be non-negative",
					ErrInvalidRange, v, id, phase.Name)
			}
			row, ok := rowOf[id]
			if !ok || (!hasBackground && (id == BackgroundB0 || id == BackgroundB1)) {
				if cfg.strict {
					return nil, fmt.Errorf("%w: constraint identifier %q in phase %q matches no dictionary row",
						ErrInvalidRange, id, phase.Name)
				}
				continue
			}
			m.Set(row, p, v)
		}
	}

	return &FixedW{matrix: m, elements: elements, phases: names}, nil
}

// BuildChemicalMappingW builds the fixed W for a guided one-phase-per-
// element decomposition: each element phase may only contain its own
// element (diagonal free, off-diagonal pinned to zero), followed by
// nBackground pure-background phases whose element rows are pinned to
// zero and whose background rows are free.
func BuildChemicalMappingW(elements []string, nBackground int, hasBackground bool) (*FixedW, error) {
	n := len(elements)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty element list", ErrShapeMismatch)
	}

	if !hasBackground {
		m := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			m.Set(i, i, freeCell)
		}
		return &FixedW{matrix: m, elements: elements, phases: phaseNames(n)}, nil
	}

	rows := n + 2
	cols := n + nBackground
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, freeCell)
	}
	for p := n; p < cols; p++ {
		m.Set(rows-2, p, freeCell)
		m.Set(rows-1, p, freeCell)
	}
	return &FixedW{matrix: m, elements: elements, phases: phaseNames(cols)}, nil
}

func phaseNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("p%d", i)
	}
	return names
}

// SpatialKind selects how one phase's spatial support is pinned.
type SpatialKind string

const (
	// KindNotFixed leaves the phase entirely to the solver.
	KindNotFixed SpatialKind = "not_fixed"
	// KindMask pins pixels where a boolean mask is true.
	KindMask SpatialKind = "mask"
	// KindRegions pins pixels inside rectangular regions given in
	// physical units.
	KindRegions SpatialKind = "regions"
)

// Rect is a rectangular region in physical units, as supplied by ROI
// providers. Pixel bounds are derived by dividing by the axis scale and
// truncating toward zero.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// SpatialConstraint describes one phase's pinning. Use the constructors
// rather than filling the struct directly.
type SpatialConstraint struct {
	Kind    SpatialKind
	Mask    [][]bool
	Regions []Rect
	Value   float64
}

// NotFixed leaves every pixel free for the phase.
func NotFixed() SpatialConstraint {
	return SpatialConstraint{Kind: KindNotFixed}
}

// MaskArea pins pixels where mask is true to value.
func MaskArea(mask [][]bool, value float64) SpatialConstraint {
	return SpatialConstraint{Kind: KindMask, Mask: mask, Value: value}
}

// RegionArea pins pixels inside the regions to value.
func RegionArea(regions []Rect, value float64) SpatialConstraint {
	return SpatialConstraint{Kind: KindRegions, Regions: regions, Value: value}
}

// PhaseArea names one phase's spatial constraint. Phases are stacked as
// rows in slice order.
type PhaseArea struct {
	Name       string
	Constraint SpatialConstraint
}

// FixedH is the spatial constraint matrix handed to the engine: rows are
// phases, columns are flattened pixels (row-major, pixel = y*width + x),
// free cells are -1.
type FixedH struct {
	matrix *mat.Dense
	phases []string
	height int
	width  int
}

// Matrix returns the engine-facing constraint matrix.
func (h *FixedH) Matrix() *mat.Dense { return h.matrix }

// Phases returns the phase names in row order.
func (h *FixedH) Phases() []string { return h.phases }

// PinnedAt returns the pinned value for (phase, y, x) and whether the
// pixel is pinned.
func (h *FixedH) PinnedAt(phase, y, x int) (float64, bool) {
	v := h.matrix.At(phase, y*h.width+x)
	if v == freeCell {
		return 0, false
	}
	return v, true
}

// Grid returns one phase row reshaped back to the spatial shape.
func (h *FixedH) Grid(phase int) [][]float64 {
	out := make([][]float64, h.height)
	for y := 0; y < h.height; y++ {
		row := make([]float64, h.width)
		for x := 0; x < h.width; x++ {
			row[x] = h.matrix.At(phase, y*h.width+x)
		}
		out[y] = row
	}
	return out
}

// BuildFixedH builds the spatial constraint matrix for a phase list over
// a spatial shape. Region coordinates are divided by the metadata pixel
// scales; pinned values must lie in [0,1]; an unknown constraint kind is
// rejected.
func (s *SpectrumImage) BuildFixedH(phases []PhaseArea) (*FixedH, error) {
	return buildFixedH(phases, s.Height, s.Width, s.Meta.Spatial.ScaleX, s.Meta.Spatial.ScaleY)
}

func buildFixedH(phases []PhaseArea, height, width int, scaleX, scaleY float64) (*FixedH, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("%w: no phases", ErrShapeMismatch)
	}
	if scaleX <= 0 {
		scaleX = 1
	}
	if scaleY <= 0 {
		scaleY = 1
	}

	m := mat.NewDense(len(phases), height*width, nil)
	fill(m, freeCell)

	names := make([]string, len(phases))
	for p, phase := range phases {
		names[p] = phase.Name
		c := phase.Constraint

		switch c.Kind {
		case KindNotFixed:
			continue
		case KindMask, KindRegions:
			if c.Value < 0 || c.Value > 1 {
				return nil, fmt.Errorf("%w: pinned value %g for phase %q must be in [0,1]",
					ErrInvalidRange, c.Value, phase.Name)
			}
		default:
			return nil, fmt.Errorf("%w: unknown spatial constraint kind %q for phase %q",
				ErrInvalidRange, c.Kind, phase.Name)
		}

		if c.Kind == KindMask {
			if len(c.Mask) != height {
				return nil, fmt.Errorf("%w: mask for phase %q has %d rows, spatial shape is (%d,%d)",
					ErrShapeMismatch, phase.Name, len(c.Mask), height, width)
			}
			for y, row := range c.Mask {
				if len(row) != width {
					return nil, fmt.Errorf("%w: mask row %d for phase %q has %d columns, want %d",
						ErrShapeMismatch, y, phase.Name, len(row), width)
				}
				for x, on := range row {
					if on {
						m.Set(p, y*width+x, c.Value)
					}
				}
			}
			continue
		}

		for _, r := range c.Regions {
			xMin := clamp(int(r.Left/scaleX), 0, width)
			xMax := clamp(int(r.Right/scaleX), 0, width)
			yMin := clamp(int(r.Top/scaleY), 0, height)
			yMax := clamp(int(r.Bottom/scaleY), 0, height)
			for y := yMin; y < yMax; y++ {
				for x := xMin; x < xMax; x++ {
					m.Set(p, y*width+x, c.Value)
				}
			}
		}
	}

	return &FixedH{matrix: m, phases: names, height: height, width: width}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fill(m *mat.Dense, v float64) {
	raw := m.RawMatrix()
	for i := range raw.Data {
		raw.Data[i] = v
	}
}
