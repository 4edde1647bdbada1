// Package eds is the dataset core for EDS hyperspectral datacube
// factorization: element resolution, dictionary orchestration, constraint
// matrices, ground truth access and post-fit quantification.
//
// A SpectrumImage owns one dataset's matrices and metadata; instances are
// independent and single-threaded. The build / fit / refresh / re-fit
// cycle must be sequenced by the caller.
package eds

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/adriente/esmpy/internal/edxs"
)

// SpectrumImage is one EDS datacube in matrix layout: Data holds the
// counts as channels x pixels, with the spatial dimensions flattened
// row-major (pixel = y*Width + x).
type SpectrumImage struct {
	Data   *mat.Dense
	Height int
	Width  int
	Meta   *Metadata

	dict *Dictionary
}

// NewSpectrumImage wraps a data matrix and its metadata. The matrix must
// have Height*Width columns.
func NewSpectrumImage(data *mat.Dense, height, width int, meta *Metadata) (*SpectrumImage, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil data matrix", ErrShapeMismatch)
	}
	_, pixels := data.Dims()
	if pixels != height*width {
		return nil, fmt.Errorf("%w: data has %d pixels, spatial shape (%d,%d) needs %d",
			ErrShapeMismatch, pixels, height, width, height*width)
	}
	if meta == nil {
		meta = &Metadata{}
	}
	meta.Spatial.Height = height
	meta.Spatial.Width = width
	return &SpectrumImage{Data: data, Height: height, Width: width, Meta: meta}, nil
}

// Pixels returns the flattened spatial size.
func (s *SpectrumImage) Pixels() int { return s.Height * s.Width }

// Channels returns the energy axis size of the data.
func (s *SpectrumImage) Channels() int {
	r, _ := s.Data.Dims()
	return r
}

// Dictionary returns the most recently built dictionary, or nil.
func (s *SpectrumImage) Dictionary() *Dictionary { return s.dict }

// SetElements resolves identifiers and replaces the dataset element list.
func (s *SpectrumImage) SetElements(identifiers []string) error {
	resolved, err := ResolveElements(identifiers)
	if err != nil {
		return err
	}
	s.Meta.Sample.Elements = resolved
	return nil
}

// AddElements resolves identifiers and appends them to the dataset
// element list, deduplicating against existing entries.
func (s *SpectrumImage) AddElements(identifiers []string) error {
	combined := append(append([]string{}, s.Meta.Sample.Elements...), identifiers...)
	resolved, err := ResolveElements(combined)
	if err != nil {
		return err
	}
	s.Meta.Sample.Elements = resolved
	return nil
}

// BuildOptions carries the optional dictionary build inputs.
type BuildOptions struct {
	// ReferenceCutoffs maps a resolved symbol to a cut-off energy in
	// keV; listed elements get two split columns instead of one.
	ReferenceCutoffs map[string]float64

	// Stoichiometries are compound formulas appended as extra columns.
	Stoichiometries []string
}

// BuildDictionary constructs the dictionary for a mode and persists the
// build bookkeeping (problem type, column names, norms) into the metadata
// record, so the dictionary can be reconstructed from metadata alone.
func (s *SpectrumImage) BuildDictionary(mode Mode, opts BuildOptions) (*Dictionary, error) {
	if mode == ModeIdentity {
		dict := &Dictionary{mode: ModeIdentity}
		s.Meta.Model = &ModelMeta{ProblemType: string(mode)}
		s.dict = dict
		return dict, nil
	}

	if len(s.Meta.Sample.Elements) == 0 {
		return nil, fmt.Errorf("%w: element list (call SetElements first)", ErrMissingMetadata)
	}
	params, err := s.Meta.ModelParams()
	if err != nil {
		return nil, err
	}
	model, err := edxs.NewModel(params)
	if err != nil {
		return nil, err
	}

	g, err := model.BuildG(edxs.GSpec{
		Elements:         s.Meta.Sample.Elements,
		ReferenceCutoffs: opts.ReferenceCutoffs,
		Stoichiometries:  opts.Stoichiometries,
		WithBackground:   mode == ModeBremsstrahlung,
	})
	if err != nil {
		return nil, err
	}

	dict := &Dictionary{
		mode:     mode,
		matrix:   g,
		elements: model.ModelElements(),
		norms:    model.Norms(),
		energies: model.Energies(),
	}
	if mode == ModeBremsstrahlung {
		dict.model = model
	}

	s.Meta.Model = &ModelMeta{
		ProblemType:      string(mode),
		Elements:         dict.elements,
		Norms:            dict.norms,
		ReferenceCutoffs: opts.ReferenceCutoffs,
		Stoichiometries:  opts.Stoichiometries,
	}
	s.dict = dict
	return dict, nil
}
