package eds

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/adriente/esmpy/internal/edxs"
)

// Metadata is the serialisable configuration record of one dataset. It is
// the single persistence surface of the core: a successful dictionary
// build writes its bookkeeping back here, so the dictionary can be rebuilt
// from the record alone without re-running the physics.
type Metadata struct {
	// Beam and stage geometry
	BeamKeV      float64 `json:"beam_kev"`
	StageTiltDeg float64 `json:"stage_tilt_deg"`

	Detector DetectorMeta `json:"detector"`
	Sample   SampleMeta   `json:"sample"`

	// XRayDB names the emission-line table used for synthesis.
	XRayDB string `json:"xray_db,omitempty"`

	// Axis is the energy calibration of the signal dimension.
	Axis edxs.EnergyAxis `json:"axis"`

	// Spatial describes the navigation dimensions and their pixel scale
	// in physical units (used to convert ROI coordinates to pixels).
	Spatial SpatialMeta `json:"spatial"`

	// Model is written back by BuildDictionary after a successful build.
	Model *ModelMeta `json:"eds_model,omitempty"`

	// Truth holds reference phases and maps for simulated datasets.
	Truth *TruthMeta `json:"truth,omitempty"`
}

// DetectorMeta describes the detector geometry and response.
type DetectorMeta struct {
	Spec           edxs.DetectorSpec `json:"spec"`
	WidthSlope     float64           `json:"width_slope"`
	WidthIntercept float64           `json:"width_intercept"`
	AzimuthDeg     float64           `json:"azimuth_deg"`
	ElevationDeg   float64           `json:"elevation_deg"`
	TakeOffDeg     float64           `json:"takeoff_deg,omitempty"`
}

// SampleMeta describes the specimen.
type SampleMeta struct {
	ThicknessCm float64  `json:"thickness_cm"`
	DensityGcm3 float64  `json:"density_gcm3"`
	Elements    []string `json:"elements,omitempty"`
}

// SpatialMeta describes the navigation axes.
type SpatialMeta struct {
	Height int     `json:"height"`
	Width  int     `json:"width"`
	ScaleX float64 `json:"scale_x"` // physical units per pixel, x axis
	ScaleY float64 `json:"scale_y"` // physical units per pixel, y axis
}

// ModelMeta is the dictionary bookkeeping persisted after a build.
type ModelMeta struct {
	ProblemType      string             `json:"problem_type"`
	Elements         []string           `json:"elements"`
	Norms            []float64          `json:"norms"`
	ReferenceCutoffs map[string]float64 `json:"reference_cutoffs,omitempty"`
	Stoichiometries  []string           `json:"stoichiometries,omitempty"`
}

// TruthMeta stores reference phase spectra (channels x phases) and spatial
// maps (height x width x phases) for simulated data. Observational only.
type TruthMeta struct {
	Phases [][]float64   `json:"phases"`
	Maps   [][][]float64 `json:"maps"`
}

// maxMetadataFileSize caps metadata reads; truth maps can be sizable.
const maxMetadataFileSize = 64 * 1024 * 1024

// LoadMetadata reads a metadata record from a JSON file. The path must
// carry a .json extension and the file must be under the size cap.
func LoadMetadata(path string) (*Metadata, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("metadata file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat metadata file: %w", err)
	}
	if fileInfo.Size() > maxMetadataFileSize {
		return nil, fmt.Errorf("metadata file too large: %d bytes (max %d)", fileInfo.Size(), maxMetadataFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}
	return &meta, nil
}

// Save writes the record to a JSON file, indented for inspection.
func (m *Metadata) Save(path string) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("metadata file must have .json extension, got %q", ext)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return os.WriteFile(cleanPath, data, 0644)
}

// TakeOffAngle computes the detector take-off angle in degrees from the
// stage tilt and the detector azimuth and elevation angles.
func TakeOffAngle(tiltDeg, azimuthDeg, elevationDeg float64) float64 {
	a := (90 + tiltDeg) * math.Pi / 180
	b := azimuthDeg * math.Pi / 180
	c := elevationDeg * math.Pi / 180
	return math.Asin(-math.Cos(a)*math.Cos(b)*math.Cos(c)+math.Sin(a)*math.Sin(c)) * 180 / math.Pi
}

// EffectiveTakeOffDeg returns the stored take-off angle, deriving it from
// the geometry when it has not been set explicitly.
func (m *Metadata) EffectiveTakeOffDeg() float64 {
	if m.Detector.TakeOffDeg != 0 {
		return m.Detector.TakeOffDeg
	}
	return TakeOffAngle(m.StageTiltDeg, m.Detector.AzimuthDeg, m.Detector.ElevationDeg)
}

// ModelParams assembles the physics parameters for a dictionary build.
// Every required parameter must be present: absent beam energy, detector
// or absorption parameters yield ErrMissingMetadata. Axis validity is
// checked by the model itself.
func (m *Metadata) ModelParams() (edxs.Params, error) {
	if m.BeamKeV <= 0 {
		return edxs.Params{}, fmt.Errorf("%w: beam energy", ErrMissingMetadata)
	}
	if m.Detector.Spec.Type == "" && len(m.Detector.Spec.Layers) == 0 {
		return edxs.Params{}, fmt.Errorf("%w: detector type", ErrMissingMetadata)
	}
	if m.Detector.WidthIntercept <= 0 {
		return edxs.Params{}, fmt.Errorf("%w: detector width calibration", ErrMissingMetadata)
	}
	if m.Sample.ThicknessCm <= 0 || m.Sample.DensityGcm3 <= 0 {
		return edxs.Params{}, fmt.Errorf("%w: absorption parameters (thickness, density)", ErrMissingMetadata)
	}

	return edxs.Params{
		BeamKeV:        m.BeamKeV,
		Axis:           m.Axis,
		WidthSlope:     m.Detector.WidthSlope,
		WidthIntercept: m.Detector.WidthIntercept,
		DBName:         m.XRayDB,
		Detector:       m.Detector.Spec,
		Abs: edxs.AbsorptionParams{
			ThicknessCm: m.Sample.ThicknessCm,
			DensityGcm3: m.Sample.DensityGcm3,
			TakeOffDeg:  m.EffectiveTakeOffDeg(),
		},
	}, nil
}
