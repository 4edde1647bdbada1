package edxs

import (
	"errors"
	"fmt"
)

// ErrCalibration is returned when the energy axis calibration is unusable
// for line-shape evaluation.
var ErrCalibration = errors.New("invalid energy calibration")

// minOffsetKeV is the smallest usable axis offset. An axis that reaches
// zero (or goes negative) makes the continuum model and the attenuation
// power law blow up, so builds are refused outright.
const minOffsetKeV = 0.01

// EnergyAxis describes a linear energy calibration: channel i sits at
// OffsetKeV + i*ScaleKeV.
type EnergyAxis struct {
	OffsetKeV float64 `json:"offset_kev"`
	ScaleKeV  float64 `json:"scale_kev"`
	Size      int     `json:"size"`
}

// Validate checks that the axis can be evaluated everywhere.
func (a EnergyAxis) Validate() error {
	if a.Size <= 0 {
		return fmt.Errorf("%w: axis size %d", ErrCalibration, a.Size)
	}
	if a.ScaleKeV <= 0 {
		return fmt.Errorf("%w: axis scale %g keV/channel", ErrCalibration, a.ScaleKeV)
	}
	if a.OffsetKeV <= minOffsetKeV {
		return fmt.Errorf("%w: axis offset %g keV must exceed %g (energy scale cannot include zero)",
			ErrCalibration, a.OffsetKeV, minOffsetKeV)
	}
	return nil
}

// Values returns the per-channel energies in keV.
func (a EnergyAxis) Values() []float64 {
	vs := make([]float64, a.Size)
	for i := range vs {
		vs[i] = a.OffsetKeV + float64(i)*a.ScaleKeV
	}
	return vs
}

// Index returns the channel index closest below the given energy, clamped
// to the axis range.
func (a EnergyAxis) Index(energyKeV float64) int {
	i := int((energyKeV - a.OffsetKeV) / a.ScaleKeV)
	if i < 0 {
		return 0
	}
	if i >= a.Size {
		return a.Size - 1
	}
	return i
}
