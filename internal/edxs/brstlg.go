package edxs

// Parametric continuum (bremsstrahlung) basis. The two shape functions are
// linear in their coefficients b0 and b1, so they can be carried as two
// extra dictionary columns and the solver learns b0/b1 as component
// weights:
//
//	f0(E) = (E0 - E) / (E0 * E)
//	f1(E) = (E0 - E)^2 / (E0^2 * E)
//
// Both are multiplied by detector efficiency and the thin-film absorption
// correction before entering the dictionary.

func continuumShape0(beamKeV, energyKeV float64) float64 {
	if energyKeV <= 0 || energyKeV >= beamKeV {
		return 0
	}
	return (beamKeV - energyKeV) / (beamKeV * energyKeV)
}

func continuumShape1(beamKeV, energyKeV float64) float64 {
	if energyKeV <= 0 || energyKeV >= beamKeV {
		return 0
	}
	d := beamKeV - energyKeV
	return d * d / (beamKeV * beamKeV * energyKeV)
}
