// Package periodic provides element symbol/number lookups and chemical
// formula parsing for the EDS model packages.
package periodic

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownElement is returned when an identifier matches neither a known
// atomic number nor a known chemical symbol.
var ErrUnknownElement = errors.New("unknown element")

// ErrBadFormula is returned when a chemical formula string cannot be parsed.
var ErrBadFormula = errors.New("malformed chemical formula")

type element struct {
	Z      int
	Symbol string
	Mass   float64 // standard atomic weight, g/mol
}

// elements lists Z 1..103 in order. Masses are standard atomic weights;
// for elements with no stable isotope the mass number of the most stable
// isotope is used.
var elements = []element{
	{1, "H", 1.008}, {2, "He", 4.0026}, {3, "Li", 6.94}, {4, "Be", 9.0122},
	{5, "B", 10.81}, {6, "C", 12.011}, {7, "N", 14.007}, {8, "O", 15.999},
	{9, "F", 18.998}, {10, "Ne", 20.180}, {11, "Na", 22.990}, {12, "Mg", 24.305},
	{13, "Al", 26.982}, {14, "Si", 28.085}, {15, "P", 30.974}, {16, "S", 32.06},
	{17, "Cl", 35.45}, {18, "Ar", 39.948}, {19, "K", 39.098}, {20, "Ca", 40.078},
	{21, "Sc", 44.956}, {22, "Ti", 47.867}, {23, "V", 50.942}, {24, "Cr", 51.996},
	{25, "Mn", 54.938}, {26, "Fe", 55.845}, {27, "Co", 58.933}, {28, "Ni", 58.693},
	{29, "Cu", 63.546}, {30, "Zn", 65.38}, {31, "Ga", 69.723}, {32, "Ge", 72.630},
	{33, "As", 74.922}, {34, "Se", 78.971}, {35, "Br", 79.904}, {36, "Kr", 83.798},
	{37, "Rb", 85.468}, {38, "Sr", 87.62}, {39, "Y", 88.906}, {40, "Zr", 91.224},
	{41, "Nb", 92.906}, {42, "Mo", 95.95}, {43, "Tc", 98.0}, {44, "Ru", 101.07},
	{45, "Rh", 102.91}, {46, "Pd", 106.42}, {47, "Ag", 107.87}, {48, "Cd", 112.41},
	{49, "In", 114.82}, {50, "Sn", 118.71}, {51, "Sb", 121.76}, {52, "Te", 127.60},
	{53, "I", 126.90}, {54, "Xe", 131.29}, {55, "Cs", 132.91}, {56, "Ba", 137.33},
	{57, "La", 138.91}, {58, "Ce", 140.12}, {59, "Pr", 140.91}, {60, "Nd", 144.24},
	{61, "Pm", 145.0}, {62, "Sm", 150.36}, {63, "Eu", 151.96}, {64, "Gd", 157.25},
	{65, "Tb", 158.93}, {66, "Dy", 162.50}, {67, "Ho", 164.93}, {68, "Er", 167.26},
	{69, "Tm", 168.93}, {70, "Yb", 173.05}, {71, "Lu", 174.97}, {72, "Hf", 178.49},
	{73, "Ta", 180.95}, {74, "W", 183.84}, {75, "Re", 186.21}, {76, "Os", 190.23},
	{77, "Ir", 192.22}, {78, "Pt", 195.08}, {79, "Au", 196.97}, {80, "Hg", 200.59},
	{81, "Tl", 204.38}, {82, "Pb", 207.2}, {83, "Bi", 208.98}, {84, "Po", 209.0},
	{85, "At", 210.0}, {86, "Rn", 222.0}, {87, "Fr", 223.0}, {88, "Ra", 226.0},
	{89, "Ac", 227.0}, {90, "Th", 232.04}, {91, "Pa", 231.04}, {92, "U", 238.03},
	{93, "Np", 237.0}, {94, "Pu", 244.0}, {95, "Am", 243.0}, {96, "Cm", 247.0},
	{97, "Bk", 247.0}, {98, "Cf", 251.0}, {99, "Es", 252.0}, {100, "Fm", 257.0},
	{101, "Md", 258.0}, {102, "No", 259.0}, {103, "Lr", 262.0},
}

var (
	bySymbol = make(map[string]element, len(elements))
	byNumber = make(map[int]element, len(elements))
)

func init() {
	for _, e := range elements {
		bySymbol[e.Symbol] = e
		byNumber[e.Z] = e
	}
}

// Symbol returns the chemical symbol for an atomic number.
func Symbol(z int) (string, error) {
	e, ok := byNumber[z]
	if !ok {
		return "", fmt.Errorf("%w: atomic number %d", ErrUnknownElement, z)
	}
	return e.Symbol, nil
}

// Number returns the atomic number for a chemical symbol.
func Number(symbol string) (int, error) {
	e, ok := bySymbol[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: symbol %q", ErrUnknownElement, symbol)
	}
	return e.Z, nil
}

// Mass returns the standard atomic weight for an atomic number, in g/mol.
func Mass(z int) (float64, error) {
	e, ok := byNumber[z]
	if !ok {
		return 0, fmt.Errorf("%w: atomic number %d", ErrUnknownElement, z)
	}
	return e.Mass, nil
}

// MassOf returns the standard atomic weight for a chemical symbol, in g/mol.
func MassOf(symbol string) (float64, error) {
	e, ok := bySymbol[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: symbol %q", ErrUnknownElement, symbol)
	}
	return e.Mass, nil
}

// IsSymbol reports whether s is a known chemical symbol.
func IsSymbol(s string) bool {
	_, ok := bySymbol[s]
	return ok
}

// Normalize converts a mixed identifier to a chemical symbol. It accepts a
// symbol ("Fe") or an atomic number given as an int-like string ("26").
func Normalize(id string) (string, error) {
	if IsSymbol(id) {
		return id, nil
	}
	if z, err := strconv.Atoi(id); err == nil {
		return Symbol(z)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownElement, id)
}

// FormulaTerm is one element/count pair of a parsed chemical formula.
type FormulaTerm struct {
	Symbol string
	Count  int
}

// ParseFormula parses a stoichiometric formula such as "Fe2O3" or "FeO"
// into element/count terms in appearance order. Counts default to 1.
// Nested groups and charges are not supported.
func ParseFormula(formula string) ([]FormulaTerm, error) {
	if formula == "" {
		return nil, fmt.Errorf("%w: empty string", ErrBadFormula)
	}
	var terms []FormulaTerm
	i := 0
	for i < len(formula) {
		c := formula[i]
		if c < 'A' || c > 'Z' {
			return nil, fmt.Errorf("%w: %q at position %d", ErrBadFormula, formula, i)
		}
		sym := string(c)
		i++
		// Multi-letter symbols use one or two trailing lowercase letters.
		for i < len(formula) && formula[i] >= 'a' && formula[i] <= 'z' {
			sym += string(formula[i])
			i++
		}
		if !IsSymbol(sym) {
			return nil, fmt.Errorf("%w: symbol %q in formula %q", ErrUnknownElement, sym, formula)
		}
		count := 0
		for i < len(formula) && formula[i] >= '0' && formula[i] <= '9' {
			count = count*10 + int(formula[i]-'0')
			i++
		}
		if count == 0 {
			count = 1
		}
		terms = append(terms, FormulaTerm{Symbol: sym, Count: count})
	}
	return terms, nil
}

// IsFormula reports whether s parses as a multi-element stoichiometric
// formula. Single bare symbols are not considered formulas.
func IsFormula(s string) bool {
	if IsSymbol(s) {
		return false
	}
	terms, err := ParseFormula(s)
	return err == nil && len(terms) > 0
}
