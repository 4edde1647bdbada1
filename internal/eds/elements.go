package eds

import (
	"fmt"
	"strings"

	"github.com/adriente/esmpy/internal/periodic"
)

// splitSuffixes mark a column synthesized over a restricted energy range.
const (
	suffixLo = "_lo"
	suffixHi = "_hi"
)

// StripSplitSuffix removes a trailing _lo/_hi split-range tag.
func StripSplitSuffix(id string) string {
	if strings.HasSuffix(id, suffixLo) || strings.HasSuffix(id, suffixHi) {
		return id[:len(id)-3]
	}
	return id
}

// ResolveElements normalises a heterogeneous identifier list (atomic
// numbers as strings, chemical symbols, split-line names, compound
// formulas, mixed) into canonical symbols. Split suffixes are stripped
// before lookup, so "26_lo" and "Fe_hi" both collapse to "Fe"; compound
// formulas are left unchanged; duplicates after stripping and conversion
// are dropped, keeping first-occurrence order. Unresolvable identifiers
// fail the call with periodic.ErrUnknownElement.
func ResolveElements(raw []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, id := range raw {
		base := StripSplitSuffix(id)

		resolved, err := periodic.Normalize(base)
		if err != nil {
			// Compound formulas are not single symbols; keep them as-is.
			if periodic.IsFormula(base) {
				resolved = base
			} else {
				return nil, fmt.Errorf("resolve %q: %w", id, err)
			}
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out, nil
}

// ResolveNumbers converts a list of atomic numbers to symbols.
func ResolveNumbers(numbers []int) ([]string, error) {
	out := make([]string, len(numbers))
	for i, z := range numbers {
		sym, err := periodic.Symbol(z)
		if err != nil {
			return nil, err
		}
		out[i] = sym
	}
	return out, nil
}

// FullElementNames converts dictionary column names to display names:
// numeric identifiers become symbols, split tags and compounds pass
// through unchanged.
func FullElementNames(modelElements []string) []string {
	out := make([]string, len(modelElements))
	for i, name := range modelElements {
		if sym, err := periodic.Normalize(name); err == nil {
			out[i] = sym
		} else {
			out[i] = name
		}
	}
	return out
}
