package eds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adriente/esmpy/internal/periodic"
)

func TestResolveElements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"symbols", []string{"Fe", "O"}, []string{"Fe", "O"}},
		{"numbers", []string{"26", "8"}, []string{"Fe", "O"}},
		{"mixed", []string{"26", "O", "Si"}, []string{"Fe", "O", "Si"}},
		{"split suffixes collapse", []string{"Fe_lo", "Fe_hi", "O"}, []string{"Fe", "O"}},
		{"numeric split suffix", []string{"26_lo", "26_hi"}, []string{"Fe"}},
		{"compound passes through", []string{"Fe2O3", "Si"}, []string{"Fe2O3", "Si"}},
		{"duplicates dropped in order", []string{"O", "Fe", "8", "26"}, []string{"O", "Fe"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveElements(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveElementsUnknown(t *testing.T) {
	t.Parallel()

	_, err := ResolveElements([]string{"Fe", "Xx"})
	assert.ErrorIs(t, err, periodic.ErrUnknownElement)

	_, err = ResolveElements([]string{"999"})
	assert.ErrorIs(t, err, periodic.ErrUnknownElement)
}

// The resolved list must have no duplicates after suffix stripping: its
// length equals the deduplicated stripped input length.
func TestResolveElementsNoDuplicateRows(t *testing.T) {
	t.Parallel()

	in := []string{"Fe_lo", "Fe_hi", "26", "O", "8", "Fe2O3", "Fe2O3"}
	got, err := ResolveElements(in)
	require.NoError(t, err)

	stripped := make(map[string]bool)
	for _, id := range in {
		base := StripSplitSuffix(id)
		if sym, err := periodic.Normalize(base); err == nil {
			base = sym
		}
		stripped[base] = true
	}
	assert.Len(t, got, len(stripped))

	seen := make(map[string]bool)
	for _, name := range got {
		assert.False(t, seen[name], "duplicate row %q", name)
		seen[name] = true
	}
}

func TestFullElementNames(t *testing.T) {
	t.Parallel()

	got := FullElementNames([]string{"26", "Fe_lo", "Fe2O3", "O"})
	assert.Equal(t, []string{"Fe", "Fe_lo", "Fe2O3", "O"}, got)
}
