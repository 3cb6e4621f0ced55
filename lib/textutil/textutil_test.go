package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "richarddurbin", NormalizeName("  Richard\n Durbin\t"))
	require.Equal(t, "committeeonrules", NormalizeName("Committee  on   Rules"))
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("Senate Judiciary", []string{"judiciary"}))
	require.False(t, MatchName("Senate Judiciary", []string{"finance"}))
}

func TestBestMatch(t *testing.T) {
	candidates := []string{"Richard Durbin", "Charles Grassley", "Jim Jordan"}

	best, similarity, ok := BestMatch("Richard J. Durbin", candidates, 0.85)
	require.True(t, ok)
	require.Equal(t, "Richard Durbin", best)
	require.Greater(t, similarity, 0.85)

	_, _, ok = BestMatch("Alexandria Ocasio-Cortez", candidates, 0.85)
	require.False(t, ok)
}
