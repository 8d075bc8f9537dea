package internaldefs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	require.Equal(t, [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}, got)
}

func TestDefinitionNamesUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, d := range CounterDefs {
		require.False(t, seen[d.Name], d.Name)
		seen[d.Name] = true
	}
	for _, d := range HistogramDefs {
		require.False(t, seen[d.Name], d.Name)
		seen[d.Name] = true
	}
}
