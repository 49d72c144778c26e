package iwd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdsRange(t *testing.T) {
	th := NewThresholds([]int16{-60, -40, -50})
	assert.Equal(t, []int16{-40, -50, -60}, th.Levels())

	tests := []struct {
		index int
		want  LevelRange
		str   string
	}{
		{0, LevelRange{Min: Bound{Included, -40}}, "[-40, +inf) dBm"},
		{1, LevelRange{Min: Bound{Included, -50}, Max: Bound{Excluded, -40}}, "[-50, -40) dBm"},
		{2, LevelRange{Min: Bound{Included, -60}, Max: Bound{Excluded, -50}}, "[-60, -50) dBm"},
		{3, LevelRange{Max: Bound{Excluded, -60}}, "(-inf, -60) dBm"},
	}
	for _, tt := range tests {
		got, err := th.Range(tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "index %d", tt.index)
		assert.Equal(t, tt.str, got.String())
	}

	_, err := th.Range(4)
	assert.ErrorIs(t, err, ErrLevelOutOfRange)
	_, err = th.Range(-1)
	assert.ErrorIs(t, err, ErrLevelOutOfRange)
}

func TestThresholdsPartition(t *testing.T) {
	th := NewThresholds([]int16{-40, -50, -60})
	for dbm := int16(-100); dbm <= 0; dbm++ {
		n := 0
		for i := 0; i <= th.Len(); i++ {
			r, err := th.Range(i)
			require.NoError(t, err)
			if r.Contains(dbm) {
				n++
			}
		}
		assert.Equal(t, 1, n, "%d dBm must fall in exactly one level", dbm)
	}
}

func TestThresholdsKeepDuplicates(t *testing.T) {
	th := NewThresholds([]int16{-70, -70, -50})
	assert.Equal(t, []int16{-50, -70, -70}, th.Levels())

	r, err := th.Range(2)
	require.NoError(t, err)
	assert.False(t, r.Contains(-70), "empty level between equal thresholds")
}

func TestThresholdsEmpty(t *testing.T) {
	th := NewThresholds(nil)
	r, err := th.Range(0)
	require.NoError(t, err)
	assert.Equal(t, LevelRange{}, r)
	assert.True(t, r.Contains(-90))
}

func TestNewThresholdsCopies(t *testing.T) {
	in := []int16{-80, -60}
	th := NewThresholds(in)
	in[0] = 0
	assert.Equal(t, []int16{-60, -80}, th.Levels())
}
