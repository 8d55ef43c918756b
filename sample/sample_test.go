package sample

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEmbedded(t *testing.T) {
	r, err := Open("")
	require.NoError(t, err)
	defer r.Close()

	td, err := timedataset.LoadCSV(r, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, td.Len())

	freq, err := timedataset.TimeSlice(td.T).EstimateFreq()
	require.NoError(t, err)
	assert.Equal(t, "24h0m0s", freq.String())
}

func TestOpenPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, os.WriteFile(path, []byte("ts,y\n2024-01-01,1\n2024-01-02,2\n"), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	td, err := timedataset.LoadCSV(r, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, td.Y)

	_, err = Open(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBytesIsCopy(t *testing.T) {
	b := Bytes()
	require.NotEmpty(t, b)
	b[0] = 'X'
	assert.NotEqual(t, b[0], Bytes()[0])
}
