package store

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pm25-forecast/internal/features"
)

func featureRows(n int) []features.Row {
	rows := make([]features.Row, n)
	for i := range rows {
		rows[i] = features.Row{
			Date:      time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			PM25:      float64(50 + i),
			DayOfYear: 1 + i,
			Quality:   features.FlagLag7Fallback,
		}
	}
	return rows
}

func TestNewFeatureRecord(t *testing.T) {
	r := featureRows(1)[0]
	r.PM25MA3 = 33
	got := NewFeatureRecord(r)
	assert.Equal(t, r.Date.UnixMilli(), got.Date)
	assert.Equal(t, 33.0, got.PM25MA3)
	assert.Equal(t, int32(1), got.DayOfYear)
	assert.Equal(t, int32(features.FlagLag7Fallback), got.Quality)
}

func TestEncodeFeatures_WritesParquetMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFeatures(&buf, featureRows(12)))

	data := buf.Bytes()
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestWriteFeatures(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFeatures(dir, featureRows(5))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))
}
