package model

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/gbm"
)

func sampleRow(i int) features.Row {
	f := float64(i)
	return features.Row{
		Date:             time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		PM25:             50 + 5*f,
		Temperature:      10 + f,
		RelativeHumidity: 60 - f,
		WindSpeed:        2 + float64(i%3),
		PM25Lag1:         45 + 5*f,
		PM25Lag2:         40 + 5*f,
		PM25Lag3:         35 + 5*f,
		PM25Lag7:         15 + 5*f,
		PM25MA3:          40 + 5*f,
		DayOfYear:        1 + i,
	}
}

func trainedArtifact(t *testing.T) *Artifact {
	t.Helper()
	cols := features.ColumnNames()
	var x [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		r := sampleRow(i)
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j], _ = r.Value(c)
		}
		x = append(x, row)
		y = append(y, r.PM25)
	}
	p := gbm.DefaultParams()
	p.NEstimators = 20
	b, err := gbm.Fit(x, y, cols, p)
	require.NoError(t, err)
	return NewArtifact(b, "Delhi")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	a := trainedArtifact(t)
	path := filepath.Join(t.TempDir(), "nested", "model.json")

	require.NoError(t, Save(path, a))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, a.ID, loaded.ID)
	assert.Equal(t, features.ColumnNames(), loaded.Features)

	row := sampleRow(5)
	want, err := a.Predict(row)
	require.NoError(t, err)
	got, err := loaded.Predict(row)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	first := trainedArtifact(t)
	second := trainedArtifact(t)

	require.NoError(t, Save(path, first))
	require.NoError(t, Save(path, second))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, second.ID, loaded.ID)
}

func TestLoad_ShuffledPersistedOrderIsDetected(t *testing.T) {
	a := trainedArtifact(t)
	shuffled := append([]string(nil), a.Features...)
	shuffled[0], shuffled[3] = shuffled[3], shuffled[0]
	a.Features = shuffled

	// bypass Save, which refuses inconsistent artifacts
	data, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrFeatureOrderMismatch)

	assert.ErrorIs(t, Save(path, a), ErrFeatureOrderMismatch)
	_, err = a.Predict(sampleRow(1))
	assert.ErrorIs(t, err, ErrFeatureOrderMismatch)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestVector_FollowsArtifactOrder(t *testing.T) {
	a := trainedArtifact(t)
	in := map[string]float64{}
	for i, c := range a.Features {
		in[c] = float64(i * 10)
	}

	x, err := a.Vector(in)
	require.NoError(t, err)
	for i := range x {
		assert.Equal(t, float64(i*10), x[i])
	}

	delete(in, features.ColLag7)
	_, err = a.Vector(in)
	assert.ErrorIs(t, err, ErrFeatureOrderMismatch)

	in[features.ColLag7] = 1
	in["pm10"] = 1
	_, err = a.Vector(in)
	assert.ErrorIs(t, err, ErrFeatureOrderMismatch)
}

func TestCache_LoadsLazilyAndReloadsOnPathChange(t *testing.T) {
	loads := map[string]int{}
	c := &Cache{load: func(path string) (*Artifact, error) {
		loads[path]++
		if path == "broken" {
			return nil, errors.New("corrupt")
		}
		return &Artifact{ID: path}, nil
	}}
	assert.Empty(t, loads)

	a, err := c.Get("a.json")
	require.NoError(t, err)
	assert.Equal(t, "a.json", a.ID)
	_, _ = c.Get("a.json")
	assert.Equal(t, 1, loads["a.json"])

	b, err := c.Get("b.json")
	require.NoError(t, err)
	assert.Equal(t, "b.json", b.ID)

	_, err = c.Get("broken")
	assert.Error(t, err)
	again, err := c.Get("b.json")
	require.NoError(t, err)
	assert.Same(t, b, again)

	c.Invalidate()
	_, _ = c.Get("b.json")
	assert.Equal(t, 2, loads["b.json"])
}

func TestShared(t *testing.T) {
	assert.Same(t, Shared(), Shared())
}

func TestLoad_RejectsMalformedTree(t *testing.T) {
	a := trainedArtifact(t)
	var split int
	for i, n := range a.Booster.Trees[0].Nodes {
		if !n.Leaf {
			split = i
			break
		}
	}
	a.Booster.Trees[0].Nodes[split].Left = split // loops forever if walked

	data, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, gbm.ErrMalformedTree)
}
