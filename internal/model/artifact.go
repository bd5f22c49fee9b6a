// Package model persists and loads trained forecast models.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/gbm"
)

// FormatVersion is bumped whenever the on-disk layout changes.
const FormatVersion = 1

var (
	// ErrFeatureOrderMismatch is returned when a feature vector or persisted
	// column list disagrees with the column order the booster was fitted on.
	ErrFeatureOrderMismatch = errors.New("feature order mismatch")

	// ErrArtifactNotFound is returned when no artifact exists at the path.
	ErrArtifactNotFound = errors.New("model artifact not found")
)

// Artifact bundles a fitted booster with its ordered feature columns.
type Artifact struct {
	Version     int          `json:"version"`
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	City        string       `json:"city,omitempty"`
	Features    []string     `json:"features"`
	HoldoutRMSE float64      `json:"holdout_rmse"`
	TrainRows   int          `json:"train_rows"`
	HoldoutRows int          `json:"holdout_rows"`
	Booster     *gbm.Booster `json:"model"`
}

// NewArtifact wraps a fitted booster. The persisted column list is taken
// from the booster itself.
func NewArtifact(b *gbm.Booster, city string) *Artifact {
	return &Artifact{
		Version:   FormatVersion,
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		City:      city,
		Features:  append([]string(nil), b.Features...),
		Booster:   b,
	}
}

// Validate checks that the persisted column list matches the booster's
// fit-time order element for element.
func (a *Artifact) Validate() error {
	if a.Booster == nil {
		return errors.New("artifact has no model")
	}
	if a.Version != FormatVersion {
		return fmt.Errorf("artifact format version %d, want %d", a.Version, FormatVersion)
	}
	if len(a.Features) != len(a.Booster.Features) {
		return fmt.Errorf("%d persisted columns vs %d fitted: %w", len(a.Features), len(a.Booster.Features), ErrFeatureOrderMismatch)
	}
	for i := range a.Features {
		if a.Features[i] != a.Booster.Features[i] {
			return fmt.Errorf("column %d is %q, model was fitted with %q: %w", i, a.Features[i], a.Booster.Features[i], ErrFeatureOrderMismatch)
		}
	}
	return a.Booster.Validate()
}

// Vector lays out named feature values in the artifact's column order.
// Missing or unexpected names are a mismatch.
func (a *Artifact) Vector(values map[string]float64) ([]float64, error) {
	if len(values) != len(a.Features) {
		return nil, fmt.Errorf("%d inputs for %d columns: %w", len(values), len(a.Features), ErrFeatureOrderMismatch)
	}
	out := make([]float64, len(a.Features))
	for i, name := range a.Features {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("input lacks column %q: %w", name, ErrFeatureOrderMismatch)
		}
		out[i] = v
	}
	return out, nil
}

// Predict runs the model on one feature row.
func (a *Artifact) Predict(row features.Row) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	x, err := a.Vector(row.Features())
	if err != nil {
		return 0, err
	}
	return a.Booster.Predict(x)
}

// Save writes the artifact to path, replacing any existing file atomically.
func Save(path string, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(a); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place at %s: %w", path, err)
	}
	return nil
}

// Load reads and validates the artifact at path.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer f.Close()

	var a Artifact
	if err := json.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return &a, nil
}
