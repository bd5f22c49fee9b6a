package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/pm25-forecast/internal/gbm"
)

// Report is the human-readable summary written next to the artifact.
type Report struct {
	ArtifactID   string         `yaml:"artifact_id"`
	City         string         `yaml:"city,omitempty"`
	CreatedAt    time.Time      `yaml:"created_at"`
	HoldoutRMSE  float64        `yaml:"holdout_rmse"`
	TrainRows    int            `yaml:"train_rows"`
	HoldoutRows  int            `yaml:"holdout_rows"`
	FallbackRows int            `yaml:"fallback_rows"`
	TrainRange   [2]string      `yaml:"train_range,flow"`
	HoldoutRange [2]string      `yaml:"holdout_range,flow"`
	Features     []string       `yaml:"features"`
	SplitCounts  map[string]int `yaml:"split_counts"`
	Params       gbm.Params     `yaml:"params"`
}

// NewReport summarizes a training result.
func NewReport(res *Result) Report {
	a := res.Artifact
	return Report{
		ArtifactID:   a.ID,
		City:         a.City,
		CreatedAt:    a.CreatedAt,
		HoldoutRMSE:  res.HoldoutRMSE,
		TrainRows:    res.TrainRows,
		HoldoutRows:  res.HoldoutRows,
		FallbackRows: res.FallbackRows,
		TrainRange:   [2]string{res.TrainStart.Format("2006-01-02"), res.TrainEnd.Format("2006-01-02")},
		HoldoutRange: [2]string{res.HoldoutStart.Format("2006-01-02"), res.HoldoutEnd.Format("2006-01-02")},
		Features:     a.Features,
		SplitCounts:  res.SplitCounts,
		Params:       a.Booster.Params,
	}
}

// WriteReport writes the YAML training report to path.
func WriteReport(path string, res *Result) error {
	data, err := yaml.Marshal(NewReport(res))
	if err != nil {
		return fmt.Errorf("failed to marshal training report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write training report %s: %w", path, err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training report %s: %w", path, err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal training report: %w", err)
	}
	return &r, nil
}
