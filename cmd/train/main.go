// Command train fits the next-day model on the CSV tables in the data
// directory and writes the model artifact and its report.
package main

import (
	"flag"

	"github.com/i474232898/pm25-forecast/internal/config"
	"github.com/i474232898/pm25-forecast/internal/gbm"
	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/pipeline"
)

func main() {
	city := flag.String("city", "Delhi", "City the tables were fetched for")
	dataDir := flag.String("data-dir", "", "Input directory (default DATA_DIR)")
	modelPath := flag.String("model", "", "Artifact path (default MODEL_PATH)")
	parquet := flag.Bool("parquet", false, "Also export daily feature rows as Parquet")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}

	p := pipeline.New(nil, pipeline.Options{
		DataDir:       cfg.DataDir,
		ModelPath:     cfg.ModelPath,
		ExportParquet: *parquet,
		Params:        gbm.DefaultParams(),
	}, nil, nil)

	res, err := p.TrainFromCSV(*city)
	if err != nil {
		logger.Fatalf("training failed: %v", err)
	}
	logger.Infof("holdout RMSE %.2f on %d rows; model %s saved to %s",
		res.HoldoutRMSE, res.HoldoutRows, res.Artifact.ID, cfg.ModelPath)
}
