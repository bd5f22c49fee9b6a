package store

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/logger"
)

// FeatureRecord is the columnar form of a features.Row.
type FeatureRecord struct {
	Date             int64   `parquet:"name=date,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	PM25             float64 `parquet:"name=pm25,type=DOUBLE"`
	Temperature      float64 `parquet:"name=temperature,type=DOUBLE"`
	RelativeHumidity float64 `parquet:"name=relativehumidity,type=DOUBLE"`
	WindSpeed        float64 `parquet:"name=windspeed,type=DOUBLE"`
	PM25Lag1         float64 `parquet:"name=pm25_lag_1,type=DOUBLE"`
	PM25Lag2         float64 `parquet:"name=pm25_lag_2,type=DOUBLE"`
	PM25Lag3         float64 `parquet:"name=pm25_lag_3,type=DOUBLE"`
	PM25Lag7         float64 `parquet:"name=pm25_lag_7,type=DOUBLE"`
	PM25MA3          float64 `parquet:"name=pm25_ma_3,type=DOUBLE"`
	DayOfYear        int32   `parquet:"name=dayofyear,type=INT32"`
	Quality          int32   `parquet:"name=quality,type=INT32"`
}

// NewFeatureRecord converts a feature row.
func NewFeatureRecord(r features.Row) FeatureRecord {
	return FeatureRecord{
		Date:             r.Date.UnixMilli(),
		PM25:             r.PM25,
		Temperature:      r.Temperature,
		RelativeHumidity: r.RelativeHumidity,
		WindSpeed:        r.WindSpeed,
		PM25Lag1:         r.PM25Lag1,
		PM25Lag2:         r.PM25Lag2,
		PM25Lag3:         r.PM25Lag3,
		PM25Lag7:         r.PM25Lag7,
		PM25MA3:          r.PM25MA3,
		DayOfYear:        int32(r.DayOfYear),
		Quality:          int32(r.Quality),
	}
}

// EncodeFeatures writes rows as a single snappy-compressed Parquet row group.
func EncodeFeatures(w io.Writer, rows []features.Row) (err error) {
	np := int64(len(rows))
	if np == 0 {
		np = 1
	}
	pw, err := writer.NewParquetWriterFromWriter(w, new(FeatureRecord), np)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range rows {
		if err := pw.Write(NewFeatureRecord(r)); err != nil {
			return fmt.Errorf("failed to write feature row %s: %w", r.Date.Format("2006-01-02"), err)
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parquet writer panicked during WriteStop: %v", rec)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteFeatures exports rows to dir/features.parquet and returns the path.
func WriteFeatures(dir string, rows []features.Row) (string, error) {
	var buf bytes.Buffer
	if err := EncodeFeatures(&buf, rows); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FeatureFile)
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	logger.Infof("exported %d feature rows to %s", len(rows), path)
	return path, nil
}
