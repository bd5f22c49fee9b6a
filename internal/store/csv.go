// Package store persists observation tables, feature exports and issued
// predictions.
package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/i474232898/pm25-forecast/internal/airquality"
)

// File names used inside a data directory.
const (
	PM25File    = "pm25_data.csv"
	WeatherFile = "weather_data.csv"
	FeatureFile = "features.parquet"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Timestamp is a UTC instant encoded as RFC 3339 in CSV cells. Decoding also
// accepts space separated and minute precision forms.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalCSV() ([]byte, error) {
	return []byte(t.UTC().Format(time.RFC3339)), nil
}

func (t *Timestamp) UnmarshalCSV(data []byte) error {
	s := strings.TrimSpace(string(data))
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// PM25Record is one row of the PM2.5 table.
type PM25Record struct {
	Timestamp Timestamp `csv:"timestamp"`
	PM25      float64   `csv:"pm25"`
}

// WeatherRecord is one row of the meteorology table.
type WeatherRecord struct {
	Timestamp        Timestamp `csv:"timestamp"`
	Temperature      float64   `csv:"temperature"`
	RelativeHumidity float64   `csv:"relativehumidity"`
	WindSpeed        float64   `csv:"windspeed"`
}

// EncodePM25 writes observations as CSV with a header row.
func EncodePM25(w io.Writer, obs []airquality.PM25Observation) error {
	records := make([]PM25Record, len(obs))
	for i, o := range obs {
		records[i] = PM25Record{Timestamp: Timestamp{o.Time}, PM25: o.PM25}
	}
	return encode(w, records, PM25Record{})
}

// DecodePM25 reads a CSV table written by EncodePM25.
func DecodePM25(r io.Reader) ([]airquality.PM25Observation, error) {
	var records []PM25Record
	if err := decode(r, &records); err != nil {
		return nil, fmt.Errorf("failed to decode PM2.5 CSV data: %w", err)
	}
	out := make([]airquality.PM25Observation, len(records))
	for i, rec := range records {
		out[i] = airquality.PM25Observation{Time: rec.Timestamp.Time, PM25: rec.PM25}
	}
	return out, nil
}

// EncodeWeather writes observations as CSV with a header row.
func EncodeWeather(w io.Writer, obs []airquality.MeteoObservation) error {
	records := make([]WeatherRecord, len(obs))
	for i, o := range obs {
		records[i] = WeatherRecord{
			Timestamp:        Timestamp{o.Time},
			Temperature:      o.Temperature,
			RelativeHumidity: o.RelativeHumidity,
			WindSpeed:        o.WindSpeed,
		}
	}
	return encode(w, records, WeatherRecord{})
}

// DecodeWeather reads a CSV table written by EncodeWeather.
func DecodeWeather(r io.Reader) ([]airquality.MeteoObservation, error) {
	var records []WeatherRecord
	if err := decode(r, &records); err != nil {
		return nil, fmt.Errorf("failed to decode weather CSV data: %w", err)
	}
	out := make([]airquality.MeteoObservation, len(records))
	for i, rec := range records {
		out[i] = airquality.MeteoObservation{
			Time:             rec.Timestamp.Time,
			Temperature:      rec.Temperature,
			RelativeHumidity: rec.RelativeHumidity,
			WindSpeed:        rec.WindSpeed,
		}
	}
	return out, nil
}

// WriteTables writes both tables into dir, replacing existing files.
func WriteTables(dir string, h *airquality.History) error {
	var pm, met bytes.Buffer
	if err := EncodePM25(&pm, h.PM25); err != nil {
		return fmt.Errorf("failed to encode PM2.5 table: %w", err)
	}
	if err := EncodeWeather(&met, h.Meteo); err != nil {
		return fmt.Errorf("failed to encode weather table: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, PM25File), pm.Bytes()); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, WeatherFile), met.Bytes())
}

// ReadTables loads both tables from dir.
func ReadTables(dir string) ([]airquality.PM25Observation, []airquality.MeteoObservation, error) {
	pm, err := readFile(filepath.Join(dir, PM25File), DecodePM25)
	if err != nil {
		return nil, nil, err
	}
	met, err := readFile(filepath.Join(dir, WeatherFile), DecodeWeather)
	if err != nil {
		return nil, nil, err
	}
	return pm, met, nil
}

func readFile[T any](path string, dec func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	out, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func encode[T any](w io.Writer, records []T, proto T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	var err error
	if len(records) == 0 {
		err = enc.EncodeHeader(proto)
	} else {
		err = enc.Encode(records)
	}
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func decode[T any](r io.Reader, out *[]T) error {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty table: %w", airquality.ErrDataMissing)
		}
		return err
	}
	dec.DisallowMissingColumns = true
	if err := dec.Decode(out); err != nil {
		var missing *csvutil.MissingColumnsError
		if errors.As(err, &missing) {
			return fmt.Errorf("%v: %w", err, airquality.ErrDataMissing)
		}
		return err
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
