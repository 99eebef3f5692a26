// Package store reads and writes the series files consumed and produced by
// the quantlab CLI. Files are Parquet or JSON, chosen by extension.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files that are neither .parquet nor
// .json.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// seriesJSON mirrors the /backtest request body.
type seriesJSON struct {
	Prices  []float64 `json:"prices"`
	Signals []int     `json:"signals"`
}

// pairJSON mirrors the /cointegration request body.
type pairJSON struct {
	SeriesX []float64 `json:"series_x"`
	SeriesY []float64 `json:"series_y"`
}

func format(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// LoadSeries reads prices and signals from a .parquet or .json file. A JSON
// file may omit signals.
func LoadSeries(path string) (prices []float64, signals []int, err error) {
	switch format(path) {
	case ".parquet":
		records, err := ReadSeries(path)
		if err != nil {
			return nil, nil, err
		}
		prices, signals = SeriesColumns(records)
		return prices, signals, nil

	case ".json":
		var doc seriesJSON
		if err := readJSONFile(path, &doc); err != nil {
			return nil, nil, err
		}
		return doc.Prices, doc.Signals, nil

	default:
		return nil, nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// LoadPair reads two aligned series from a .parquet or .json file.
func LoadPair(path string) (x, y []float64, err error) {
	switch format(path) {
	case ".parquet":
		records, err := ReadPairs(path)
		if err != nil {
			return nil, nil, err
		}
		x, y = PairColumns(records)
		return x, y, nil

	case ".json":
		var doc pairJSON
		if err := readJSONFile(path, &doc); err != nil {
			return nil, nil, err
		}
		return doc.SeriesX, doc.SeriesY, nil

	default:
		return nil, nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
