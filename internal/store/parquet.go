package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"quantlab/internal/domain"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// SeriesRecord is one row of a backtest input file. Signal is the position
// held from this row's price to the next.
type SeriesRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Signal    int64   `parquet:"signal"`
}

// PairRecord is one row of a cointegration input file.
type PairRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	X         float64 `parquet:"x"`
	Y         float64 `parquet:"y"`
}

// BarRecord is the Parquet schema for OHLCV bars.
type BarRecord struct {
	Symbol     string  `parquet:"symbol"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     int64   `parquet:"volume"`
	TradeCount int64   `parquet:"trade_count"`
	VWAP       float64 `parquet:"vwap"`
}

// ---------------------------------------------------------------------------
// Series files
// ---------------------------------------------------------------------------

// WriteSeries writes records to path in the given order, replacing any
// existing file.
func WriteSeries(path string, records []SeriesRecord) error {
	if err := writeParquetFile(path, records); err != nil {
		return fmt.Errorf("writing series %s: %w", path, err)
	}
	return nil
}

// AppendSeries merges records into the file at path, sorted by time. On a
// timestamp already in the file the incoming price wins and the stored
// signal is kept.
func AppendSeries(path string, records []SeriesRecord) error {
	existing, err := readExisting[SeriesRecord](path)
	if err != nil {
		return fmt.Errorf("reading series %s: %w", path, err)
	}
	return WriteSeries(path, mergeSeriesRecords(existing, records))
}

// ReadSeries reads all rows of a series file.
func ReadSeries(path string) ([]SeriesRecord, error) {
	records, err := readParquetFile[SeriesRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading series %s: %w", path, err)
	}
	return records, nil
}

// SeriesColumns splits records into the price and signal columns.
func SeriesColumns(records []SeriesRecord) (prices []float64, signals []int) {
	prices = make([]float64, len(records))
	signals = make([]int, len(records))
	for i, r := range records {
		prices[i] = r.Price
		signals[i] = int(r.Signal)
	}
	return prices, signals
}

// ---------------------------------------------------------------------------
// Pair files
// ---------------------------------------------------------------------------

// WritePairs writes records to path, replacing any existing file.
func WritePairs(path string, records []PairRecord) error {
	if err := writeParquetFile(path, records); err != nil {
		return fmt.Errorf("writing pairs %s: %w", path, err)
	}
	return nil
}

// ReadPairs reads all rows of a pair file.
func ReadPairs(path string) ([]PairRecord, error) {
	records, err := readParquetFile[PairRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading pairs %s: %w", path, err)
	}
	return records, nil
}

// PairColumns splits records into the x and y columns.
func PairColumns(records []PairRecord) (x, y []float64) {
	x = make([]float64, len(records))
	y = make([]float64, len(records))
	for i, r := range records {
		x[i] = r.X
		y[i] = r.Y
	}
	return x, y
}

// ---------------------------------------------------------------------------
// Bar files
// ---------------------------------------------------------------------------

// WriteBars merges bars into the file at path, deduplicating by
// (symbol, timestamp).
func WriteBars(path string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	records := make([]BarRecord, len(bars))
	for i, b := range bars {
		records[i] = BarRecord{
			Symbol:     b.Symbol,
			Timestamp:  b.Timestamp.UnixMilli(),
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			TradeCount: b.TradeCount,
			VWAP:       b.VWAP,
		}
	}

	existing, err := readExisting[BarRecord](path)
	if err != nil {
		return fmt.Errorf("reading bars %s: %w", path, err)
	}
	if err := writeParquetFile(path, mergeBarRecords(existing, records)); err != nil {
		return fmt.Errorf("writing bars %s: %w", path, err)
	}
	return nil
}

// ReadBars reads all bars stored at path.
func ReadBars(path string) ([]domain.Bar, error) {
	records, err := readParquetFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading bars %s: %w", path, err)
	}

	bars := make([]domain.Bar, len(records))
	for i, r := range records {
		bars[i] = domain.Bar{
			Symbol:     r.Symbol,
			Timestamp:  time.UnixMilli(r.Timestamp).UTC(),
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Volume:     r.Volume,
			TradeCount: r.TradeCount,
			VWAP:       r.VWAP,
		}
	}
	return bars, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// readExisting reads the rows at path, or nothing if the file does not exist.
func readExisting[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return readParquetFile[T](path)
}

// mergeSeriesRecords deduplicates series records by timestamp. Incoming
// prices replace stored ones; stored signals survive. Results are sorted by
// timestamp.
func mergeSeriesRecords(existing, incoming []SeriesRecord) []SeriesRecord {
	seen := make(map[int64]SeriesRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		if old, ok := seen[r.Timestamp]; ok {
			old.Price = r.Price
			r = old
		}
		seen[r.Timestamp] = r
	}

	merged := make([]SeriesRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

// mergeBarRecords deduplicates bar records by (symbol, timestamp), preferring
// new records over existing ones.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].Symbol < merged[j].Symbol
	})
	return merged
}
