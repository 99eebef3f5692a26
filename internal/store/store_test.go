package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quantlab/internal/domain"
)

func ms(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli()
}

func TestSeriesWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series", "aapl.parquet")

	records := []SeriesRecord{
		{Timestamp: ms(2024, 1, 2), Price: 185.5, Signal: 1},
		{Timestamp: ms(2024, 1, 3), Price: 186.0, Signal: -1},
		{Timestamp: ms(2024, 1, 4), Price: 184.25, Signal: 0},
	}
	if err := WriteSeries(path, records); err != nil {
		t.Fatalf("WriteSeries: %v", err)
	}

	got, err := ReadSeries(path)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("ReadSeries returned %d records, want %d", len(got), len(records))
	}
	for i := range records {
		if got[i] != records[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], records[i])
		}
	}

	prices, signals := SeriesColumns(got)
	if prices[2] != 184.25 || signals[1] != -1 {
		t.Errorf("SeriesColumns = %v %v", prices, signals)
	}
}

func TestAppendSeriesMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.parquet")

	first := []SeriesRecord{
		{Timestamp: ms(2024, 3, 4), Price: 408, Signal: -1},
		{Timestamp: ms(2024, 3, 1), Price: 403, Signal: 1},
	}
	if err := AppendSeries(path, first); err != nil {
		t.Fatalf("AppendSeries (first): %v", err)
	}

	// Overlapping timestamp: the incoming price replaces the stored one but
	// the stored signal stays.
	second := []SeriesRecord{
		{Timestamp: ms(2024, 3, 4), Price: 409},
		{Timestamp: ms(2024, 3, 5), Price: 411},
	}
	if err := AppendSeries(path, second); err != nil {
		t.Fatalf("AppendSeries (second): %v", err)
	}

	got, err := ReadSeries(path)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	want := []SeriesRecord{
		{Timestamp: ms(2024, 3, 1), Price: 403, Signal: 1},
		{Timestamp: ms(2024, 3, 4), Price: 409, Signal: -1},
		{Timestamp: ms(2024, 3, 5), Price: 411, Signal: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows after merge, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAppendSeriesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.parquet")
	if err := os.WriteFile(path, []byte("not parquet"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := AppendSeries(path, []SeriesRecord{{Timestamp: ms(2024, 3, 1), Price: 1}}); err == nil {
		t.Fatal("AppendSeries over a corrupt file should fail")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "not parquet" {
		t.Error("corrupt file was overwritten")
	}
}

func TestPairsWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.parquet")
	records := []PairRecord{
		{Timestamp: ms(2024, 1, 2), X: 10, Y: 4.5},
		{Timestamp: ms(2024, 1, 3), X: 11, Y: 5},
	}
	if err := WritePairs(path, records); err != nil {
		t.Fatalf("WritePairs: %v", err)
	}

	x, y, err := LoadPair(path)
	if err != nil {
		t.Fatalf("LoadPair: %v", err)
	}
	if len(x) != 2 || x[1] != 11 || y[0] != 4.5 {
		t.Errorf("LoadPair = %v %v", x, y)
	}
}

func TestBarsWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars", "MSFT.parquet")

	bars1 := []domain.Bar{{
		Symbol:    "MSFT",
		Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:      400.0, High: 405.0, Low: 399.0, Close: 403.0,
		Volume: 30000000, TradeCount: 300000, VWAP: 402.0,
	}}
	bars2 := []domain.Bar{{
		Symbol:    "MSFT",
		Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Open:      403.0, High: 410.0, Low: 402.0, Close: 408.0,
		Volume: 35000000, TradeCount: 350000, VWAP: 406.0,
	}}
	if err := WriteBars(path, bars1); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}
	if err := WriteBars(path, bars2); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := ReadBars(path)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	if !got[0].Timestamp.Equal(bars1[0].Timestamp) || got[1].Close != 408.0 {
		t.Errorf("ReadBars = %+v", got)
	}
	if err := WriteBars(path, nil); err != nil {
		t.Errorf("WriteBars(nil) = %v", err)
	}
}

func TestBarsMergeBySymbol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.parquet")
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := WriteBars(path, []domain.Bar{{Symbol: "AAPL", Timestamp: ts, Close: 1}}); err != nil {
		t.Fatalf("WriteBars (AAPL): %v", err)
	}
	if err := WriteBars(path, []domain.Bar{{Symbol: "MSFT", Timestamp: ts, Close: 2}}); err != nil {
		t.Fatalf("WriteBars (MSFT): %v", err)
	}
	// Same key as the stored AAPL bar: replaced, not duplicated.
	if err := WriteBars(path, []domain.Bar{{Symbol: "AAPL", Timestamp: ts, Close: 1.5}}); err != nil {
		t.Fatalf("WriteBars (AAPL again): %v", err)
	}

	got, err := ReadBars(path)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2: %+v", len(got), got)
	}
	if got[0].Symbol != "AAPL" || got[0].Close != 1.5 || got[1].Symbol != "MSFT" || got[1].Close != 2 {
		t.Errorf("ReadBars = %+v", got)
	}
}

func TestLoadSeriesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.json")
	if err := os.WriteFile(path, []byte(`{"prices":[100,110,121],"signals":[1,1]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	prices, signals, err := LoadSeries(path)
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if len(prices) != 3 || len(signals) != 2 || prices[2] != 121 {
		t.Errorf("LoadSeries = %v %v", prices, signals)
	}
}

func TestLoadSeriesParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.PARQUET")
	if err := WriteSeries(path, []SeriesRecord{{Price: 1, Signal: 1}, {Price: 2}}); err != nil {
		t.Fatalf("WriteSeries: %v", err)
	}
	prices, signals, err := LoadSeries(path)
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if len(prices) != 2 || signals[0] != 1 {
		t.Errorf("LoadSeries = %v %v", prices, signals)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := LoadSeries(filepath.Join(dir, "x.csv")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("LoadSeries(.csv) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, _, err := LoadPair(filepath.Join(dir, "x.txt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("LoadPair(.txt) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, _, err := LoadSeries(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadSeries on missing file should fail")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0o644)
	if _, _, err := LoadPair(bad); err == nil {
		t.Error("LoadPair on malformed JSON should fail")
	}
	if _, err := ReadSeries(filepath.Join(dir, "missing.parquet")); err == nil {
		t.Error("ReadSeries on missing file should fail")
	}
}
