package probe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// CSVSink writes step,time,value rows.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVSink writes the header to w.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if err := s.w.Write([]string{"step", "time_s", "value"}); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateCSV creates path and its directory.
func CreateCSV(path string) (*CSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv: %w", err)
	}
	s, err := NewCSVSink(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

func (s *CSVSink) Write(r Record) error {
	return s.w.Write([]string{
		strconv.Itoa(r.Step),
		strconv.FormatFloat(r.Time, 'e', -1, 64),
		strconv.FormatFloat(float64(r.Value), 'e', -1, 32),
	})
}

// Close flushes and closes the underlying file, if any.
func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadCSV parses a trace written by CSVSink.
func ReadCSV(r io.Reader) ([]Record, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != 3 {
			return nil, fmt.Errorf("csv row %d: %d columns, want 3", i+2, len(row))
		}
		step, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i+2, err)
		}
		t, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i+2, err)
		}
		v, err := strconv.ParseFloat(row[2], 32)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i+2, err)
		}
		out = append(out, Record{Step: step, Time: t, Value: float32(v)})
	}
	return out, nil
}
