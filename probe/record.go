// Package probe carries the per-step probe trace out of the engine: log,
// CSV, SQLite and plot sinks plus a post-run summary.
package probe

import (
	"fmt"
	"sync"
)

// Record is one observation: the probe value after step Step, at simulated
// time Time (seconds).
type Record struct {
	Step  int
	Time  float64
	Value float32
}

func (r Record) String() string {
	return fmt.Sprintf("step %d: %.6e", r.Step, r.Value)
}

// Sink receives records in step order.
type Sink interface {
	Write(Record) error
}

// Recorder keeps the trace in memory.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder returns an empty recorder with room for n records.
func NewRecorder(n int) *Recorder {
	return &Recorder{records: make([]Record, 0, n)}
}

func (r *Recorder) Write(rec Record) error {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return nil
}

// Records returns a copy of the trace.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Values returns the probe values in step order.
func (r *Recorder) Values() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float32, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Value
	}
	return out
}

// Multi fans a record out to several sinks, stopping at the first error.
type Multi []Sink

func (m Multi) Write(rec Record) error {
	for _, s := range m {
		if err := s.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
