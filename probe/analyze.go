package probe

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// Summary condenses a probe trace.
type Summary struct {
	Steps int `json:"steps"`
	// FirstNonZero is the first step with a non-zero reading, -1 if none.
	FirstNonZero int     `json:"first_nonzero_step"`
	Peak         float64 `json:"peak"` // largest |value|
	PeakStep     int     `json:"peak_step"`
	RMS          float64 `json:"rms"`
	Finite       bool    `json:"finite"`
	// DominantFrequency is the strongest non-DC spectral line in Hz, 0 when
	// the trace is too short or carries no signal.
	DominantFrequency float64 `json:"dominant_frequency_hz"`
}

// Analyze summarizes records, which must be in step order with uniform dt.
func Analyze(records []Record, dt float64) Summary {
	s := Summary{Steps: len(records), FirstNonZero: -1, Finite: true}
	if len(records) == 0 {
		return s
	}

	x := make([]float64, len(records))
	for i, r := range records {
		v := float64(r.Value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.Finite = false
		}
		if s.FirstNonZero < 0 && v != 0 {
			s.FirstNonZero = r.Step
		}
		x[i] = v
	}
	if !s.Finite {
		return s
	}

	abs := make([]float64, len(x))
	for i, v := range x {
		abs[i] = math.Abs(v)
	}
	idx := floats.MaxIdx(abs)
	s.Peak, s.PeakStep = abs[idx], records[idx].Step
	s.RMS = floats.Norm(x, 2) / math.Sqrt(float64(len(x)))
	s.DominantFrequency = dominantFrequency(x, dt)
	return s
}

func dominantFrequency(x []float64, dt float64) float64 {
	n := len(x)
	if n < 4 || dt <= 0 {
		return 0
	}
	centred := make([]float64, n)
	copy(centred, x)
	floats.AddConst(-floats.Sum(x)/float64(n), centred)

	spectrum := fft.FFTReal(centred)
	best, bestMag := 0, 0.0
	for k := 1; k <= n/2; k++ {
		if m := cmplx.Abs(spectrum[k]); m > bestMag {
			best, bestMag = k, m
		}
	}
	if best == 0 {
		return 0
	}
	return float64(best) / (float64(n) * dt)
}
