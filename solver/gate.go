package solver

import (
	"errors"
	"fmt"
)

// ErrBackendFailed is returned by every call after a readback has failed.
// The device may still own the staging memory, so the run cannot go on.
var ErrBackendFailed = errors.New("backend failed")

// errNoStep is returned by Probe without a preceding Step.
var errNoStep = errors.New("probe read without a step")

// StepGate tracks the one step a backend may have in flight. Backends call
// Ready before Inject, Step and Snapshot, Begin once a step is submitted,
// and Awaiting then Done around the readback.
type StepGate struct {
	pending bool
	failed  error
}

// Ready reports whether a new Inject or Step may start.
func (g *StepGate) Ready() error {
	if g.failed != nil {
		return fmt.Errorf("%w: %w", ErrBackendFailed, g.failed)
	}
	if g.pending {
		return ErrStepPending
	}
	return nil
}

// Begin marks a step as submitted.
func (g *StepGate) Begin() { g.pending = true }

// Awaiting reports whether a readback may start.
func (g *StepGate) Awaiting() error {
	if g.failed != nil {
		return fmt.Errorf("%w: %w", ErrBackendFailed, g.failed)
	}
	if !g.pending {
		return errNoStep
	}
	return nil
}

// Done closes the readback. A nil err frees the gate for the next step;
// anything else leaves the step pending and fails the gate for good.
func (g *StepGate) Done(err error) error {
	if err != nil {
		g.failed = err
		return err
	}
	g.pending = false
	return nil
}
