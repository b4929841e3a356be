// Package opencl runs the two half-step kernels through OpenCL. It is only
// compiled with -tags opencl; without the tag New reports ErrUnavailable.
package opencl

import "errors"

var (
	// ErrUnavailable is returned by New when built without the opencl tag.
	ErrUnavailable = errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
	// ErrNoDevice is returned when no OpenCL platform exposes a device.
	ErrNoDevice = errors.New("no suitable OpenCL devices found")
	// ErrTimeout is returned when the queue does not drain within the
	// readback deadline.
	ErrTimeout = errors.New("OpenCL readback timed out")
)
