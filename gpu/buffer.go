package gpu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

var (
	// ErrReadback is returned when mapping a staging buffer fails.
	ErrReadback = errors.New("GPU readback failed")
	// ErrTimeout is returned when the device does not finish within the
	// readback deadline. The device is treated as lost.
	ErrTimeout = errors.New("GPU readback timed out")
)

const pollInterval = 50 * time.Microsecond

// NewFloatBuffer creates a buffer initialised with data.
func (c *Context) NewFloatBuffer(label string, data []float32, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: wgpu.ToBytes(data),
		Usage:    usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %s: %v", label, err)
	}
	return buf, nil
}

// NewBytesBuffer creates a buffer initialised with raw bytes.
func (c *Context) NewBytesBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: data,
		Usage:    usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %s: %v", label, err)
	}
	return buf, nil
}

// NewStagingBuffer creates a host-mappable buffer of size bytes.
func (c *Context) NewStagingBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create staging buffer %s: %v", label, err)
	}
	return buf, nil
}

// mapRead maps size bytes of a staging buffer, waits for the device, copies
// the words out and unmaps. It is the single suspension point of a step:
// it returns when the data is on the host, the deadline passes, or ctx ends.
func (c *Context) mapRead(ctx context.Context, staging *wgpu.Buffer, size uint64, timeout time.Duration) ([]float32, error) {
	done := make(chan struct{})
	var mapErr error

	err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("%w: map status %v", ErrReadback, status)
		}
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: MapAsync: %v", ErrReadback, err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
Loop:
	for {
		// Non-blocking poll so the deadline and ctx stay observable even
		// if the device hangs.
		c.Device.Poll(false, nil)
		select {
		case <-done:
			break Loop
		case <-deadline.C:
			return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		default:
			time.Sleep(pollInterval)
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}

	data := staging.GetMappedRange(0, uint(size))
	if data == nil {
		staging.Unmap()
		return nil, fmt.Errorf("%w: mapped range nil", ErrReadback)
	}
	out := make([]float32, size/4)
	copy(out, wgpu.FromBytes[float32](data))
	staging.Unmap()
	return out, nil
}

// ReadBuffer copies count floats from a storage buffer through a temporary
// staging buffer. It is used for whole-field snapshots, not per-step probes.
func (c *Context) ReadBuffer(ctx context.Context, buffer *wgpu.Buffer, count int, timeout time.Duration) ([]float32, error) {
	sizeBytes := uint64(count * 4)
	staging, err := c.NewStagingBuffer("ReadStaging", sizeBytes)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %v", err)
	}
	encoder.CopyBufferToBuffer(buffer, 0, staging, 0, sizeBytes)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to finish command: %v", err)
	}
	c.Queue.Submit(cmd)

	return c.mapRead(ctx, staging, sizeBytes, timeout)
}
