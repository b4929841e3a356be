package gpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openfluke/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/openfluke/yee/detector"
)

// ErrNoDevice is returned when no compatible adapter or device is found.
var ErrNoDevice = errors.New("no compatible GPU device")

// Context holds the WebGPU objects for one run. It is created once by Open
// and released by the caller.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Report   *detector.Report

	log *zap.Logger
}

// Options selects the adapter.
type Options struct {
	// PowerPreference is "high-performance" (default) or "low-power".
	PowerPreference string
	// PreferAdapter picks the first enumerated adapter whose name or vendor
	// contains this substring, case-insensitive.
	PreferAdapter string
	Logger        *zap.Logger
}

// Open acquires an adapter and device. Preference order: a named adapter,
// the requested power preference, the other power preference, then the
// implementation default.
func Open(opts Options) (*Context, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Context{log: log}

	c.Instance = wgpu.CreateInstance(nil)
	if c.Instance == nil {
		return nil, fmt.Errorf("%w: failed to create WebGPU instance", ErrNoDevice)
	}

	if want := strings.ToLower(strings.TrimSpace(opts.PreferAdapter)); want != "" {
		for _, a := range c.Instance.EnumerateAdapters(nil) {
			info := a.GetInfo()
			log.Debug("enumerated adapter",
				zap.String("name", info.Name),
				zap.String("vendor", info.VendorName),
				zap.String("backend", info.BackendType.String()))
			if strings.Contains(strings.ToLower(info.Name), want) ||
				strings.Contains(strings.ToLower(info.VendorName), want) {
				c.Adapter = a
				break
			}
		}
		if c.Adapter == nil {
			log.Warn("preferred adapter not found, falling back", zap.String("prefer", opts.PreferAdapter))
		}
	}

	tryInit := func(o *wgpu.RequestAdapterOptions) error {
		if c.Adapter != nil {
			return nil
		}
		var err error
		c.Adapter, err = c.Instance.RequestAdapter(o)
		return err
	}

	first, second := wgpu.PowerPreferenceHighPerformance, wgpu.PowerPreferenceLowPower
	if opts.PowerPreference == "low-power" {
		first, second = second, first
	}
	initErr := tryInit(&wgpu.RequestAdapterOptions{PowerPreference: first})
	if initErr != nil && c.Adapter == nil {
		log.Warn("adapter request failed, trying other power preference", zap.Error(initErr))
		initErr = tryInit(&wgpu.RequestAdapterOptions{PowerPreference: second})
	}
	if initErr != nil && c.Adapter == nil {
		log.Warn("adapter request failed, trying default", zap.Error(initErr))
		initErr = tryInit(nil)
	}
	if c.Adapter == nil {
		c.Instance.Release()
		return nil, fmt.Errorf("%w: all adapter attempts failed: %v", ErrNoDevice, initErr)
	}

	c.Report = detector.Describe(c.Adapter)

	// Raise the buffer limits to what the adapter supports so large grids
	// are bounded by the hardware, not by the WebGPU defaults.
	limits := wgpu.DefaultLimits()
	limits.MaxStorageBufferBindingSize = c.Report.Limits.MaxStorageBufferBindingSize
	limits.MaxBufferSize = c.Report.Limits.MaxBufferSize

	var err error
	c.Device, err = c.Adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "FDTD device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		c.Adapter.Release()
		c.Instance.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrNoDevice, err)
	}
	c.Queue = c.Device.GetQueue()

	log.Info("using GPU adapter",
		zap.String("name", c.Report.Name),
		zap.String("backend", c.Report.Backend),
		zap.String("type", c.Report.AdapterType))
	return c, nil
}

// Release frees the device, adapter and instance.
func (c *Context) Release() {
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
	if c.Adapter != nil {
		c.Adapter.Release()
		c.Adapter = nil
	}
	if c.Instance != nil {
		c.Instance.Release()
		c.Instance = nil
	}
}
