// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// theInstance is the process-wide WebGPU instance.
var theInstance *wgpu.Instance

var instanceOnce sync.Once

// Instance returns the WebGPU instance, creating it on first use.
// Surfaces and adapters hang off this instance.
func Instance() *wgpu.Instance {
	instanceOnce.Do(func() {
		theInstance = wgpu.CreateInstance(nil)
	})
	return theInstance
}

// Device is the explicit GPU context threaded through the renderer.
// The host constructs it, normally via [NewDevice], and keeps owning
// it: the renderer borrows the device and never releases it.
type Device struct {
	// WGPU is the logical device all resources are created on.
	WGPU *wgpu.Device

	// Queue is the device's submission queue.
	Queue *wgpu.Queue

	// Format is the color target format. [NewDevice] sets RGBA8
	// sRGB; hosts presenting to a surface overwrite it with the
	// surface's preferred format.
	Format wgpu.TextureFormat

	// DepthFormat is the depth attachment format.
	DepthFormat wgpu.TextureFormat

	// Limits are the adapter limits. Buffer offset alignments for
	// the scratch ring come from here.
	Limits wgpu.SupportedLimits

	adapter *wgpu.Adapter
}

// NewDevice requests a high performance adapter and opens a logical
// device on it. compatible may name a surface the adapter must be
// able to present to; pass nil for headless use.
func NewDevice(compatible *wgpu.Surface) (*Device, error) {
	ad, err := Instance().RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
		CompatibleSurface: compatible,
	})
	if err != nil {
		return nil, fmt.Errorf("render: requesting adapter: %w", err)
	}
	dev, err := ad.RequestDevice(nil)
	if err != nil {
		ad.Release()
		return nil, fmt.Errorf("render: requesting device: %w", err)
	}
	return &Device{
		WGPU:        dev,
		Queue:       dev.GetQueue(),
		Format:      wgpu.TextureFormatRGBA8UnormSrgb,
		DepthFormat: wgpu.TextureFormatDepth32Float,
		Limits:      ad.GetLimits(),
		adapter:     ad,
	}, nil
}

// ConfigureSurface configures the surface for presentation at the
// given pixel size and records the surface's preferred color format
// as the device format. Call before creating the renderer, so
// pipelines target the surface format, and again whenever the window
// size changes.
func (dv *Device) ConfigureSurface(sf *wgpu.Surface, size image.Point) {
	caps := sf.GetCapabilities(dv.adapter)
	format := dv.Format
	if len(caps.Formats) > 0 {
		format = caps.Formats[0]
	}
	alpha := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alpha = caps.AlphaModes[0]
	}
	sf.Configure(dv.adapter, dv.WGPU, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(size.X),
		Height:      uint32(size.Y),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   alpha,
	})
	dv.Format = format
}

// WaitDone blocks until the GPU has finished all submitted work.
func (dv *Device) WaitDone() {
	if dv.WGPU != nil {
		dv.WGPU.Poll(true, nil)
	}
}

// Release frees the device and its adapter. Call only after every
// resource created on the device has been released.
func (dv *Device) Release() {
	if dv.WGPU != nil {
		dv.WGPU.Release()
		dv.WGPU = nil
	}
	dv.Queue = nil
	if dv.adapter != nil {
		dv.adapter.Release()
		dv.adapter = nil
	}
}
