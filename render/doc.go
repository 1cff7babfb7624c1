// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides the targets the panorama engine draws into and the
// host surfaces it presents to.
//
// # Key Principle
//
// The engine RECEIVES its drawable from the host application, it does NOT
// create windows or devices. The host passes a Surface to the engine once its
// view is live and takes it back through ReleaseDevice before tearing the
// view down.
//
// # Core Interfaces
//
//   - Surface: host-provided destination for composed frames
//   - DeviceHandle: GPU device access from the host (gpucontext)
//
// # Implementations
//
//   - PixmapTarget: CPU-backed *image.RGBA a frame is composed into
//   - ImageSurface: headless surface that keeps the last presented image
//   - TextureSurface: uploads presented frames into a gpucontext texture
//
// # Usage
//
// Headless rendering:
//
//	surface, _ := render.NewImageSurface(1280, 720)
//	engine.InitDevice(surface)
//	engine.StartDrawSingleFrame()
//	img := surface.Last()
//
// Integration with a gpucontext host:
//
//	surface, _ := render.NewTextureSurface(provider, 1280, 720)
//	engine.InitDevice(surface)
//	engine.StartRendering()
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    surface.RenderTo(dc.AsTextureDrawer())
//	})
//
// # Thread Safety
//
// PixmapTarget is not safe for concurrent use. Surface implementations in
// this package are safe for concurrent use: Present is called from the
// engine's render goroutine while the host reads from its own thread.
package render
