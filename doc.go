// Package panorama displays 360° and panoramic video.
//
// An [Engine] receives decoded frames through [Engine.SetPixelBuffer],
// maps the latest one onto a sphere, an open cylinder or a flat plane, and
// presents the view of a virtual camera to a host [render.Surface]. Device
// motion ([Engine.HandleMotion]) and touch ([Engine.HandleTouch]) steer the
// camera; pinch gestures change the field of view. The source timecode is
// drawn in a corner of every frame.
//
// # Rendering
//
// Rendering runs on the engine's own goroutine. [Engine.StartRendering]
// draws once per vsync tick, [Engine.StartDrawSingleFrame] draws once on
// demand and [Engine.CleanRenderQueue] stops both and waits for the draw in
// progress. Only the latest submitted frame is kept; frames that arrive
// faster than the display refresh are dropped and counted in
// [Engine.Stats].
//
// [Engine.TakePicture] renders the current view into a new image without
// touching the live surface.
//
// # Events and metrics
//
// Engine events ([FramePresented], [PictureTaken], [RenderQueueCleaned],
// [TouchesChanged]) are published on a kelindar/event dispatcher; use
// [Subscribe] to receive them. [WithMetrics] registers Prometheus
// collectors for draws, skipped ticks, dropped frames and draw latency.
//
// # Logging
//
// By default panorama produces no log output. Use [SetLogger] to enable it.
package panorama
