// Package engine implements the tiled neural upscaling pipeline. It owns one
// inference session per Engine instance and exposes "upscale one frame" as
// its unit of work, internally splitting large frames into padded tiles,
// running each tile through the session, and stitching the outputs into a
// seamless high-resolution surface.
//
// Files by concern:
//
//   - engine.go: Engine lifecycle (init, switch model, upscale, dispose).
//   - tiles.go: tile grid geometry (padded source rects, destination grid).
//   - tensor.go: pixel <-> channel-major float32 tensor conversion.
//   - session.go: Session and SessionFactory interfaces and configuration.
//   - session_onnx.go: ONNX Runtime session (build tag 'onnx').
//   - session_stub.go: fail-fast stub when 'onnx' is not set.
//   - errors.go: typed errors and Is* helpers.
//   - metrics.go: prometheus instrumentation.
//
// Default builds stay CGO-free: without the 'onnx' build tag session
// construction fails fast instead of mocking inference.
package engine
