// Package controller coordinates the upscaling session: model selection,
// engine lifecycle, and streamed processing runs. It is structured into small
// files by concern:
//
//   - controller.go: core Controller type, Config, constructor, getters.
//   - lifecycle.go: Capabilities, Initialize, SwitchModel, ClearCache, Close.
//   - process.go: Process and ProcessFile run entry points.
//   - status.go: Status reporting for /status.
//   - events.go: Event publishing (EventPublisher, writer/noop publishers).
//   - errors.go: error types and helpers (IsBusy).
//
// External packages should treat this package as the orchestration layer and
// use public methods only. Internal types are subject to change.
package controller
