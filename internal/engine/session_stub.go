//go:build !onnx

package engine

// This file provides a no-CGO stub for the ONNX session factory. It is
// compiled when the 'onnx' build tag is NOT set, keeping default builds and
// CI CGO-free. The real factory lives in session_onnx.go (tagged 'onnx').

// NewSessionFactory returns a factory that refuses to build sessions.
// It fails fast instead of mocking inference in production binaries built
// without ONNX Runtime support.
func NewSessionFactory() SessionFactory {
	return stubSessionFactory{}
}

type stubSessionFactory struct{}

func (stubSessionFactory) Backend() string { return "none" }

func (stubSessionFactory) NewSession(weights []byte, cfg SessionConfig) (Session, error) {
	return nil, ErrBackendUnavailable("onnxruntime support not built (missing 'onnx' build tag)")
}
