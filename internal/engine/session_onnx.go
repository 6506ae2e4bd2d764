//go:build onnx

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Real-ESRGAN graphs exported by the conversion tooling use fixed tensor
// names. Denoise-capable exports declare an extra scalar input taking the
// discrete level.
const (
	onnxInputName        = "input"
	onnxDenoiseInputName = "denoise"
	onnxOutputName       = "output"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initONNXRuntime loads and initializes the ONNX Runtime shared library once
// per process. The library is located via ONNXRUNTIME_ROOT, then
// LD_LIBRARY_PATH.
func initONNXRuntime() error {
	ortInitOnce.Do(func() {
		if dir := onnxLibraryDir(); dir != "" {
			ort.SetSharedLibraryPath(filepath.Join(dir, onnxLibraryName()))
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

func onnxLibraryDir() string {
	if root := os.Getenv("ONNXRUNTIME_ROOT"); root != "" {
		platformDir := filepath.Join(root, runtime.GOOS+"-"+runtime.GOARCH, "lib")
		if _, err := os.Stat(filepath.Join(platformDir, onnxLibraryName())); err == nil {
			return platformDir
		}
		directDir := filepath.Join(root, "lib")
		if _, err := os.Stat(filepath.Join(directDir, onnxLibraryName())); err == nil {
			return directDir
		}
	}
	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		for _, dir := range filepath.SplitList(ldPath) {
			if _, err := os.Stat(filepath.Join(dir, onnxLibraryName())); err == nil {
				return dir
			}
		}
	}
	return ""
}

func onnxLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// NewSessionFactory returns the ONNX Runtime session factory.
func NewSessionFactory() SessionFactory {
	return &onnxSessionFactory{}
}

type onnxSessionFactory struct {
	mu   sync.Mutex
	cuda bool
}

func (f *onnxSessionFactory) Backend() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cuda {
		return "ONNX Runtime (CUDA)"
	}
	return "ONNX Runtime (CPU)"
}

func (f *onnxSessionFactory) NewSession(weights []byte, cfg SessionConfig) (Session, error) {
	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("initializing ONNX Runtime: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("setting thread count: %w", err)
		}
	}

	cuda := false
	if cfg.GPUMode == GPUModeCUDA || cfg.GPUMode == GPUModeAuto || cfg.GPUMode == "" {
		cudaOpts, cerr := ort.NewCUDAProviderOptions()
		if cerr == nil {
			if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
				// CUDA not available, fall back to CPU
				cudaOpts.Destroy()
			} else {
				cuda = true
				defer cudaOpts.Destroy()
			}
		}
		if !cuda && cfg.GPUMode == GPUModeCUDA {
			opts.Destroy()
			return nil, ErrBackendUnavailable("CUDA execution provider not available")
		}
	}
	f.mu.Lock()
	f.cuda = cuda
	f.mu.Unlock()

	inputNames := []string{onnxInputName}
	if cfg.DenoiseLevel >= 0 {
		inputNames = append(inputNames, onnxDenoiseInputName)
	}
	sess, err := ort.NewDynamicAdvancedSessionWithONNXData(weights,
		inputNames, []string{onnxOutputName}, opts)
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("creating ONNX session: %w", err)
	}
	return &onnxSession{sess: sess, opts: opts, scale: cfg.Scale, denoise: cfg.DenoiseLevel}, nil
}

type onnxSession struct {
	sess    *ort.DynamicAdvancedSession
	opts    *ort.SessionOptions
	scale   int
	denoise int
}

func (s *onnxSession) Run(input *Tensor) (*Tensor, error) {
	if s.sess == nil {
		return nil, fmt.Errorf("session is closed")
	}

	in, err := ort.NewTensor(ort.NewShape(1, 3, int64(input.H), int64(input.W)), input.Data)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer in.Destroy()

	inputs := []ort.Value{in}
	if s.denoise >= 0 {
		dn, err := ort.NewTensor(ort.NewShape(1), []float32{float32(s.denoise)})
		if err != nil {
			return nil, fmt.Errorf("creating denoise tensor: %w", err)
		}
		defer dn.Destroy()
		inputs = append(inputs, dn)
	}

	outputs := []ort.Value{nil}
	if err := s.sess.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("running ONNX session: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32")
	}
	shape := out.GetShape()
	if len(shape) != 4 || shape[1] != 3 {
		return nil, fmt.Errorf("unexpected output shape: %v", shape)
	}
	oh := int(shape[2])
	ow := int(shape[3])
	if oh != input.H*s.scale || ow != input.W*s.scale {
		return nil, fmt.Errorf("output %dx%d does not match scale %d for input %dx%d",
			ow, oh, s.scale, input.W, input.H)
	}

	t := NewTensor(oh, ow)
	copy(t.Data, out.GetData())
	return t, nil
}

func (s *onnxSession) Close() error {
	if s.sess != nil {
		s.sess.Destroy()
		s.sess = nil
	}
	if s.opts != nil {
		s.opts.Destroy()
		s.opts = nil
	}
	return nil
}
