package onnx

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Runtime owns the process-wide ONNX Runtime environment.
type Runtime struct {
	intraOpThreads int
}

func New(sharedLibPath string, intraOpThreads int) (*Runtime, error) {
	if sharedLibPath != "" {
		ort.SetSharedLibraryPath(sharedLibPath)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx init environment: %w", err)
		}
	}

	return &Runtime{intraOpThreads: intraOpThreads}, nil
}

// SessionOptions returns options for a new session. The caller destroys them
// once the session is created.
func (r *Runtime) SessionOptions() (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx new session options: %w", err)
	}
	if r.intraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(r.intraOpThreads); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("onnx set intra-op threads: %w", err)
		}
	}
	return opts, nil
}

func (r *Runtime) Close() error {
	if !ort.IsInitialized() {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("onnx destroy environment: %w", err)
	}
	return nil
}
