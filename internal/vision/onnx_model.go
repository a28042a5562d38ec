package vision

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"melonsense/internal/model"
	"melonsense/internal/platform/onnx"
)

// ONNXModel runs a single-input, single-output ONNX classifier. Each call
// allocates its own tensors, so Predict is safe for concurrent use.
type ONNXModel struct {
	name string

	session     *ort.DynamicAdvancedSession
	outputShape ort.Shape
}

// LoadONNXModel opens the model at path and prepares a session for it.
func LoadONNXModel(rt *onnx.Runtime, name, path string) (*ONNXModel, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("onnx get input/output info for %s: %w", name, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx model %s has no inputs or outputs", name)
	}

	opts, err := rt.SessionOptions()
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx new session for %s: %w", name, err)
	}

	return &ONNXModel{
		name:        name,
		session:     session,
		outputShape: batchOf(outputs[0].Dimensions),
	}, nil
}

// batchOf pins dynamic dimensions, such as the batch axis, to 1.
func batchOf(dims ort.Shape) ort.Shape {
	shape := dims.Clone()
	for i, d := range shape {
		if d < 1 {
			shape[i] = 1
		}
	}
	return shape
}

func (m *ONNXModel) Name() string { return m.name }

// Predict runs the model on input and returns a copy of the flattened output.
func (m *ONNXModel) Predict(ctx context.Context, input model.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := input.NumElements(); n != int64(len(input.Data)) {
		return nil, fmt.Errorf("input shape %v wants %d values, got %d", input.Shape, n, len(input.Data))
	}

	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("onnx new input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](m.outputShape)
	if err != nil {
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}
	defer out.Destroy()

	if err := m.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx run %s: %w", m.name, err)
	}

	result := make([]float32, len(out.GetData()))
	copy(result, out.GetData())
	return result, nil
}

func (m *ONNXModel) Close() error {
	if m.session == nil {
		return nil
	}
	if err := m.session.Destroy(); err != nil {
		return fmt.Errorf("onnx destroy session %s: %w", m.name, err)
	}
	m.session = nil
	return nil
}
