package app

import (
	"context"
	"errors"
	"fmt"

	"melonsense/internal/model"
	"melonsense/internal/ripeness"
)

// Model is a loaded classifier. Implementations must be safe for concurrent use.
type Model interface {
	Predict(ctx context.Context, input model.Tensor) ([]float32, error)
}

// Models groups the five classifiers by role.
type Models struct {
	Shape   Model
	Spot    Model
	Stem    Model
	Webbing Model
	Disease Model
}

// ModelRegistry is the read-only set of classifiers shared by every request.
type ModelRegistry struct {
	models Models
}

func NewModelRegistry(models Models) (*ModelRegistry, error) {
	if models.Shape == nil || models.Spot == nil || models.Stem == nil ||
		models.Webbing == nil || models.Disease == nil {
		return nil, errors.New("model registry requires all five models")
	}
	return &ModelRegistry{models: models}, nil
}

// Infer runs every classifier on the same input, one after the other.
func (r *ModelRegistry) Infer(ctx context.Context, input model.Tensor) (model.ModelOutputs, error) {
	var out model.ModelOutputs

	shape, err := r.run(ctx, "shape", r.models.Shape, input)
	if err != nil {
		return out, err
	}
	if len(shape) == 0 {
		return out, fmt.Errorf("%w: shape model returned no scores", ErrInference)
	}
	out.Shape = shape

	if out.Spot, err = r.scalar(ctx, "spot", r.models.Spot, input); err != nil {
		return out, err
	}
	if out.Stem, err = r.scalar(ctx, "stem", r.models.Stem, input); err != nil {
		return out, err
	}
	if out.Webbing, err = r.scalar(ctx, "webbing", r.models.Webbing, input); err != nil {
		return out, err
	}

	disease, err := r.run(ctx, "disease", r.models.Disease, input)
	if err != nil {
		return out, err
	}
	if len(disease) > ripeness.DiseaseClassCount {
		return out, fmt.Errorf("%w: disease model returned %d scores, want at most %d",
			ErrInference, len(disease), ripeness.DiseaseClassCount)
	}
	out.Disease = disease

	return out, nil
}

func (r *ModelRegistry) run(ctx context.Context, role string, m Model, input model.Tensor) ([]float32, error) {
	scores, err := m.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s model: %v", ErrInference, role, err)
	}
	return scores, nil
}

func (r *ModelRegistry) scalar(ctx context.Context, role string, m Model, input model.Tensor) (float32, error) {
	scores, err := r.run(ctx, role, m, input)
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("%w: %s model returned no score", ErrInference, role)
	}
	return scores[0], nil
}
