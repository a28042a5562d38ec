package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"melonsense/internal/model"
	"melonsense/internal/ripeness"
	"melonsense/internal/vision"
)

var ErrInference = errors.New("inference failed")

type AssessmentService struct {
	registry     *ModelRegistry
	preprocessor vision.Preprocessor
	logger       *zap.Logger
}

type AssessmentOption func(*AssessmentService)

// WithMaxImagePixels caps the pixel count an upload may declare.
func WithMaxImagePixels(n int64) AssessmentOption {
	return func(s *AssessmentService) {
		s.preprocessor.MaxPixels = n
	}
}

func NewAssessmentService(registry *ModelRegistry, logger *zap.Logger, opts ...AssessmentOption) *AssessmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AssessmentService{
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict assesses one uploaded image. Errors wrap vision.ErrDecode,
// vision.ErrChannelMismatch or ErrInference.
func (s *AssessmentService) Predict(ctx context.Context, imageData []byte) (*model.Assessment, error) {
	started := time.Now()

	tensor, err := s.preprocessor.Preprocess(imageData)
	if err != nil {
		return nil, fmt.Errorf("preprocess image: %w", err)
	}
	preprocessed := time.Now()

	outputs, err := s.registry.Infer(ctx, tensor)
	if err != nil {
		return nil, err
	}

	result := ripeness.Interpret(outputs)

	s.logger.Debug("assessment timings",
		zap.Duration("preprocess", preprocessed.Sub(started)),
		zap.Duration("inference", time.Since(preprocessed)),
	)
	s.logger.Info("watermelon assessed",
		zap.Int("image_bytes", len(imageData)),
		zap.Float32s("shape_scores", outputs.Shape),
		zap.Float32("spot", outputs.Spot),
		zap.Float32("stem", outputs.Stem),
		zap.Float32("webbing", outputs.Webbing),
		zap.Float32s("disease_scores", outputs.Disease),
		zap.String("recommendation", result.Recommendation),
	)
	return &result, nil
}
