package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"melonsense/internal/app"
	"melonsense/internal/config"
	"melonsense/internal/platform/logger"
	"melonsense/internal/platform/onnx"
	"melonsense/internal/vision"
)

type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Runtime    *onnx.Runtime
	Models     []*vision.ONNXModel
	Assessment *app.AssessmentService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: log,
	}

	rt, err := onnx.New(cfg.ONNX.SharedLibPath, cfg.ONNX.IntraOpThreads)
	if err != nil {
		return nil, err
	}
	a.Runtime = rt

	registry, err := a.loadModels(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Assessment = app.NewAssessmentService(registry, log.Named("assessment"),
		app.WithMaxImagePixels(cfg.HTTP.MaxImagePixels))
	a.StartedAt = time.Now()
	return a, nil
}

func (a *App) loadModels(ctx context.Context) (*app.ModelRegistry, error) {
	m := a.Config.Models
	load := func(name, file string) (*vision.ONNXModel, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := m.Path(file)
		model, err := vision.LoadONNXModel(a.Runtime, name, path)
		if err != nil {
			return nil, fmt.Errorf("load %s model failed: %w", name, err)
		}
		a.Models = append(a.Models, model)
		a.Logger.Info("model loaded", zap.String("model", name), zap.String("path", path))
		return model, nil
	}

	var (
		models app.Models
		err    error
	)
	if models.Shape, err = load("shape", m.Shape); err != nil {
		return nil, err
	}
	if models.Spot, err = load("spot", m.Spot); err != nil {
		return nil, err
	}
	if models.Stem, err = load("stem", m.Stem); err != nil {
		return nil, err
	}
	if models.Webbing, err = load("webbing", m.Webbing); err != nil {
		return nil, err
	}
	if models.Disease, err = load("disease", m.Disease); err != nil {
		return nil, err
	}

	return app.NewModelRegistry(models)
}

// ModelNames lists the loaded models in load order.
func (a *App) ModelNames() []string {
	names := make([]string, 0, len(a.Models))
	for _, m := range a.Models {
		names = append(names, m.Name())
	}
	return names
}

func (a *App) Close() error {
	var closeErr error
	for _, m := range a.Models {
		if err := m.Close(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
	}
	a.Models = nil
	if a.Runtime != nil {
		if err := a.Runtime.Close(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
