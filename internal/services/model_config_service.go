package services

import (
	"context"
	"strings"

	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/store"
)

var outputQualities = map[string]bool{"low": true, "medium": true, "high": true}

const (
	minResolution = 256
	maxResolution = 8192
	minTimeout    = 10
	maxTimeout    = 600
)

// ModelConfigService resolves the active processing preferences, layering
// the stored row over deployment defaults.
type ModelConfigService struct {
	store        store.ModelConfigStore
	defaultModel string
	envKeySet    bool
}

func NewModelConfigService(st store.ModelConfigStore, defaultModel, envAPIKey string) *ModelConfigService {
	return &ModelConfigService{
		store:        st,
		defaultModel: defaultModel,
		envKeySet:    envAPIKey != "",
	}
}

func (s *ModelConfigService) defaults() models.ModelConfig {
	return models.ModelConfig{
		Model:         s.defaultModel,
		OutputQuality: models.DefaultOutputQuality,
		MaxResolution: models.DefaultMaxResolution,
		Timeout:       models.DefaultTimeout,
	}
}

// Effective returns the stored config with any unset field filled from defaults.
func (s *ModelConfigService) Effective(ctx context.Context) (models.ModelConfig, error) {
	cfg := s.defaults()
	stored, err := s.store.GetModelConfig(ctx)
	if err != nil {
		return cfg, err
	}
	if stored == nil {
		return cfg, nil
	}

	if stored.Model != "" {
		cfg.Model = stored.Model
	}
	if stored.OutputQuality != "" {
		cfg.OutputQuality = stored.OutputQuality
	}
	if stored.MaxResolution > 0 {
		cfg.MaxResolution = stored.MaxResolution
	}
	if stored.Timeout > 0 {
		cfg.Timeout = stored.Timeout
	}
	cfg.APIKey = stored.APIKey
	cfg.UpdatedAt = stored.UpdatedAt
	return cfg, nil
}

// Update applies a partial change. An empty apiKey string clears the stored key.
func (s *ModelConfigService) Update(ctx context.Context, req models.ModelConfigRequest) (models.ModelConfig, error) {
	cfg, err := s.Effective(ctx)
	if err != nil {
		return cfg, err
	}

	if req.Model != nil {
		model := strings.TrimSpace(*req.Model)
		if model == "" {
			return cfg, apperr.Validation("model", "model must not be empty")
		}
		cfg.Model = model
	}
	if req.OutputQuality != nil {
		quality := strings.ToLower(strings.TrimSpace(*req.OutputQuality))
		if !outputQualities[quality] {
			return cfg, apperr.Validation("outputQuality", "outputQuality must be one of low, medium, high")
		}
		cfg.OutputQuality = quality
	}
	if req.MaxResolution != nil {
		if *req.MaxResolution < minResolution || *req.MaxResolution > maxResolution {
			return cfg, apperr.Validation("maxResolution", "maxResolution must be between 256 and 8192")
		}
		cfg.MaxResolution = *req.MaxResolution
	}
	if req.Timeout != nil {
		if *req.Timeout < minTimeout || *req.Timeout > maxTimeout {
			return cfg, apperr.Validation("timeout", "timeout must be between 10 and 600 seconds")
		}
		cfg.Timeout = *req.Timeout
	}
	if req.APIKey != nil {
		cfg.APIKey = strings.TrimSpace(*req.APIKey)
	}

	if err := s.store.SaveModelConfig(ctx, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Response hides the key, reporting only whether one is usable.
func (s *ModelConfigService) Response(cfg models.ModelConfig) models.ModelConfigResponse {
	configured := "false"
	if cfg.APIKey != "" || s.envKeySet {
		configured = "true"
	}
	return models.ModelConfigResponse{
		Model:            cfg.Model,
		OutputQuality:    cfg.OutputQuality,
		MaxResolution:    cfg.MaxResolution,
		Timeout:          cfg.Timeout,
		APIKeyConfigured: configured,
	}
}
