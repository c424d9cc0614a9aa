// internal/services/image_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/aidirector/studio/internal/errors"
	"github.com/aidirector/studio/internal/imagegen"
	"github.com/aidirector/studio/internal/models"
	"github.com/aidirector/studio/internal/utils"
)

// stylePrefixes maps each recognized visual style to the fixed phrase bundle
// prepended to the caller's prompt. Enrichment is a pure function of
// (prompt, style); unrecognized styles pass the prompt through unchanged.
var stylePrefixes = map[string]string{
	models.StyleRealism:   "Cinematic, 8k, photorealistic, masterpiece, professional photography",
	models.StyleAnime:     "Anime style, vibrant colors, studio ghibli aesthetic",
	models.StyleRender3D:  "3D render, octane render, unreal engine, highly detailed",
	models.StyleVector2D:  "2D vector art, flat design, clean lines, modern illustration",
	models.StyleCyberpunk: "Cyberpunk aesthetic, neon lights, futuristic, dystopian",
	models.StyleNoir:      "Black and white, film noir, high contrast, dramatic shadows",
}

// EnrichPrompt applies the style-to-prompt enrichment policy.
func EnrichPrompt(prompt, style string) string {
	prefix, ok := stylePrefixes[style]
	if !ok {
		return prompt
	}
	return prefix + ", " + prompt
}

// ImageService issues image generation requests against the configured
// provider, rotating through credentials on failure.
type ImageService struct {
	providerName string
	apiKeys      []string

	// newProvider is swappable so tests can inject fake providers.
	newProvider func(name string, config map[string]string) (imagegen.Provider, error)
}

// NewImageService creates the image service for the named provider with the
// given credential rotation list.
func NewImageService(providerName string, apiKeys []string) *ImageService {
	return &ImageService{
		providerName: providerName,
		apiKeys:      apiKeys,
		newProvider:  imagegen.GetProvider,
	}
}

// GenerateImage enriches the prompt for the given style and issues one
// generation request. The result may be a ready image or a future handle;
// the caller decides when to resolve handles through the poller.
//
// Credential rotation is pure sequential fallback per call: keys are tried
// in configured order, any failure falls through to the next key, and only
// full exhaustion fails the operation, carrying the last observed error.
func (s *ImageService) GenerateImage(ctx context.Context, prompt, style, existingImage string) (*imagegen.Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.NewValidationError("prompt is required", nil)
	}
	if len(s.apiKeys) == 0 {
		return nil, apperrors.NewConfigError("no image API key configured")
	}

	request := imagegen.Request{
		Prompt:        EnrichPrompt(prompt, style),
		ExistingImage: existingImage,
	}

	var lastErr error
	for i, apiKey := range s.apiKeys {
		provider, err := s.newProvider(s.providerName, map[string]string{"api_key": apiKey})
		if err != nil {
			lastErr = err
			continue
		}

		result, err := provider.Generate(ctx, request)
		if err == nil && result != nil && result.URL() != "" {
			return result, nil
		}
		if err == nil {
			// A success payload without a usable handle counts as a
			// credential failure and falls through to the next key.
			err = fmt.Errorf("provider returned no image handle")
		}
		lastErr = err

		utils.GetLogger().Warning("image credential failed, rotating", map[string]interface{}{
			"provider": s.providerName,
			"key":      i + 1,
			"of":       len(s.apiKeys),
			"err":      err,
		})
	}

	return nil, apperrors.NewCredentialsExhaustedError(len(s.apiKeys), lastErr)
}
