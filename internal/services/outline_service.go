// internal/services/outline_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/aidirector/studio/internal/errors"
	"github.com/aidirector/studio/internal/llm"
	"github.com/aidirector/studio/internal/models"
	"github.com/aidirector/studio/internal/utils"
)

// OutlineService turns a film topic into a two-variant scene outline by way
// of an LLM provider.
type OutlineService struct {
	providerName string
	apiKeys      []string

	// newProvider is swappable so tests can inject fake providers.
	newProvider func(name string, config map[string]string) (llm.Provider, error)
}

// NewOutlineService creates the outline service for the named provider with
// the given credential rotation list.
func NewOutlineService(providerName string, apiKeys []string) *OutlineService {
	return &OutlineService{
		providerName: providerName,
		apiKeys:      apiKeys,
		newProvider:  llm.GetProvider,
	}
}

// outlineScene is the scene shape the model is asked to return.
type outlineScene struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	VisualPrompt  string   `json:"visualPrompt"`
	Tags          []string `json:"tags"`
	DirectorsNote string   `json:"directorsNote"`
}

type outlineResponse struct {
	Standard     []outlineScene `json:"standard"`
	Experimental []outlineScene `json:"experimental"`
}

// GenerateOutline asks the LLM for a complete filming plan and returns a
// fully initialized project document. Parse failures are not retried: the
// error surfaces with the raw text truncated for diagnostics.
func (s *OutlineService) GenerateOutline(ctx context.Context, topic, style string, sceneCount int) (*models.ProjectData, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, apperrors.NewValidationError("topic is required", nil)
	}
	if sceneCount < models.MinSceneCount || sceneCount > models.MaxSceneCount {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("sceneCount must be between %d and %d", models.MinSceneCount, models.MaxSceneCount), nil)
	}
	if !models.IsKnownStyle(style) {
		return nil, apperrors.NewValidationError("unrecognized style: "+style, nil)
	}
	if len(s.apiKeys) == 0 {
		return nil, apperrors.NewConfigError("no LLM API key configured")
	}

	prompt := buildDirectorPrompt(topic, style, sceneCount)

	response, err := s.completeWithRotation(ctx, prompt)
	if err != nil {
		return nil, err
	}

	cleaned := SanitizeLLMJSONResponse(response.Text)

	var parsed outlineResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, apperrors.NewParseError("LLM returned invalid outline JSON", response.Text, err)
	}

	utils.GetLogger().Info("outline generated", map[string]interface{}{
		"topic":        topic,
		"standard":     len(parsed.Standard),
		"experimental": len(parsed.Experimental),
		"tokens":       response.TokensUsed,
	})

	return &models.ProjectData{
		Topic:        topic,
		Style:        style,
		SceneCount:   sceneCount,
		Standard:     initScenes(parsed.Standard),
		Experimental: initScenes(parsed.Experimental),
	}, nil
}

// completeWithRotation tries each configured credential in fixed order and
// stops at the first success. Credentials are not scored or reordered.
func (s *OutlineService) completeWithRotation(ctx context.Context, prompt string) (*llm.CompletionResponse, error) {
	var lastErr error

	for i, apiKey := range s.apiKeys {
		provider, err := s.newProvider(s.providerName, map[string]string{"api_key": apiKey})
		if err != nil {
			lastErr = err
			continue
		}

		response, err := provider.CompleteText(ctx, llm.CompletionRequest{
			Prompt:      prompt,
			Temperature: 0.8,
		})
		if err == nil && response != nil && response.Text != "" {
			return response, nil
		}
		if err == nil {
			err = fmt.Errorf("provider returned an empty completion")
		}
		lastErr = err

		utils.GetLogger().Warning("outline credential failed, rotating", map[string]interface{}{
			"provider": s.providerName,
			"key":      i + 1,
			"of":       len(s.apiKeys),
			"err":      err,
		})
	}

	if len(s.apiKeys) == 1 {
		return nil, apperrors.NewUpstreamError("outline generation failed", lastErr)
	}
	return nil, apperrors.NewCredentialsExhaustedError(len(s.apiKeys), lastErr)
}

func initScenes(scenes []outlineScene) []models.Scene {
	out := make([]models.Scene, 0, len(scenes))
	for i, scene := range scenes {
		out = append(out, models.Scene{
			ID:            NewSceneID(),
			Order:         i + 1,
			Title:         scene.Title,
			Description:   scene.Description,
			VisualPrompt:  scene.VisualPrompt,
			Tags:          scene.Tags,
			DirectorsNote: scene.DirectorsNote,
			Status:        models.SceneStatusEmpty,
		})
	}
	return out
}

// buildDirectorPrompt builds the single directive sent to the LLM: two
// narrative treatments of the same story, exactly sceneCount scenes each.
func buildDirectorPrompt(topic, style string, sceneCount int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a professional film director. Create a detailed filming plan for a movie about: %q.\n\n", topic)
	b.WriteString("Generate TWO different versions of the same story:\n")
	b.WriteString("1. STANDARD: Hollywood-style, linear narrative, realistic and cinematic\n")
	b.WriteString("2. EXPERIMENTAL: Arthouse, abstract, non-linear, artistic\n\n")
	fmt.Fprintf(&b, "For each version, create exactly %d scenes.\n\n", sceneCount)
	b.WriteString("For each scene, provide:\n")
	b.WriteString("- title: A compelling scene title\n")
	b.WriteString("- description: What happens in this scene (2-3 sentences)\n")
	b.WriteString("- visualPrompt: A detailed prompt optimized for image generation (include camera angles, lighting, mood, colors)\n")
	b.WriteString("- tags: Array of 3-5 technical tags (e.g., \"Wide Shot\", \"Golden Hour\", \"Low Angle\", \"Neon Lighting\", \"ISO 800\")\n")
	b.WriteString("- directorsNote: Explain WHY you chose this specific camera angle, lighting, or composition (1-2 sentences)\n\n")
	fmt.Fprintf(&b, "Visual style context: %s\n\n", style)
	b.WriteString("Return ONLY a valid JSON object with this exact structure:\n")
	b.WriteString("{\n  \"standard\": [array of scenes],\n  \"experimental\": [array of scenes]\n}\n\n")
	b.WriteString("Each scene object must have: title, description, visualPrompt, tags (array), directorsNote")

	return b.String()
}

// SanitizeLLMJSONResponse strips Markdown code fences and stray backticks so
// the remainder can be parsed as JSON. A fence with or without a language
// tag yields the same result as unwrapped JSON of the same content.
func SanitizeLLMJSONResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return cleaned
	}

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
		lower := strings.ToLower(cleaned)
		if strings.HasPrefix(lower, "json") {
			cleaned = strings.TrimSpace(cleaned[4:])
		}
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
	}

	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, "`")
	return strings.TrimSpace(cleaned)
}
