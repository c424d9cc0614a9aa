package services

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/aidirector/studio/internal/errors"
	"github.com/aidirector/studio/internal/llm"
	"github.com/aidirector/studio/internal/models"
)

const outlineJSON = `{
  "standard": [
    {"title": "Arrival", "description": "The keeper lands on the island.", "visualPrompt": "small boat, grey sea, wide shot", "tags": ["Wide Shot", "Overcast", "Low Angle"], "directorsNote": "The wide shot dwarfs the keeper against the sea."},
    {"title": "The Storm", "description": "Waves batter the tower.", "visualPrompt": "lighthouse in storm, crashing waves", "tags": ["Dutch Angle", "High Contrast", "Rain"], "directorsNote": "A dutch angle keeps the frame unstable."}
  ],
  "experimental": [
    {"title": "Fragments", "description": "Memories surface out of order.", "visualPrompt": "shattered mirror reflecting a lighthouse beam", "tags": ["Macro", "Prism", "Slow Shutter"], "directorsNote": "Macro fragments refuse a single viewpoint."},
    {"title": "Undertow", "description": "The sea claims the light.", "visualPrompt": "underwater view of a fading beam", "tags": ["Underwater", "Murk", "Backlight"], "directorsNote": "Backlight makes the beam the last living thing."}
  ]
}`

// fakeLLMProvider scripts CompleteText responses per credential.
type fakeLLMProvider struct {
	name     string
	response string
	err      error
}

func (p *fakeLLMProvider) Initialize(config map[string]string) error { return nil }
func (p *fakeLLMProvider) GetName() string                           { return p.name }
func (p *fakeLLMProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.response, ProviderName: p.name}, nil
}

// scriptedOutlineService wires a fake provider whose behavior depends on the
// api key it was created with.
func scriptedOutlineService(keys []string, behavior map[string]*fakeLLMProvider, attempts *[]string) *OutlineService {
	s := NewOutlineService("fake", keys)
	s.newProvider = func(name string, config map[string]string) (llm.Provider, error) {
		key := config["api_key"]
		*attempts = append(*attempts, key)
		provider, ok := behavior[key]
		if !ok {
			return nil, errors.New("unknown key")
		}
		return provider, nil
	}
	return s
}

func TestGenerateOutlineSuccess(t *testing.T) {
	var attempts []string
	s := scriptedOutlineService([]string{"k1"}, map[string]*fakeLLMProvider{
		"k1": {name: "fake", response: outlineJSON},
	}, &attempts)

	data, err := s.GenerateOutline(context.Background(), "a lighthouse keeper", models.StyleNoir, 2)
	if err != nil {
		t.Fatalf("GenerateOutline returned error: %v", err)
	}

	if data.Topic != "a lighthouse keeper" || data.Style != models.StyleNoir || data.SceneCount != 2 {
		t.Fatalf("unexpected project metadata: %+v", data)
	}
	if len(data.Standard) != 2 || len(data.Experimental) != 2 {
		t.Fatalf("unexpected scene counts: %d/%d", len(data.Standard), len(data.Experimental))
	}

	for i, scene := range data.Standard {
		if scene.ID == "" {
			t.Fatal("scene should receive a fresh id")
		}
		if scene.Order != i+1 {
			t.Fatalf("scene %d has order %d", i, scene.Order)
		}
		if scene.Status != models.SceneStatusEmpty {
			t.Fatalf("new scene should start empty, got %q", scene.Status)
		}
		if scene.HasImage() {
			t.Fatal("new scene should have no image")
		}
	}
	if data.Standard[0].ID == data.Standard[1].ID {
		t.Fatal("scene ids must be unique")
	}
	if data.Standard[1].Title != "The Storm" {
		t.Fatalf("scene content not carried over: %+v", data.Standard[1])
	}
}

func TestGenerateOutlineFencedResponsesParseIdentically(t *testing.T) {
	wrapped := []string{
		outlineJSON,
		"```json\n" + outlineJSON + "\n```",
		"```\n" + outlineJSON + "\n```",
	}

	for _, raw := range wrapped {
		var attempts []string
		s := scriptedOutlineService([]string{"k1"}, map[string]*fakeLLMProvider{
			"k1": {name: "fake", response: raw},
		}, &attempts)

		data, err := s.GenerateOutline(context.Background(), "topic", models.StyleAnime, 2)
		if err != nil {
			t.Fatalf("fenced response failed to parse: %v", err)
		}
		if len(data.Standard) != 2 {
			t.Fatalf("fenced response parsed differently: %d scenes", len(data.Standard))
		}
	}
}

func TestGenerateOutlineParseError(t *testing.T) {
	var attempts []string
	s := scriptedOutlineService([]string{"k1"}, map[string]*fakeLLMProvider{
		"k1": {name: "fake", response: "Sorry, I cannot produce JSON today."},
	}, &attempts)

	_, err := s.GenerateOutline(context.Background(), "topic", models.StyleRealism, 3)
	if !apperrors.IsParseError(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
	// Parse failures are not retried.
	if len(attempts) != 1 {
		t.Fatalf("parse failure should not trigger rotation, got %d attempts", len(attempts))
	}
}

func TestGenerateOutlineValidation(t *testing.T) {
	s := NewOutlineService("fake", []string{"k1"})

	cases := []struct {
		name       string
		topic      string
		style      string
		sceneCount int
	}{
		{"empty topic", "  ", models.StyleRealism, 3},
		{"count too low", "topic", models.StyleRealism, 0},
		{"count too high", "topic", models.StyleRealism, 11},
		{"unknown style", "topic", "watercolor", 3},
	}

	for _, tc := range cases {
		if _, err := s.GenerateOutline(context.Background(), tc.topic, tc.style, tc.sceneCount); !apperrors.IsValidationError(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestGenerateOutlineNoCredential(t *testing.T) {
	s := NewOutlineService("fake", nil)

	_, err := s.GenerateOutline(context.Background(), "topic", models.StyleRealism, 3)
	if !apperrors.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestGenerateOutlineRotation(t *testing.T) {
	var attempts []string
	s := scriptedOutlineService([]string{"k1", "k2", "k3"}, map[string]*fakeLLMProvider{
		"k1": {name: "fake", err: errors.New("quota exceeded")},
		"k2": {name: "fake", response: outlineJSON},
		"k3": {name: "fake", response: outlineJSON},
	}, &attempts)

	if _, err := s.GenerateOutline(context.Background(), "topic", models.StyleRealism, 2); err != nil {
		t.Fatalf("rotation should have recovered: %v", err)
	}
	if len(attempts) != 2 || attempts[0] != "k1" || attempts[1] != "k2" {
		t.Fatalf("expected attempts [k1 k2], got %v", attempts)
	}
}

func TestSanitizeLLMJSONResponse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced upper tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"stray backticks", "`{\"a\":1}`", `{"a":1}`},
		{"surrounding space", "  \n{\"a\":1}\n ", `{"a":1}`},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		if got := SanitizeLLMJSONResponse(tc.in); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
