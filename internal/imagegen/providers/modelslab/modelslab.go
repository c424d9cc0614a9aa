// internal/imagegen/providers/modelslab/modelslab.go
package modelslab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aidirector/studio/internal/imagegen"
)

func init() {
	imagegen.Register("modelslab", func() imagegen.Provider {
		return &Provider{
			baseURL: "https://modelslab.com/api/v6/realtime",
		}
	})
}

// Provider calls the ModelsLab realtime image API. This is an
// asynchronous-handle provider: when rendering has not finished server-side
// the response carries a future link that only becomes fetchable later. The
// provider returns that handle immediately; readiness is the availability
// poller's concern, not this client's.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("modelslab api key not provided")
	}

	p.apiKey = apiKey
	p.client = &http.Client{Timeout: 60 * time.Second}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	return nil
}

func (p *Provider) GetName() string {
	return "modelslab"
}

func (p *Provider) Generate(ctx context.Context, req imagegen.Request) (*imagegen.Result, error) {
	endpoint := p.baseURL + "/text2img"

	requestBody := map[string]interface{}{
		"key":     p.apiKey,
		"prompt":  req.Prompt,
		"width":   "1024",
		"height":  "576",
		"samples": "1",
	}

	if req.ExistingImage != "" {
		endpoint = p.baseURL + "/img2img"
		requestBody["init_image"] = req.ExistingImage
		requestBody["strength"] = 0.6
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("modelslab API error (%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		Status      string   `json:"status"`
		Message     string   `json:"message,omitempty"`
		ETA         float64  `json:"eta,omitempty"`
		Output      []string `json:"output,omitempty"`
		FutureLinks []string `json:"future_links,omitempty"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	switch response.Status {
	case "success":
		if len(response.Output) == 0 {
			return nil, errors.New("modelslab returned success without output")
		}
		return &imagegen.Result{
			Ready:    true,
			ImageURL: response.Output[0],
		}, nil

	case "processing":
		// The future link 404s until server-side rendering completes.
		handle := ""
		if len(response.FutureLinks) > 0 {
			handle = response.FutureLinks[0]
		} else if len(response.Output) > 0 {
			handle = response.Output[0]
		}
		if handle == "" {
			return nil, errors.New("modelslab returned processing without a future link")
		}
		return &imagegen.Result{
			Ready:      false,
			FutureURL:  handle,
			ETASeconds: response.ETA,
		}, nil

	default:
		return nil, fmt.Errorf("modelslab request failed: %s %s", response.Status, response.Message)
	}
}
