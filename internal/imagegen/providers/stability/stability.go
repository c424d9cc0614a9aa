// internal/imagegen/providers/stability/stability.go
package stability

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aidirector/studio/internal/imagegen"
)

func init() {
	imagegen.Register("stability", func() imagegen.Provider {
		return &Provider{
			baseURL: "https://api.stability.ai/v2beta/stable-image/generate/core",
		}
	})
}

// Provider calls the Stability AI stable-image endpoint. This is a
// synchronous-binary provider: the response body is the rendered image, so
// results are always immediately ready.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("stability api key not provided")
	}

	p.apiKey = apiKey
	p.client = &http.Client{Timeout: 120 * time.Second}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	return nil
}

func (p *Provider) GetName() string {
	return "stability ai"
}

func (p *Provider) Generate(ctx context.Context, req imagegen.Request) (*imagegen.Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	writer.WriteField("prompt", req.Prompt)
	writer.WriteField("output_format", "png")

	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}
	writer.WriteField("aspect_ratio", aspectRatio)

	if req.ExistingImage != "" {
		imageData, err := decodeImagePayload(req.ExistingImage)
		if err != nil {
			return nil, fmt.Errorf("decode existing image: %w", err)
		}
		part, err := writer.CreateFormFile("image", "input.png")
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(imageData); err != nil {
			return nil, err
		}
		writer.WriteField("strength", "0.6")
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Accept", "image/*")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		errorText, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("stability API error (%d): %s", httpResp.StatusCode, string(errorText))
	}

	imageData, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if len(imageData) == 0 {
		return nil, errors.New("stability API returned an empty image")
	}

	return &imagegen.Result{
		Ready:    true,
		ImageURL: imagegen.EncodeDataURL("image/png", imageData),
	}, nil
}

// decodeImagePayload accepts either a raw base64 string or a data URL.
func decodeImagePayload(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, errors.New("malformed data URL")
		}
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
