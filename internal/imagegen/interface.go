// internal/imagegen/interface.go
package imagegen

import (
	"context"
	"errors"
)

var ErrUnknownProvider = errors.New("unknown image provider")

// Request is the normalized image generation request.
type Request struct {
	// Prompt is the fully enriched generation prompt.
	Prompt string `json:"prompt"`
	// ExistingImage, when set, switches the request to an image-to-image
	// modification of that image. Provider-dependent semantics.
	ExistingImage string `json:"existing_image,omitempty"`
	AspectRatio   string `json:"aspect_ratio,omitempty"`
}

// Result is the normalized outcome of a generation call. Exactly one of the
// two shapes is populated:
//   - Ready=true:  ImageURL holds a fetchable (possibly data-embedded) URL.
//   - Ready=false: FutureURL holds a handle that becomes fetchable once
//     server-side rendering finishes; resolve it through the poller.
type Result struct {
	Ready      bool    `json:"ready"`
	ImageURL   string  `json:"image_url,omitempty"`
	FutureURL  string  `json:"future_url,omitempty"`
	ETASeconds float64 `json:"eta_seconds,omitempty"`
}

// URL returns whichever handle the result carries.
func (r *Result) URL() string {
	if r.Ready {
		return r.ImageURL
	}
	return r.FutureURL
}

// Provider is the contract every image generation provider implements.
// Synchronous-binary and asynchronous-handle providers are both expressed
// through it; the caller never blocks on provider-side rendering.
type Provider interface {
	// Initialize configures the provider. config["api_key"] is required.
	Initialize(config map[string]string) error

	// GetName returns the provider display name.
	GetName() string

	// Generate issues one generation or modification request.
	Generate(ctx context.Context, req Request) (*Result, error)
}

// ProviderFactory constructs an unconfigured provider instance.
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register registers a provider factory under the given name.
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider creates and initializes a provider instance by name.
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}
