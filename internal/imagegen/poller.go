// internal/imagegen/poller.go
package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/aidirector/studio/internal/errors"
)

// PollPolicy bounds the availability poller. The same primitive serves both
// execution contexts; only the parameters differ.
type PollPolicy struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DisplayPollPolicy is tuned for interactive display: fail fast enough that
// the user sees a blank scene instead of an endless spinner.
var DisplayPollPolicy = PollPolicy{MaxRetries: 12, RetryDelay: 2 * time.Second}

// ExportPollPolicy is tuned for archive export, an explicit batch operation
// the user is willing to wait longer for.
var ExportPollPolicy = PollPolicy{MaxRetries: 30, RetryDelay: 5 * time.Second}

// Poller resolves possibly-not-yet-fetchable image handles into bytes.
// Asynchronous providers hand out URLs that 404 until server-side rendering
// completes.
type Poller struct {
	client *http.Client
}

// NewPoller creates a poller with the given HTTP client. A nil client uses
// http.DefaultClient.
func NewPoller(client *http.Client) *Poller {
	if client == nil {
		client = http.DefaultClient
	}
	return &Poller{client: client}
}

// WaitForImage fetches url, retrying on any non-success at fixed intervals
// until the policy's bound is exhausted. Data-embedded URLs are decoded
// inline without touching the network.
func (p *Poller) WaitForImage(ctx context.Context, url string, policy PollPolicy) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}

	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		data, err := p.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == policy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(policy.RetryDelay):
		}
	}

	return nil, apperrors.NewImageUnavailableError(url, policy.MaxRetries)
}

func (p *Poller) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// decodeDataURL extracts the payload of a data:...;base64,... URL.
func decodeDataURL(url string) ([]byte, error) {
	idx := strings.Index(url, ",")
	if idx < 0 {
		return nil, fmt.Errorf("malformed data URL")
	}
	meta, payload := url[:idx], url[idx+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data URL encoding")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// EncodeDataURL wraps raw image bytes as an embeddable data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
