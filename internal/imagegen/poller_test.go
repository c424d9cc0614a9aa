package imagegen

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/aidirector/studio/internal/errors"
)

func fastPolicy(maxRetries int) PollPolicy {
	return PollPolicy{MaxRetries: maxRetries, RetryDelay: time.Millisecond}
}

func TestWaitForImageSucceedsOnAttemptJ(t *testing.T) {
	var calls atomic.Int32
	payload := []byte("png-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	poller := NewPoller(server.Client())
	data, err := poller.WaitForImage(context.Background(), server.URL, fastPolicy(5))
	if err != nil {
		t.Fatalf("WaitForImage returned error: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("unexpected payload: %q", data)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
}

func TestWaitForImageExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	poller := NewPoller(server.Client())
	_, err := poller.WaitForImage(context.Background(), server.URL, fastPolicy(4))
	if !apperrors.IsImageUnavailable(err) {
		t.Fatalf("expected image unavailable, got %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("expected exactly 4 attempts, got %d", got)
	}
}

func TestWaitForImageRespectsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := NewPoller(server.Client())
	_, err := poller.WaitForImage(ctx, server.URL, PollPolicy{MaxRetries: 100, RetryDelay: time.Second})
	if err == nil {
		t.Fatal("cancelled poll should fail")
	}
	if apperrors.IsImageUnavailable(err) {
		t.Fatalf("cancellation should not be reported as exhaustion: %v", err)
	}
}

func TestWaitForImageDecodesDataURL(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	url := EncodeDataURL("image/png", payload)

	poller := NewPoller(nil)
	data, err := poller.WaitForImage(context.Background(), url, fastPolicy(1))
	if err != nil {
		t.Fatalf("data URL decode failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("round trip mismatch: %v", data)
	}
}

func TestWaitForImageRejectsMalformedDataURL(t *testing.T) {
	poller := NewPoller(nil)
	if _, err := poller.WaitForImage(context.Background(), "data:image/png;base64", fastPolicy(1)); err == nil {
		t.Fatal("malformed data URL should fail")
	}
}
