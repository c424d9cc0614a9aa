package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTypePredicates(t *testing.T) {
	cases := []struct {
		err       error
		predicate func(error) bool
		name      string
	}{
		{NewConfigError("no key"), IsConfigError, "config"},
		{NewValidationError("bad input", nil), IsValidationError, "validation"},
		{NewParseError("not json", "raw", nil), IsParseError, "parse"},
		{NewUpstreamError("500", nil), IsUpstreamError, "upstream"},
		{NewCredentialsExhaustedError(3, nil), IsCredentialsExhausted, "exhausted"},
		{NewImageUnavailableError("http://x", 12), IsImageUnavailable, "unavailable"},
		{NewInvalidArchiveError("no manifest", nil), IsInvalidArchive, "archive"},
	}

	for _, tc := range cases {
		if !tc.predicate(tc.err) {
			t.Fatalf("%s predicate should match its constructor", tc.name)
		}
		if tc.name != "validation" && IsValidationError(tc.err) {
			t.Fatalf("%s error should not match validation predicate", tc.name)
		}
	}

	if IsConfigError(errors.New("plain")) {
		t.Fatal("plain errors should not match any predicate")
	}
	if IsConfigError(nil) {
		t.Fatal("nil should not match any predicate")
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := NewUpstreamError("quota exceeded", nil)
	wrapped := fmt.Errorf("outline generation: %w", inner)

	if !IsUpstreamError(wrapped) {
		t.Fatal("predicate should unwrap fmt.Errorf chains")
	}
}

func TestParseErrorTruncatesRawText(t *testing.T) {
	raw := strings.Repeat("x", 2000)
	err := NewParseError("not json", raw, nil)

	if len(err.Message) > 600 {
		t.Fatalf("raw text not truncated: %d bytes", len(err.Message))
	}
	if !strings.Contains(err.Message, "...") {
		t.Fatal("truncated raw text should be marked")
	}
}

func TestCredentialsExhaustedCarriesLastError(t *testing.T) {
	last := errors.New("boom")
	err := NewCredentialsExhaustedError(3, last)

	if !errors.Is(err, last) {
		t.Fatal("last observed error should be in the chain")
	}
	if !strings.Contains(err.Error(), "3") {
		t.Fatalf("attempt count missing from message: %q", err.Error())
	}
}

func TestWrapErrorPreservesType(t *testing.T) {
	inner := NewParseError("not json", "raw", nil)
	wrapped := WrapError(inner, "outline generation failed", ErrorTypeUpstream)

	if !IsParseError(wrapped) {
		t.Fatal("wrapping must preserve the original AppError type")
	}

	plain := WrapError(errors.New("dial tcp: refused"), "provider call failed", ErrorTypeUpstream)
	if !IsUpstreamError(plain) {
		t.Fatal("plain errors take the wrapper's type")
	}

	if WrapError(nil, "noop", ErrorTypeUpstream) != nil {
		t.Fatal("wrapping nil should stay nil")
	}
}
