package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	cases := []struct {
		code       Code
		status     int
		retryable  bool
		allowsInfo bool
	}{
		{CodeValidation, http.StatusBadRequest, false, true},
		{CodeUnauthorized, http.StatusUnauthorized, false, false},
		{CodeForbidden, http.StatusForbidden, false, false},
		{CodeNotFound, http.StatusNotFound, false, false},
		{CodeConflict, http.StatusConflict, true, true},
		{CodeStateConflict, http.StatusUnprocessableEntity, false, true},
		{CodeRateLimit, http.StatusTooManyRequests, false, false},
		{CodeTimeout, http.StatusGatewayTimeout, true, false},
		{CodeInternal, http.StatusInternalServerError, true, false},
		{CodeDependency, http.StatusServiceUnavailable, true, true},
	}

	for _, tc := range cases {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Errorf("%s: status %d, want %d", tc.code, meta.HTTPStatus, tc.status)
		}
		if meta.Retryable != tc.retryable {
			t.Errorf("%s: retryable %v, want %v", tc.code, meta.Retryable, tc.retryable)
		}
		if meta.DetailsAllowed != tc.allowsInfo {
			t.Errorf("%s: details allowed %v, want %v", tc.code, meta.DetailsAllowed, tc.allowsInfo)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("MADE_UP"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes map to internal, got %d", meta.HTTPStatus)
	}
}

func TestAsUnwrapsThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "auction not found")
	wrapped := fmt.Errorf("handling request: %w", base)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error through fmt wrapping")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("code = %s, want %s", typed.Code(), CodeNotFound)
	}

	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain errors are not typed")
	}
	if As(nil) != nil {
		t.Fatal("nil in, nil out")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "lookup product")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped cause must survive errors.Is")
	}
	if err.Message() != "lookup product" {
		t.Fatalf("message = %q", err.Message())
	}
	if got := err.Error(); got != "DEPENDENCY_ERROR: lookup product" {
		t.Fatalf("error string = %q", got)
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeInternal, nil, "boom")
	if err.Unwrap() != nil {
		t.Fatal("nil cause stays nil")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeStateConflict, "bid below the minimum next bid").
		WithDetails(map[string]any{"minimum_next_bid": "110000"})

	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("details type %T", err.Details())
	}
	if details["minimum_next_bid"] != "110000" {
		t.Fatalf("details = %v", details)
	}
}
