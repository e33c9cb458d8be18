// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrUnsupportedFeature, "UnsupportedFeature"},
		{ErrMissingBinding, "MissingBinding"},
		{ErrInternalError, "InternalError"},
		{ErrInvalidModule, "InvalidModule"},
		{ErrUnsupportedType, "UnsupportedType"},
		{ErrEntryPointNotFound, "EntryPointNotFound"},
		{ErrUnsupportedPointerChain, "UnsupportedPointerChain"},
		{ErrorKind(255), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("ErrorKind.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	err1 := &Error{
		Kind:    ErrMissingBinding,
		Message: "resource 'buffer0' has no binding",
	}
	got1 := err1.Error()
	if !strings.Contains(got1, "MissingBinding") {
		t.Errorf("Error() should contain kind, got %q", got1)
	}
	if !strings.Contains(got1, "resource 'buffer0'") {
		t.Errorf("Error() should contain message, got %q", got1)
	}

	err2 := NewErrorWithSpan(ErrUnsupportedType, "16-bit scalar in storage", 100, 150)
	got2 := err2.Error()
	if !strings.Contains(got2, "100") || !strings.Contains(got2, "150") {
		t.Errorf("Error() with span should contain location, got %q", got2)
	}
}

func TestNewError(t *testing.T) {
	err := NewError(ErrInternalError, "unexpected nil pointer")

	if err.Kind != ErrInternalError {
		t.Errorf("Kind = %v, want ErrInternalError", err.Kind)
	}
	if err.Message != "unexpected nil pointer" {
		t.Errorf("Message = %q, want \"unexpected nil pointer\"", err.Message)
	}
	if err.Span != nil {
		t.Error("Span should be nil")
	}
}

func TestError_Predicates(t *testing.T) {
	tests := []struct {
		name                 string
		err                  *Error
		isUnsupportedFeature bool
		isMissingBinding     bool
		isInternalError      bool
		isPointerChain       bool
	}{
		{
			name:                 "unsupported feature",
			err:                  &Error{Kind: ErrUnsupportedFeature},
			isUnsupportedFeature: true,
		},
		{
			name:             "missing binding",
			err:              &Error{Kind: ErrMissingBinding},
			isMissingBinding: true,
		},
		{
			name:            "internal error",
			err:             &Error{Kind: ErrInternalError},
			isInternalError: true,
		},
		{
			name:           "pointer chain",
			err:            &Error{Kind: ErrUnsupportedPointerChain},
			isPointerChain: true,
		},
		{
			name: "other error",
			err:  &Error{Kind: ErrInvalidModule},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsUnsupportedFeature(); got != tt.isUnsupportedFeature {
				t.Errorf("IsUnsupportedFeature() = %v, want %v", got, tt.isUnsupportedFeature)
			}
			if got := tt.err.IsMissingBinding(); got != tt.isMissingBinding {
				t.Errorf("IsMissingBinding() = %v, want %v", got, tt.isMissingBinding)
			}
			if got := tt.err.IsInternalError(); got != tt.isInternalError {
				t.Errorf("IsInternalError() = %v, want %v", got, tt.isInternalError)
			}
			if got := tt.err.IsUnsupportedPointerChain(); got != tt.isPointerChain {
				t.Errorf("IsUnsupportedPointerChain() = %v, want %v", got, tt.isPointerChain)
			}
		})
	}
}

func TestInternalErrorf(t *testing.T) {
	err := internalErrorf("storage load of %s", "bool")

	var hlslErr *Error
	if !errors.As(err, &hlslErr) {
		t.Fatalf("errors.As failed for %v", err)
	}
	if !hlslErr.IsInternalError() {
		t.Errorf("Kind = %v, want InternalError", hlslErr.Kind)
	}
	if hlslErr.Message != "storage load of bool" {
		t.Errorf("Message = %q", hlslErr.Message)
	}

	// %+v prints the recorded stack.
	verbose := fmt.Sprintf("%+v", err)
	if !strings.Contains(verbose, "TestInternalErrorf") {
		t.Errorf("stack trace missing caller:\n%s", verbose)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("hlsl: %w", NewError(ErrUnsupportedPointerChain, "x"))
	kind, ok := KindOf(wrapped)
	if !ok || kind != ErrUnsupportedPointerChain {
		t.Errorf("KindOf = %v, %v; want UnsupportedPointerChain, true", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf should not match a plain error")
	}
}
