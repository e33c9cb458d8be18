// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/rawbuf/ir"
)

// Options configures HLSL code generation.
type Options struct {
	// BindingMap maps source resource bindings to HLSL register targets.
	// If a binding is not found in the map and FakeMissingBindings is false,
	// compilation will fail with ErrMissingBinding.
	BindingMap map[ResourceBinding]BindTarget

	// FakeMissingBindings generates automatic bindings for resources
	// not found in BindingMap: space = group, register = binding.
	FakeMissingBindings bool

	// EntryPoint specifies which entry point to compile.
	// If empty, all entry points are written.
	EntryPoint string

	// Logger receives a debug record for every storage buffer load and
	// store sequence. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default options for HLSL generation.
func DefaultOptions() *Options {
	return &Options{
		BindingMap:          make(map[ResourceBinding]BindTarget),
		FakeMissingBindings: true,
	}
}

// TranslationInfo contains metadata about the HLSL translation.
type TranslationInfo struct {
	// EntryPointNames maps original entry point names to generated HLSL names.
	EntryPointNames map[string]string

	// RegisterBindings maps resource names to their HLSL register bindings.
	// Format: "resourceName" -> "register(u0, space0)"
	RegisterBindings map[string]string

	// StorageAccesses counts the primitive Load/Store calls emitted on
	// byte address buffers.
	StorageAccesses int
}

// Compile generates HLSL source code from an IR module.
// Returns the HLSL source, translation info, or an error.
func Compile(module *ir.Module, options *Options) (string, *TranslationInfo, error) {
	if module == nil {
		return "", nil, NewError(ErrInvalidModule, "module is nil")
	}

	if options == nil {
		options = DefaultOptions()
	}

	w := newWriter(module, options)

	if err := w.writeModule(); err != nil {
		return "", nil, fmt.Errorf("hlsl: %w", err)
	}

	info := &TranslationInfo{
		EntryPointNames:  w.entryPointNames,
		RegisterBindings: w.registerBindings,
		StorageAccesses:  w.storageAccesses,
	}

	return w.String(), info, nil
}
