// Package rawbuf compiles compute shaders in IR form to HLSL, lowering every
// storage buffer access to raw word loads and stores on a
// RWByteAddressBuffer.
//
// Storage buffer types carry their layout in the IR: member offsets, array
// strides and struct spans are read as recorded, never recomputed.
//
// Example usage:
//
//	code, info, err := rawbuf.Compile(module)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d primitive accesses\n", info.StorageAccesses)
//
// For control over register assignment, use the hlsl package options:
//
//	opts := rawbuf.DefaultOptions()
//	opts.HLSL.BindingMap[hlsl.ResourceBinding{Group: 0, Binding: 0}] = hlsl.BindTarget{Register: 2}
//	code, info, err := rawbuf.CompileWithOptions(module, opts)
package rawbuf

import (
	"fmt"

	"github.com/gogpu/rawbuf/hlsl"
	"github.com/gogpu/rawbuf/ir"
)

// CompileOptions configures shader compilation.
type CompileOptions struct {
	// Validate enables IR validation before code generation
	Validate bool

	// HLSL configures the backend. Nil means hlsl.DefaultOptions().
	HLSL *hlsl.Options
}

// DefaultOptions returns sensible default options.
func DefaultOptions() CompileOptions {
	return CompileOptions{
		Validate: true,
		HLSL:     hlsl.DefaultOptions(),
	}
}

// Compile compiles an IR module to HLSL using default options.
func Compile(module *ir.Module) (string, *hlsl.TranslationInfo, error) {
	return CompileWithOptions(module, DefaultOptions())
}

// CompileWithOptions compiles an IR module to HLSL with custom options.
//
// The compilation pipeline is:
//  1. Validate IR (if enabled)
//  2. Resolve missing expression type tables
//  3. Generate HLSL
//
// Step 2 fills Function.ExpressionTypes of the module in place.
func CompileWithOptions(module *ir.Module, opts CompileOptions) (string, *hlsl.TranslationInfo, error) {
	if module == nil {
		return "", nil, fmt.Errorf("module is nil")
	}

	if opts.Validate {
		if err := Validate(module); err != nil {
			return "", nil, fmt.Errorf("validation failed: %w", err)
		}
	}

	if err := ir.ResolveModuleTypes(module); err != nil {
		return "", nil, fmt.Errorf("type resolution error: %w", err)
	}

	return GenerateHLSL(module, opts.HLSL)
}

// Validate validates an IR module for correctness.
//
// Validation checks include:
//   - Reference validity (all handles point to valid objects)
//   - Vector and matrix dimensions
//   - Storage buffer layout (host-shareable 32-bit scalars, strides, offsets)
//   - Compute workgroup sizes
//
// Every problem found is reported; use multierr.Errors to list them.
func Validate(module *ir.Module) error {
	return ir.Validate(module)
}

// GenerateHLSL generates HLSL source from an IR module.
func GenerateHLSL(module *ir.Module, opts *hlsl.Options) (string, *hlsl.TranslationInfo, error) {
	code, info, err := hlsl.Compile(module, opts)
	if err != nil {
		return "", nil, fmt.Errorf("HLSL generation error: %w", err)
	}
	return code, info, nil
}
