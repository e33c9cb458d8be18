// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"testing"

	"github.com/gogpu/rawbuf/ir"
)

var (
	f32 = ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}
	u32 = ir.ScalarType{Kind: ir.ScalarUint, Width: 4}
	i32 = ir.ScalarType{Kind: ir.ScalarSint, Width: 4}
)

func TestScalarToHLSL(t *testing.T) {
	tests := []struct {
		scalar ir.ScalarType
		want   string
	}{
		{f32, "float"},
		{u32, "uint"},
		{i32, "int"},
		{ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}, "half"},
		{ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}, "double"},
		{ir.ScalarType{Kind: ir.ScalarUint, Width: 8}, "uint64_t"},
		{ir.ScalarType{Kind: ir.ScalarBool, Width: 1}, "bool"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ScalarToHLSL(tt.scalar); got != tt.want {
				t.Errorf("ScalarToHLSL(%v) = %q, want %q", tt.scalar, got, tt.want)
			}
		})
	}
}

func TestVectorAndMatrixToHLSL(t *testing.T) {
	if got := VectorToHLSL(ir.VectorType{Size: ir.Vec3, Scalar: u32}); got != "uint3" {
		t.Errorf("VectorToHLSL = %q, want uint3", got)
	}
	// 4 columns of 3 rows
	m := ir.MatrixType{Columns: ir.Vec4, Rows: ir.Vec3, Scalar: f32}
	if got := MatrixToHLSL(m); got != "float4x3" {
		t.Errorf("MatrixToHLSL = %q, want float4x3", got)
	}
}

func TestScalarCast(t *testing.T) {
	tests := []struct {
		kind ir.ScalarKind
		want string
	}{
		{ir.ScalarFloat, "asfloat"},
		{ir.ScalarSint, "asint"},
		{ir.ScalarUint, "asuint"},
	}
	for _, tt := range tests {
		if got := ScalarCast(tt.kind); got != tt.want {
			t.Errorf("ScalarCast(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestBuiltInToSemantic(t *testing.T) {
	tests := []struct {
		builtin ir.BuiltinValue
		want    string
	}{
		{ir.BuiltinGlobalInvocationID, "SV_DispatchThreadID"},
		{ir.BuiltinLocalInvocationID, "SV_GroupThreadID"},
		{ir.BuiltinLocalInvocationIndex, "SV_GroupIndex"},
		{ir.BuiltinWorkGroupID, "SV_GroupID"},
		{ir.BuiltinPosition, "SV_Position"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := BuiltInToSemantic(tt.builtin)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("BuiltInToSemantic(%d) = %q, want %q", tt.builtin, got, tt.want)
			}
		})
	}

	if _, err := BuiltInToSemantic(ir.BuiltinNumWorkGroups); err == nil {
		t.Error("num_workgroups should not map to a semantic")
	}
}

func TestShaderStageToHLSL(t *testing.T) {
	if got := ShaderStageToHLSL(ir.StageCompute); got != "cs" {
		t.Errorf("compute = %q, want cs", got)
	}
	if got := ShaderStageToHLSL(ir.StageFragment); got != "ps" {
		t.Errorf("fragment = %q, want ps", got)
	}
}
