// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "testing"

func TestIsReserved(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		// keywords
		{"bool", true},
		{"struct", true},
		{"cbuffer", true},
		{"RWByteAddressBuffer", true},
		{"groupshared", true},
		// reserved C++ words
		{"auto", true},
		{"delete", true},
		{"nullptr", true},
		// intrinsics emitted by storage lowering
		{"asfloat", true},
		{"asint", true},
		{"asuint", true},
		{"transpose", true},
		{"mul", true},
		// type shorthands
		{"float3", true},
		{"uint4", true},
		{"float3x4", true},
		{"half2x2", true},
		// ordinary identifiers
		{"position", false},
		{"buf", false},
		{"_myPrivateVar", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsReserved(tt.input); got != tt.expected {
				t.Errorf("IsReserved(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsCaseInsensitiveReserved(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"asm", true},
		{"ASM", true},
		{"Technique", true},
		{"TEXTURE2D", true},
		{"float", false},
		{"buffer", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsCaseInsensitiveReserved(tt.input); got != tt.expected {
				t.Errorf("IsCaseInsensitiveReserved(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", UnnamedIdentifier},
		{"float", "_float"},
		{"transpose", "_transpose"},
		{"Pass", "_Pass"},
		{"_value1", "_value1_"},
		{"_VALUE12", "_VALUE12_"},
		{"_e4", "_e4_"},
		{"_value", "_value"},
		{"_valuex", "_valuex"},
		{"_e", "_e"},
		{"data", "data"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Escape(tt.input); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTypeShorthandsGeneration(t *testing.T) {
	for _, name := range []string{"float", "float1", "float4", "float1x1", "float4x4", "uint2x3", "int64_t4"} {
		if _, ok := typeShorthands[name]; !ok {
			t.Errorf("typeShorthands missing %q", name)
		}
	}
	if _, ok := typeShorthands["float5"]; ok {
		t.Error("float5 is not an HLSL type")
	}
}

func BenchmarkEscape(b *testing.B) {
	names := []string{"position", "float", "_value3", "myVariable"}
	for i := 0; i < b.N; i++ {
		for _, name := range names {
			_ = Escape(name)
		}
	}
}
