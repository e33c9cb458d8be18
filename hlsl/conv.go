// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/rawbuf/ir"
)

// ScalarToHLSL returns the HLSL type name for a scalar type.
// Ref: https://docs.microsoft.com/en-us/windows/win32/direct3dhlsl/dx-graphics-hlsl-scalar
func ScalarToHLSL(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarBool:
		return "bool"
	case ir.ScalarSint:
		if s.Width == 8 {
			return "int64_t"
		}
		return "int"
	case ir.ScalarUint:
		if s.Width == 8 {
			return "uint64_t"
		}
		return "uint"
	case ir.ScalarFloat:
		switch s.Width {
		case 2:
			return "half"
		case 8:
			return "double"
		default:
			return "float"
		}
	default:
		return "int"
	}
}

// VectorToHLSL returns the HLSL type name for a vector type.
// HLSL uses TypeN syntax (e.g., float4, int3).
func VectorToHLSL(v ir.VectorType) string {
	return fmt.Sprintf("%s%d", ScalarToHLSL(v.Scalar), v.Size)
}

// MatrixToHLSL returns the HLSL type name for a matrix type.
// A matrix with C columns of R rows is declared floatCxR: each IR column
// becomes an HLSL row, so m[i] still selects column i.
func MatrixToHLSL(m ir.MatrixType) string {
	return fmt.Sprintf("%s%dx%d", ScalarToHLSL(m.Scalar), m.Columns, m.Rows)
}

// ScalarCast returns the HLSL cast function for a scalar kind.
// Used for reinterpreting bits (asfloat, asint, asuint).
func ScalarCast(k ir.ScalarKind) string {
	switch k {
	case ir.ScalarFloat:
		return "asfloat"
	case ir.ScalarSint:
		return "asint"
	default:
		return "asuint"
	}
}

// BuiltInToSemantic returns the HLSL semantic for a built-in value.
// Ref: https://docs.microsoft.com/en-us/windows/win32/direct3dhlsl/dx-graphics-hlsl-semantics
func BuiltInToSemantic(b ir.BuiltinValue) (string, error) {
	switch b {
	case ir.BuiltinPosition:
		return "SV_Position", nil
	case ir.BuiltinVertexIndex:
		return "SV_VertexID", nil
	case ir.BuiltinInstanceIndex:
		return "SV_InstanceID", nil
	case ir.BuiltinFrontFacing:
		return "SV_IsFrontFace", nil
	case ir.BuiltinFragDepth:
		return "SV_Depth", nil
	case ir.BuiltinSampleIndex:
		return "SV_SampleIndex", nil
	case ir.BuiltinSampleMask:
		return "SV_Coverage", nil
	case ir.BuiltinGlobalInvocationID:
		return "SV_DispatchThreadID", nil
	case ir.BuiltinLocalInvocationID:
		return "SV_GroupThreadID", nil
	case ir.BuiltinLocalInvocationIndex:
		return "SV_GroupIndex", nil
	case ir.BuiltinWorkGroupID:
		return "SV_GroupID", nil
	default:
		// num_workgroups has no system value; it needs a constant buffer.
		return "", NewError(ErrUnsupportedFeature, fmt.Sprintf("builtin %d has no HLSL semantic", b))
	}
}

// ShaderStageToHLSL returns the HLSL profile prefix for a shader stage.
func ShaderStageToHLSL(stage ir.ShaderStage) string {
	switch stage {
	case ir.StageVertex:
		return "vs"
	case ir.StageFragment:
		return "ps"
	case ir.StageCompute:
		return "cs"
	default:
		return "unknown"
	}
}
