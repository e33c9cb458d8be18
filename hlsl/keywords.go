// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"strings"
)

// UnnamedIdentifier is the default name for empty identifiers.
const UnnamedIdentifier = "_unnamed"

// Prefixes of compiler-generated locals. User identifiers of the form
// prefix+digits are renamed so they cannot shadow a generated name.
const (
	storeTempName  = "_value"
	emitTempPrefix = "_e"
)

// keywordList holds FXC keywords, C++ words FXC reserves, and the FXC
// intrinsic functions.
const keywordList = `
AppendStructuredBuffer asm asm_fragment BlendState bool break Buffer
ByteAddressBuffer case cbuffer centroid class column_major compile
compile_fragment CompileShader const continue ComputeShader
ConsumeStructuredBuffer default DepthStencilState DepthStencilView discard
do double DomainShader dword else export extern false float for fxgroup
GeometryShader groupshared half Hullshader if in inline inout InputPatch
int interface line lineadj linear LineStream matrix min10float min12int
min16float min16int min16uint namespace nointerpolation noperspective NULL
out OutputPatch packoffset pass pixelfragment PixelShader point PointStream
precise RasterizerState RenderTargetView return register row_major RWBuffer
RWByteAddressBuffer RWStructuredBuffer RWTexture1D RWTexture1DArray
RWTexture2D RWTexture2DArray RWTexture3D sample sampler SamplerState
SamplerComparisonState shared snorm stateblock stateblock_state static
string struct switch StructuredBuffer tbuffer technique technique10
technique11 texture Texture1D Texture1DArray Texture2D Texture2DArray
Texture2DMS Texture2DMSArray Texture3D TextureCube TextureCubeArray true
typedef triangle triangleadj TriangleStream uint uniform unorm unsigned
vector vertexfragment VertexShader void volatile while

auto catch char const_cast delete dynamic_cast enum explicit friend goto
long mutable new operator private protected public reinterpret_cast short
signed sizeof static_cast template this throw try typename union using
virtual

abort abs acos all AllMemoryBarrier AllMemoryBarrierWithGroupSync any
asdouble asfloat asin asint asuint atan atan2 ceil CheckAccessFullyMapped
clamp clip cos cosh countbits cross D3DCOLORtoUBYTE4 ddx ddx_coarse
ddx_fine ddy ddy_coarse ddy_fine degrees determinant DeviceMemoryBarrier
DeviceMemoryBarrierWithGroupSync distance dot dst errorf
EvaluateAttributeAtSample EvaluateAttributeCentroid EvaluateAttributeSnapped
exp exp2 f16tof32 f32tof16 faceforward firstbithigh firstbitlow floor fma
fmod frac frexp fwidth GetRenderTargetSampleCount
GetRenderTargetSamplePosition GroupMemoryBarrier
GroupMemoryBarrierWithGroupSync InterlockedAdd InterlockedAnd
InterlockedCompareExchange InterlockedCompareStore InterlockedExchange
InterlockedMax InterlockedMin InterlockedOr InterlockedXor isfinite isinf
isnan ldexp length lerp lit log log10 log2 mad max min modf msad4 mul noise
normalize pow printf radians rcp reflect refract reversebits round rsqrt
saturate sign sin sincos sinh smoothstep sqrt step tan tanh transpose trunc

constexpr nullptr alignas alignof decltype noexcept static_assert
thread_local export import module
`

// reservedKeywords contains all HLSL reserved keywords.
var reservedKeywords = wordSet(keywordList)

// caseInsensitiveKeywords contains keywords that FXC matches regardless of case.
var caseInsensitiveKeywords = wordSet("asm decl pass technique texture1d texture2d texture3d texturecube")

// typeShorthands contains the scalar, vector, and matrix type names.
var typeShorthands = func() map[string]struct{} {
	result := make(map[string]struct{})
	bases := []string{
		"bool", "int", "uint", "dword", "half", "float", "double",
		"min10float", "min16float", "min12int", "min16int", "min16uint",
		"int16_t", "int32_t", "int64_t", "uint16_t", "uint32_t", "uint64_t",
		"float16_t", "float32_t", "float64_t",
	}
	const dims = "1234"
	for _, base := range bases {
		result[base] = struct{}{}
		for _, r := range dims {
			result[base+string(r)] = struct{}{}
			for _, c := range dims {
				result[base+string(r)+"x"+string(c)] = struct{}{}
			}
		}
	}
	return result
}()

func wordSet(words string) map[string]struct{} {
	fields := strings.Fields(words)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// IsReserved checks if a name is an HLSL reserved keyword.
func IsReserved(name string) bool {
	if _, ok := reservedKeywords[name]; ok {
		return true
	}
	_, ok := typeShorthands[name]
	return ok
}

// IsCaseInsensitiveReserved checks if a name conflicts with case-insensitive keywords.
func IsCaseInsensitiveReserved(name string) bool {
	_, ok := caseInsensitiveKeywords[strings.ToLower(name)]
	return ok
}

// isGeneratedTemporary reports whether name has the shape of a compiler
// generated local (_value1, _e12).
func isGeneratedTemporary(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range []string{storeTempName, emitTempPrefix} {
		digits, ok := strings.CutPrefix(lower, prefix)
		if !ok || digits == "" {
			continue
		}
		if strings.Trim(digits, "0123456789") == "" {
			return true
		}
	}
	return false
}

// Escape returns a safe identifier name.
// Reserved words get an underscore prefix; names that collide with
// generated temporaries get an underscore suffix.
func Escape(name string) string {
	if name == "" {
		return UnnamedIdentifier
	}
	if IsReserved(name) || IsCaseInsensitiveReserved(name) {
		return "_" + name
	}
	if isGeneratedTemporary(name) {
		return name + "_"
	}
	return name
}
