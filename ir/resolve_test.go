package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	testF32 = ScalarType{Kind: ScalarFloat, Width: 4}
	testU32 = ScalarType{Kind: ScalarUint, Width: 4}
	testI32 = ScalarType{Kind: ScalarSint, Width: 4}
	testBool = ScalarType{Kind: ScalarBool, Width: 1}
)

func TestResolveLiteralType(t *testing.T) {
	tests := []struct {
		name     string
		literal  Literal
		wantType TypeInner
	}{
		{"f32 literal", Literal{Value: LiteralF32(3.14)}, testF32},
		{"i32 literal", Literal{Value: LiteralI32(42)}, testI32},
		{"u32 literal", Literal{Value: LiteralU32(42)}, testU32},
		{"bool literal", Literal{Value: LiteralBool(true)}, testBool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveLiteralType(tt.literal)
			if err != nil {
				t.Fatalf("resolveLiteralType() error = %v", err)
			}
			if got.Handle != nil {
				t.Errorf("literal resolved to handle %d, want a value", *got.Handle)
			}
			if diff := cmp.Diff(tt.wantType, got.Value); diff != "" {
				t.Errorf("resolveLiteralType() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// resolveTestModule has a storage buffer of
//
//	struct Item { pos: vec3<f32> @0, m: mat4x3<f32> @16 }
//	buf: array<Item>
func resolveTestModule(exprs ...ExpressionKind) (*Module, *Function) {
	module := &Module{
		Types: []Type{
			{Inner: testF32}, // 0
			{Inner: VectorType{Size: Vec3, Scalar: testF32}},                 // 1
			{Inner: MatrixType{Columns: Vec4, Rows: Vec3, Scalar: testF32}},  // 2
			{Name: "Item", Inner: StructType{Members: []StructMember{ // 3
				{Name: "pos", Type: 1, Offset: 0},
				{Name: "m", Type: 2, Offset: 16},
			}, Span: 64}},
			{Inner: ArrayType{Base: 3, Stride: 64}}, // 4
			{Inner: testU32},                        // 5
		},
		Constants: []Constant{
			{Name: "scale", Type: 0, Value: ScalarValue{Kind: ScalarFloat, Bits: 0x3f800000}},
		},
		GlobalVariables: []GlobalVariable{
			{Name: "buf", Space: SpaceStorage, Type: 4, Binding: &ResourceBinding{}},
		},
	}
	fn := Function{
		Name: "f",
		Arguments: []FunctionArgument{
			{Name: "i", Type: 5},
			{Name: "v", Type: 1},
			{Name: "m", Type: 2},
		},
		LocalVars: []LocalVariable{{Name: "acc", Type: 1}},
	}
	for _, kind := range exprs {
		fn.Expressions = append(fn.Expressions, Expression{Kind: kind})
	}
	module.Functions = []Function{fn}
	return module, &module.Functions[0]
}

func TestResolveExpressionType(t *testing.T) {
	rows := Vec3
	module, fn := resolveTestModule(
		ExprGlobalVariable{Variable: 0},              // 0 ptr<array<Item>>
		ExprFunctionArgument{Index: 0},               // 1 u32
		ExprAccess{Base: 0, Index: 1},                // 2 ptr<Item>
		ExprAccessIndex{Base: 2, Index: 0},           // 3 ptr<vec3>
		ExprAccessIndex{Base: 3, Index: 1},           // 4 ptr<f32>, no handle
		ExprAccessIndex{Base: 2, Index: 1},           // 5 ptr<mat4x3>
		ExprAccess{Base: 5, Index: 1},                // 6 ptr<vec3>, a column
		ExprLoad{Pointer: 2},                         // 7 Item
		ExprLoad{Pointer: 4},                         // 8 f32
		ExprLoad{Pointer: 6},                         // 9 vec3
		ExprFunctionArgument{Index: 1},               // 10 vec3
		ExprFunctionArgument{Index: 2},               // 11 mat4x3
		ExprBinary{Op: BinaryMultiply, Left: 11, Right: 10}, // 12 mat * vec
		ExprBinary{Op: BinaryLess, Left: 10, Right: 10},     // 13 vec3<bool>
		ExprAccessIndex{Base: 10, Index: 2},          // 14 f32 value
		ExprSplat{Size: Vec4, Value: 14},             // 15 vec4<f32>
		ExprAs{Expr: 10, Kind: ScalarSint},           // 16 vec3<i32> bitcast
		ExprConstant{Constant: 0},                    // 17 f32 handle
		ExprLocalVariable{Variable: 0},               // 18 ptr<vec3, function>
		ExprSwizzle{Size: Vec2, Vector: 10},          // 19 vec2<f32>
		ExprBinary{Op: BinaryMultiply, Left: 14, Right: 10}, // 20 scalar * vec
	)

	tests := []struct {
		handle ExpressionHandle
		want   TypeResolution
	}{
		{0, ValueResolution(PointerType{Base: 4, Space: SpaceStorage})},
		{1, HandleResolution(5)},
		{2, ValueResolution(PointerType{Base: 3, Space: SpaceStorage})},
		{3, ValueResolution(PointerType{Base: 1, Space: SpaceStorage})},
		{4, ValueResolution(ValuePointerType{Scalar: testF32, Space: SpaceStorage})},
		{5, ValueResolution(PointerType{Base: 2, Space: SpaceStorage})},
		{6, ValueResolution(ValuePointerType{Size: &rows, Scalar: testF32, Space: SpaceStorage})},
		{7, HandleResolution(3)},
		{8, ValueResolution(testF32)},
		{9, ValueResolution(VectorType{Size: Vec3, Scalar: testF32})},
		{12, ValueResolution(VectorType{Size: Vec3, Scalar: testF32})},
		{13, ValueResolution(VectorType{Size: Vec3, Scalar: testBool})},
		{14, ValueResolution(testF32)},
		{15, ValueResolution(VectorType{Size: Vec4, Scalar: testF32})},
		{16, ValueResolution(VectorType{Size: Vec3, Scalar: testI32})},
		{17, HandleResolution(0)},
		{18, ValueResolution(PointerType{Base: 1, Space: SpaceFunction})},
		{19, ValueResolution(VectorType{Size: Vec2, Scalar: testF32})},
		{20, HandleResolution(1)},
	}

	for _, tt := range tests {
		got, err := ResolveExpressionType(module, fn, tt.handle)
		if err != nil {
			t.Errorf("expression %d: %v", tt.handle, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("expression %d mismatch (-want +got):\n%s", tt.handle, diff)
		}
	}
}

func TestResolveExpressionType_Errors(t *testing.T) {
	module, fn := resolveTestModule(
		ExprFunctionArgument{Index: 7},     // 0 argument out of range
		ExprGlobalVariable{Variable: 3},    // 1 global out of range
		ExprFunctionArgument{Index: 1},     // 2 vec3 value
		ExprLoad{Pointer: 2},               // 3 load of a value
		ExprGlobalVariable{Variable: 0},    // 4
		ExprFunctionArgument{Index: 0},     // 5
		ExprAccess{Base: 4, Index: 5},      // 6 ptr<Item>
		ExprAccess{Base: 6, Index: 5},      // 7 dynamic struct member
		ExprLocalVariable{Variable: 4},     // 8 local out of range
	)

	for _, handle := range []ExpressionHandle{0, 1, 3, 7, 8, 42} {
		if _, err := ResolveExpressionType(module, fn, handle); err == nil {
			t.Errorf("expression %d: expected error", handle)
		}
	}
}

func TestResolveModuleTypes(t *testing.T) {
	module, _ := resolveTestModule(
		ExprFunctionArgument{Index: 0},
		Literal{Value: LiteralU32(1)},
		ExprBinary{Op: BinaryAdd, Left: 0, Right: 1},
	)

	if err := ResolveModuleTypes(module); err != nil {
		t.Fatalf("ResolveModuleTypes() error = %v", err)
	}
	fn := &module.Functions[0]
	if len(fn.ExpressionTypes) != 3 {
		t.Fatalf("ExpressionTypes has %d entries, want 3", len(fn.ExpressionTypes))
	}
	if diff := cmp.Diff(HandleResolution(5), fn.ExpressionTypes[2]); diff != "" {
		t.Errorf("binary type mismatch (-want +got):\n%s", diff)
	}

	// A complete table is left alone.
	fn.ExpressionTypes[2] = ValueResolution(testBool)
	if err := ResolveModuleTypes(module); err != nil {
		t.Fatalf("ResolveModuleTypes() error = %v", err)
	}
	if diff := cmp.Diff(ValueResolution(testBool), fn.ExpressionTypes[2]); diff != "" {
		t.Errorf("complete table was recomputed (-want +got):\n%s", diff)
	}
}
