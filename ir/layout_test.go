package ir

import "testing"

func TestTypeSpan(t *testing.T) {
	four := uint32(4)
	rows := Vec3
	module := &Module{
		Types: []Type{
			{Inner: testF32},
			{Name: "S", Inner: StructType{Members: []StructMember{{Name: "a", Type: 0}}, Span: 32}},
		},
	}

	tests := []struct {
		name  string
		inner TypeInner
		want  uint32
	}{
		{"f32", testF32, 4},
		{"vec3", VectorType{Size: Vec3, Scalar: testF32}, 12},
		{"mat4x3", MatrixType{Columns: Vec4, Rows: Vec3, Scalar: testF32}, 48},
		{"array of 4", ArrayType{Base: 0, Size: ArraySize{Constant: &four}, Stride: 16}, 64},
		{"runtime array", ArrayType{Base: 0, Stride: 16}, 0},
		{"struct", module.Types[1].Inner, 32},
		{"atomic", AtomicType{Scalar: testU32}, 4},
		{"scalar value pointer", ValuePointerType{Scalar: testF32}, 4},
		{"vector value pointer", ValuePointerType{Size: &rows, Scalar: testF32}, 12},
		{"pointer", PointerType{Base: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypeSpan(module, tt.inner); got != tt.want {
				t.Errorf("TypeSpan() = %d, want %d", got, tt.want)
			}
		})
	}

	if got := TypeHandleSpan(module, 1); got != 32 {
		t.Errorf("TypeHandleSpan(1) = %d, want 32", got)
	}
	if got := TypeHandleSpan(module, 9); got != 0 {
		t.Errorf("TypeHandleSpan(9) = %d, want 0", got)
	}
}

func TestPointeeInner(t *testing.T) {
	size := Vec2
	module := &Module{Types: []Type{{Inner: testU32}}}

	tests := []struct {
		name  string
		inner TypeInner
		want  TypeInner
	}{
		{"pointer", PointerType{Base: 0, Space: SpaceStorage}, testU32},
		{"pointer out of range", PointerType{Base: 3}, nil},
		{"scalar value pointer", ValuePointerType{Scalar: testF32}, testF32},
		{"vector value pointer", ValuePointerType{Size: &size, Scalar: testF32}, VectorType{Size: Vec2, Scalar: testF32}},
		{"value", testI32, testI32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointeeInner(module, tt.inner); got != tt.want {
				t.Errorf("PointeeInner() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestResolutionInner(t *testing.T) {
	module := &Module{Types: []Type{{Inner: testF32}}}

	if got := ResolutionInner(module, HandleResolution(0)); got != TypeInner(testF32) {
		t.Errorf("handle resolution = %#v", got)
	}
	if got := ResolutionInner(module, HandleResolution(5)); got != nil {
		t.Errorf("out of range handle = %#v, want nil", got)
	}
	if got := ResolutionInner(module, ValueResolution(testBool)); got != TypeInner(testBool) {
		t.Errorf("value resolution = %#v", got)
	}
	if got := ResolutionInner(module, TypeResolution{}); got != nil {
		t.Errorf("empty resolution = %#v, want nil", got)
	}
}
