// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/rawbuf/ir"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.BindingMap == nil {
		t.Error("DefaultOptions().BindingMap should not be nil")
	}
	if !opts.FakeMissingBindings {
		t.Error("DefaultOptions().FakeMissingBindings should be true")
	}
	if opts.EntryPoint != "" {
		t.Errorf("DefaultOptions().EntryPoint = %q, want empty", opts.EntryPoint)
	}
	if opts.Logger != nil {
		t.Error("DefaultOptions().Logger should be nil")
	}
}

func TestCompile_NilModule(t *testing.T) {
	_, _, err := Compile(nil, nil)
	if kind, ok := KindOf(err); !ok || kind != ErrInvalidModule {
		t.Errorf("Compile(nil) error = %v, want invalid module", err)
	}
}

func TestCompile_EmptyModule(t *testing.T) {
	code, info, err := Compile(&ir.Module{}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if code != "" {
		t.Errorf("Compile() code = %q, want empty", code)
	}
	if info == nil || info.StorageAccesses != 0 {
		t.Errorf("Compile() info = %+v, want zero accesses", info)
	}
}

// particleModule is a compute shader that scales the weight of one particle
// and copies the particle back in place:
//
//	struct Particle { weight: f32 @0, velocity: vec2<f32> @8 }
//	@group(0) @binding(0) var<storage, read_write> particles: array<Particle>;
//
//	@compute @workgroup_size(64)
//	fn main(@builtin(global_invocation_id) id: vec3<u32>) {
//	    let p = particles[id.x];
//	    particles[id.x].weight = particles[id.x].weight * 2.0;
//	    particles[id.x] = p;
//	}
func particleModule() *ir.Module {
	var idBinding ir.Binding = ir.BuiltinBinding{Builtin: ir.BuiltinGlobalInvocationID}
	return &ir.Module{
		Types: []ir.Type{
			{Inner: f32},                                      // 0
			{Inner: ir.VectorType{Size: ir.Vec2, Scalar: f32}}, // 1
			{Inner: ir.VectorType{Size: ir.Vec3, Scalar: u32}}, // 2
			{Name: "Particle", Inner: ir.StructType{ // 3
				Members: []ir.StructMember{
					{Name: "weight", Type: 0, Offset: 0},
					{Name: "velocity", Type: 1, Offset: 8},
				},
				Span: 16,
			}},
			{Inner: ir.ArrayType{Base: 3, Stride: 16}}, // 4
		},
		GlobalVariables: []ir.GlobalVariable{
			{Name: "particles", Space: ir.SpaceStorage, Type: 4, Binding: &ir.ResourceBinding{Group: 0, Binding: 0}},
		},
		Functions: []ir.Function{{
			Name:      "main",
			Arguments: []ir.FunctionArgument{{Name: "id", Type: 2, Binding: &idBinding}},
			Expressions: []ir.Expression{
				{Kind: ir.ExprFunctionArgument{Index: 0}},                      // 0
				{Kind: ir.ExprAccessIndex{Base: 0, Index: 0}},                  // 1 id.x
				{Kind: ir.ExprGlobalVariable{Variable: 0}},                     // 2
				{Kind: ir.ExprAccess{Base: 2, Index: 1}},                       // 3 &particles[id.x]
				{Kind: ir.ExprLoad{Pointer: 3}},                                // 4
				{Kind: ir.ExprAccessIndex{Base: 3, Index: 0}},                  // 5 &particles[id.x].weight
				{Kind: ir.Literal{Value: ir.LiteralF32(2)}},                    // 6
				{Kind: ir.ExprLoad{Pointer: 5}},                                // 7
				{Kind: ir.ExprBinary{Op: ir.BinaryMultiply, Left: 7, Right: 6}}, // 8
			},
			Body: []ir.Statement{
				{Kind: ir.StmtEmit{Range: ir.Range{Start: 1, End: 2}}},
				{Kind: ir.StmtEmit{Range: ir.Range{Start: 4, End: 5}}},
				{Kind: ir.StmtEmit{Range: ir.Range{Start: 7, End: 9}}},
				{Kind: ir.StmtStore{Pointer: 5, Value: 8}},
				{Kind: ir.StmtStore{Pointer: 3, Value: 4}},
				{Kind: ir.StmtReturn{}},
			},
		}},
		EntryPoints: []ir.EntryPoint{
			{Name: "main", Stage: ir.StageCompute, Function: 0, Workgroup: [3]uint32{64, 0, 0}},
		},
	}
}

func TestCompile_ComputeStorageBuffer(t *testing.T) {
	code, info, err := Compile(particleModule(), nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	want := `struct Particle {
    float weight;
    float2 velocity;
};

RWByteAddressBuffer particles : register(u0, space0);

[numthreads(64, 1, 1)]
void main(uint3 id : SV_DispatchThreadID) {
    uint _e1 = id.x;
    Particle _e4 = {asfloat(particles.Load(_e1*16+0)), asfloat(particles.Load2(_e1*16+8))};
    float _e7 = asfloat(particles.Load(0+_e1*16));
    float _e8 = (_e7 * 2.0);
    particles.Store(0+_e1*16, asuint(_e8));
    {
        Particle _value1 = _e4;
        particles.Store(_e1*16+0, asuint(_value1.weight));
        particles.Store2(_e1*16+8, asuint(_value1.velocity));
    }
    return;
}

`
	if diff := cmp.Diff(want, code); diff != "" {
		t.Errorf("Compile() code mismatch (-want +got):\n%s", diff)
	}

	wantInfo := &TranslationInfo{
		EntryPointNames:  map[string]string{"main": "main"},
		RegisterBindings: map[string]string{"particles": "register(u0, space0)"},
		StorageAccesses:  6,
	}
	if diff := cmp.Diff(wantInfo, info); diff != "" {
		t.Errorf("Compile() info mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_BindingMap(t *testing.T) {
	opts := DefaultOptions()
	opts.BindingMap[ResourceBinding{Group: 0, Binding: 0}] = BindTarget{Space: 1, Register: 3}

	code, info, err := Compile(particleModule(), opts)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !strings.Contains(code, "RWByteAddressBuffer particles : register(u3, space1);") {
		t.Errorf("binding map not applied:\n%s", code)
	}
	if got := info.RegisterBindings["particles"]; got != "register(u3, space1)" {
		t.Errorf("RegisterBindings[particles] = %q", got)
	}
}

func TestCompile_MissingBinding(t *testing.T) {
	opts := DefaultOptions()
	opts.FakeMissingBindings = false

	_, _, err := Compile(particleModule(), opts)
	if kind, ok := KindOf(err); !ok || kind != ErrMissingBinding {
		t.Errorf("Compile() error = %v, want missing binding", err)
	}
}

func TestCompile_EntryPointSelection(t *testing.T) {
	opts := DefaultOptions()
	opts.EntryPoint = "main"
	if _, _, err := Compile(particleModule(), opts); err != nil {
		t.Errorf("Compile(entry main) error = %v", err)
	}

	opts.EntryPoint = "other"
	_, _, err := Compile(particleModule(), opts)
	if kind, ok := KindOf(err); !ok || kind != ErrEntryPointNotFound {
		t.Errorf("Compile(entry other) error = %v, want entry point not found", err)
	}
}

func TestCompile_UnsupportedEntryPoints(t *testing.T) {
	tests := []struct {
		name   string
		modify func(m *ir.Module)
	}{
		{"vertex stage", func(m *ir.Module) {
			m.EntryPoints[0].Stage = ir.StageVertex
		}},
		{"argument without builtin", func(m *ir.Module) {
			m.Functions[0].Arguments[0].Binding = nil
		}},
		{"result", func(m *ir.Module) {
			m.Functions[0].Result = &ir.FunctionResult{Type: 0}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module := particleModule()
			tt.modify(module)
			_, _, err := Compile(module, nil)
			if kind, ok := KindOf(err); !ok || kind != ErrUnsupportedFeature {
				t.Errorf("Compile() error = %v, want unsupported feature", err)
			}
		})
	}
}

func TestCompile_Logger(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, _, err := Compile(particleModule(), opts); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	logged := buf.String()
	if got := strings.Count(logged, "byte address buffer access"); got != 4 {
		t.Errorf("logged %d storage accesses, want 4:\n%s", got, logged)
	}
	for _, want := range []string{"op=load", "op=store", "buffer=particles", "type=Particle", "type=float"} {
		if !strings.Contains(logged, want) {
			t.Errorf("log missing %q:\n%s", want, logged)
		}
	}
}

func TestCompile_DoesNotModifyModule(t *testing.T) {
	module := particleModule()
	if _, _, err := Compile(module, nil); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if module.Functions[0].ExpressionTypes != nil {
		t.Error("Compile() filled ExpressionTypes of the caller's module")
	}
}
