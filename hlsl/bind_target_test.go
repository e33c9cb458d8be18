// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"testing"

	"github.com/gogpu/rawbuf/ir"
)

func TestBindTarget_Builders(t *testing.T) {
	bt := BindTarget{}.WithSpace(5).WithRegister(10)

	if bt.Space != 5 {
		t.Errorf("Space = %d, want 5", bt.Space)
	}
	if bt.Register != 10 {
		t.Errorf("Register = %d, want 10", bt.Register)
	}
}

func TestBindTarget_Clause(t *testing.T) {
	tests := []struct {
		rt   RegisterType
		want string
	}{
		{RegisterTypeU, "register(u3, space1)"},
		{RegisterTypeB, "register(b3, space1)"},
		{RegisterTypeT, "register(t3, space1)"},
	}
	bt := BindTarget{Space: 1, Register: 3}
	for _, tt := range tests {
		if got := bt.Clause(tt.rt); got != tt.want {
			t.Errorf("Clause(%s) = %q, want %q", tt.rt, got, tt.want)
		}
	}
}

func TestRegisterTypeForSpace(t *testing.T) {
	if got := registerTypeForSpace(ir.SpaceStorage); got != RegisterTypeU {
		t.Errorf("storage -> %s, want u", got)
	}
	if got := registerTypeForSpace(ir.SpaceUniform); got != RegisterTypeB {
		t.Errorf("uniform -> %s, want b", got)
	}
}

func TestWriter_GetBindTarget(t *testing.T) {
	mapped := ResourceBinding{Group: 0, Binding: 2}

	tests := []struct {
		name     string
		fake     bool
		binding  *ir.ResourceBinding
		want     BindTarget
		wantKind ErrorKind
		wantErr  bool
	}{
		{
			name:    "mapped",
			binding: &ir.ResourceBinding{Group: 0, Binding: 2},
			want:    BindTarget{Space: 4, Register: 7},
		},
		{
			name:    "faked",
			fake:    true,
			binding: &ir.ResourceBinding{Group: 1, Binding: 3},
			want:    BindTarget{Space: 1, Register: 3},
		},
		{
			name:     "missing",
			binding:  &ir.ResourceBinding{Group: 1, Binding: 3},
			wantErr:  true,
			wantKind: ErrMissingBinding,
		},
		{
			name:     "no binding",
			fake:     true,
			wantErr:  true,
			wantKind: ErrMissingBinding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.FakeMissingBindings = tt.fake
			opts.BindingMap[mapped] = BindTarget{Space: 4, Register: 7}
			w := newWriter(&ir.Module{}, opts)

			got, err := w.getBindTarget(tt.binding)
			if tt.wantErr {
				kind, ok := KindOf(err)
				if !ok || kind != tt.wantKind {
					t.Fatalf("err = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
