// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/rawbuf/ir"
)

// BindTarget specifies the HLSL register binding for a resource.
// HLSL uses register(x#, space#) syntax for resource binding.
type BindTarget struct {
	// Space is the register space (0-based).
	Space uint8

	// Register is the register index within the space.
	Register uint32
}

// ResourceBinding identifies a resource in the source shader.
type ResourceBinding struct {
	// Group corresponds to WGSL @group or SPIR-V DescriptorSet.
	Group uint32

	// Binding corresponds to WGSL @binding or SPIR-V Binding.
	Binding uint32
}

// RegisterType represents the HLSL register type.
type RegisterType uint8

const (
	// RegisterTypeB is for constant buffers (cbuffer).
	RegisterTypeB RegisterType = iota

	// RegisterTypeT is for shader resource views.
	RegisterTypeT

	// RegisterTypeU is for unordered access views (UAV).
	RegisterTypeU
)

// String returns the single-character register prefix.
func (rt RegisterType) String() string {
	switch rt {
	case RegisterTypeT:
		return "t"
	case RegisterTypeU:
		return "u"
	default:
		return "b"
	}
}

// Clause returns the register(xN, spaceM) clause for the target.
func (bt BindTarget) Clause(rt RegisterType) string {
	return fmt.Sprintf("register(%s%d, space%d)", rt, bt.Register, bt.Space)
}

// WithSpace returns a copy of the BindTarget with the specified space.
func (bt BindTarget) WithSpace(space uint8) BindTarget {
	bt.Space = space
	return bt
}

// WithRegister returns a copy of the BindTarget with the specified register.
func (bt BindTarget) WithRegister(register uint32) BindTarget {
	bt.Register = register
	return bt
}

// registerTypeForSpace returns the register class a global in space uses.
func registerTypeForSpace(space ir.AddressSpace) RegisterType {
	switch space {
	case ir.SpaceUniform:
		return RegisterTypeB
	case ir.SpaceStorage:
		return RegisterTypeU
	default:
		return RegisterTypeT
	}
}

// getBindTarget resolves the register binding of a resource.
// Bindings missing from Options.BindingMap are derived from the group and
// binding numbers when FakeMissingBindings is set.
func (w *Writer) getBindTarget(binding *ir.ResourceBinding) (BindTarget, error) {
	if binding == nil {
		return BindTarget{}, NewError(ErrMissingBinding, "resource has no @group/@binding")
	}
	key := ResourceBinding{Group: binding.Group, Binding: binding.Binding}
	if target, ok := w.options.BindingMap[key]; ok {
		return target, nil
	}
	if !w.options.FakeMissingBindings {
		return BindTarget{}, NewError(ErrMissingBinding,
			fmt.Sprintf("no bind target for group %d binding %d", binding.Group, binding.Binding))
	}
	if binding.Group > 255 {
		return BindTarget{}, NewError(ErrMissingBinding,
			fmt.Sprintf("group %d does not fit a register space", binding.Group))
	}
	return BindTarget{Space: uint8(binding.Group), Register: binding.Binding}, nil
}
