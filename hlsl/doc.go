// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package hlsl generates HLSL compute shaders from the rawbuf intermediate
// representation.
//
// Storage buffers are emitted as RWByteAddressBuffer. Reads and writes
// through storage pointers are lowered to sequences of Load/LoadN and
// Store/StoreN calls on 32-bit words at explicit byte offsets, using the
// member offsets and array strides recorded in the IR types.
//
// # Usage
//
//	options := hlsl.DefaultOptions()
//	options.BindingMap[hlsl.ResourceBinding{Group: 0, Binding: 1}] = hlsl.BindTarget{Register: 3}
//
//	code, info, err := hlsl.Compile(module, options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Generated accesses
//
// Loading a struct {a: f32 @0, b: vec2<f32> @16} from buf[i] with a
// 32 byte element stride:
//
//	{asfloat(buf.Load(i*32+0)), asfloat(buf.Load2(i*32+16))}
//
// Storing the same struct from v:
//
//	{
//	    S _value1 = v;
//	    buf.Store(i*32+0, asuint(_value1.a));
//	    buf.Store2(i*32+16, asuint(_value1.b));
//	}
//
// Matrices are stored row by row and transposed at every load and store.
//
// # Register Binding
//
// Storage buffers bind to u registers, uniform buffers to b registers:
//
//	RWByteAddressBuffer buf : register(u#, space#)
//	cbuffer params_cbuffer : register(b#, space#)
//
// The BindingMap in Options allows explicit control over register assignment.
package hlsl
