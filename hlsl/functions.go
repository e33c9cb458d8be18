// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/rawbuf/ir"
)

const hlslVoidType = "void"

// writeFunctions writes every function that is not an entry point.
func (w *Writer) writeFunctions() error {
	for handle := range w.module.Functions {
		fh := ir.FunctionHandle(handle)
		if w.isEntryPointFunction(fh) {
			continue
		}
		if err := w.writeFunction(fh); err != nil {
			return fmt.Errorf("function %q: %w", w.module.Functions[handle].Name, err)
		}
	}
	return nil
}

// writeFunction writes a regular function.
func (w *Writer) writeFunction(handle ir.FunctionHandle) error {
	if err := w.beginFunction(handle); err != nil {
		return err
	}
	defer w.endFunction()
	fn := w.currentFunction

	returnType := hlslVoidType
	if fn.Result != nil {
		returnType = w.getTypeName(fn.Result.Type)
	}

	args := make([]string, len(fn.Arguments))
	for i, arg := range fn.Arguments {
		name := w.names[nameKey{kind: nameKeyFunctionArgument, handle1: uint32(handle), handle2: uint32(i)}]
		typeName, arraySuffix := w.getTypeNameWithArraySuffix(arg.Type)
		args[i] = fmt.Sprintf("%s %s%s", typeName, name, arraySuffix)
	}

	name := w.names[nameKey{kind: nameKeyFunction, handle1: uint32(handle)}]
	w.writeLinef("%s %s(%s) {", returnType, name, strings.Join(args, ", "))
	return w.writeFunctionTail(fn)
}

// writeEntryPoint writes a compute entry point.
//
//	[numthreads(64, 1, 1)]
//	void main(uint3 id : SV_DispatchThreadID) {
func (w *Writer) writeEntryPoint(epIdx int) error {
	ep := &w.module.EntryPoints[epIdx]
	if ep.Stage != ir.StageCompute {
		return NewError(ErrUnsupportedFeature,
			fmt.Sprintf("%s entry points are not supported", ShaderStageToHLSL(ep.Stage)))
	}
	if err := w.beginFunction(ep.Function); err != nil {
		return err
	}
	defer w.endFunction()
	fn := w.currentFunction

	if fn.Result != nil {
		return NewError(ErrUnsupportedFeature, "compute entry point with a result")
	}

	args := make([]string, len(fn.Arguments))
	for i, arg := range fn.Arguments {
		var builtin ir.BuiltinBinding
		ok := false
		if arg.Binding != nil {
			builtin, ok = (*arg.Binding).(ir.BuiltinBinding)
		}
		if !ok {
			return NewError(ErrUnsupportedFeature,
				fmt.Sprintf("entry point argument %d has no builtin binding", i))
		}
		semantic, err := BuiltInToSemantic(builtin.Builtin)
		if err != nil {
			return err
		}
		name := w.names[nameKey{kind: nameKeyFunctionArgument, handle1: uint32(ep.Function), handle2: uint32(i)}]
		args[i] = fmt.Sprintf("%s %s : %s", w.getTypeName(arg.Type), name, semantic)
	}

	w.writeComputeAttributes(ep)
	name := w.names[nameKey{kind: nameKeyEntryPoint, handle1: uint32(epIdx)}]
	w.writeLinef("%s %s(%s) {", hlslVoidType, name, strings.Join(args, ", "))
	return w.writeFunctionTail(fn)
}

// writeFunctionTail writes the body and closing brace of a function whose
// signature has been written.
func (w *Writer) writeFunctionTail(fn *ir.Function) error {
	w.pushIndent()
	if err := w.writeFunctionBody(fn); err != nil {
		w.popIndent()
		return err
	}
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")
	return nil
}

// writeComputeAttributes writes [numthreads(x,y,z)] attribute for compute shaders.
func (w *Writer) writeComputeAttributes(ep *ir.EntryPoint) {
	x, y, z := ep.Workgroup[0], ep.Workgroup[1], ep.Workgroup[2]
	if x == 0 {
		x = 1
	}
	if y == 0 {
		y = 1
	}
	if z == 0 {
		z = 1
	}
	w.writeLinef("[numthreads(%d, %d, %d)]", x, y, z)
}

// isEntryPointFunction checks if a function is an entry point.
func (w *Writer) isEntryPointFunction(handle ir.FunctionHandle) bool {
	for _, ep := range w.module.EntryPoints {
		if ep.Function == handle {
			return true
		}
	}
	return false
}
