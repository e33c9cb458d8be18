// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/rawbuf/ir"
)

// writeTypes writes all struct type definitions.
// Non-struct types are written inline where needed.
func (w *Writer) writeTypes() error {
	for handle := range w.module.Types {
		st, ok := w.module.Types[handle].Inner.(ir.StructType)
		if !ok {
			continue
		}
		if err := w.writeStructDefinition(ir.TypeHandle(handle), st); err != nil {
			return err
		}
	}
	return nil
}

// writeStructDefinition writes a struct type definition.
func (w *Writer) writeStructDefinition(handle ir.TypeHandle, st ir.StructType) error {
	w.writeLinef("struct %s {", w.typeNames[handle])
	w.pushIndent()

	for memberIdx, member := range st.Members {
		memberName := w.names[nameKey{kind: nameKeyStructMember, handle1: uint32(handle), handle2: uint32(memberIdx)}]
		if isRuntimeArray(w.module, member.Type) {
			// Only reachable through the byte address buffer.
			continue
		}
		memberType, arraySuffix := w.getTypeNameWithArraySuffix(member.Type)
		w.writeLinef("%s %s%s;", memberType, memberName, arraySuffix)
	}

	w.popIndent()
	w.writeLine("};")
	w.writeLine("")
	return nil
}

// getTypeName returns the HLSL type name for a type handle.
func (w *Writer) getTypeName(handle ir.TypeHandle) string {
	typeName, arraySuffix := w.getTypeNameWithArraySuffix(handle)
	return typeName + arraySuffix
}

// getTypeNameWithArraySuffix returns the base type name and array suffix separately.
// HLSL arrays are written as `type name[size]`, not `type[size] name`.
func (w *Writer) getTypeNameWithArraySuffix(handle ir.TypeHandle) (typeName, arraySuffix string) {
	if int(handle) >= len(w.module.Types) {
		return fmt.Sprintf("unknown_type_%d", handle), ""
	}
	if name, ok := w.typeNames[handle]; ok {
		return name, ""
	}
	return w.innerTypeNameWithArraySuffix(w.module.Types[handle].Inner)
}

// innerTypeName returns the HLSL type name for a type that may have no handle.
func (w *Writer) innerTypeName(inner ir.TypeInner) string {
	typeName, arraySuffix := w.innerTypeNameWithArraySuffix(inner)
	return typeName + arraySuffix
}

// innerTypeNameWithArraySuffix converts an IR type to HLSL type name,
// returning the base type and array suffix separately.
func (w *Writer) innerTypeNameWithArraySuffix(inner ir.TypeInner) (typeName, arraySuffix string) {
	switch t := inner.(type) {
	case ir.ScalarType:
		return ScalarToHLSL(t), ""
	case ir.VectorType:
		return VectorToHLSL(t), ""
	case ir.MatrixType:
		return MatrixToHLSL(t), ""
	case ir.ArrayType:
		baseName, baseSuffix := w.getTypeNameWithArraySuffix(t.Base)
		if t.Size.Constant != nil {
			return baseName, fmt.Sprintf("[%d]", *t.Size.Constant) + baseSuffix
		}
		return baseName, "[]" + baseSuffix
	case ir.AtomicType:
		return ScalarToHLSL(t.Scalar), ""
	case ir.PointerType:
		// HLSL has no pointers; a reference is spelled as its pointee
		return w.getTypeNameWithArraySuffix(t.Base)
	case ir.ValuePointerType:
		return w.innerTypeNameWithArraySuffix(ir.PointeeInner(w.module, t))
	default:
		return fmt.Sprintf("unknown_type_%T", inner), ""
	}
}

// writeConstants writes constant definitions.
func (w *Writer) writeConstants() error {
	if len(w.module.Constants) == 0 {
		return nil
	}

	for handle := range w.module.Constants {
		constant := &w.module.Constants[handle]
		name := w.names[nameKey{kind: nameKeyConstant, handle1: uint32(handle)}]
		typeName, arraySuffix := w.getTypeNameWithArraySuffix(constant.Type)
		w.writeLinef("static const %s %s%s = %s;", typeName, name, arraySuffix, w.writeConstantValue(constant))
	}
	w.writeLine("")
	return nil
}

// writeConstantValue returns the HLSL representation of a constant value.
func (w *Writer) writeConstantValue(constant *ir.Constant) string {
	switch v := constant.Value.(type) {
	case ir.ScalarValue:
		return w.writeScalarValue(v, constant.Type)
	case ir.CompositeValue:
		return w.writeCompositeValue(v, constant.Type)
	default:
		return "0"
	}
}

// writeScalarValue returns the HLSL representation of a scalar value.
func (w *Writer) writeScalarValue(v ir.ScalarValue, typeHandle ir.TypeHandle) string {
	switch v.Kind {
	case ir.ScalarBool:
		if v.Bits != 0 {
			return "true"
		}
		return "false"
	case ir.ScalarSint:
		return fmt.Sprintf("%d", int32(v.Bits))
	case ir.ScalarUint:
		return fmt.Sprintf("%du", uint32(v.Bits))
	case ir.ScalarFloat:
		if scalar, ok := w.typeInner(typeHandle).(ir.ScalarType); ok && scalar.Width == 8 {
			return formatFloat64(math.Float64frombits(v.Bits))
		}
		return formatFloat32(math.Float32frombits(uint32(v.Bits)))
	default:
		return "0"
	}
}

// writeCompositeValue returns the HLSL representation of a composite value.
func (w *Writer) writeCompositeValue(v ir.CompositeValue, typeHandle ir.TypeHandle) string {
	components := make([]string, 0, len(v.Components))
	for _, compHandle := range v.Components {
		if int(compHandle) < len(w.module.Constants) {
			components = append(components, w.writeConstantValue(&w.module.Constants[compHandle]))
		} else {
			components = append(components, "0")
		}
	}
	// Arrays and structs use initializer lists
	switch w.typeInner(typeHandle).(type) {
	case ir.ArrayType, ir.StructType:
		return fmt.Sprintf("{%s}", strings.Join(components, ", "))
	}
	return fmt.Sprintf("%s(%s)", w.getTypeName(typeHandle), strings.Join(components, ", "))
}

// writeGlobalVariables writes global resource declarations.
func (w *Writer) writeGlobalVariables() error {
	for handle := range w.module.GlobalVariables {
		global := &w.module.GlobalVariables[handle]
		name := w.names[nameKey{kind: nameKeyGlobalVariable, handle1: uint32(handle)}]
		if err := w.writeGlobalVariable(name, global); err != nil {
			return fmt.Errorf("global %q: %w", name, err)
		}
	}
	if len(w.module.GlobalVariables) > 0 {
		w.writeLine("")
	}
	return nil
}

// writeGlobalVariable writes a single global variable declaration.
func (w *Writer) writeGlobalVariable(name string, global *ir.GlobalVariable) error {
	typeName, arraySuffix := w.getTypeNameWithArraySuffix(global.Type)

	switch global.Space {
	case ir.SpaceStorage:
		return w.writeStorageBufferDeclaration(name, global)

	case ir.SpaceUniform:
		binding, err := w.getBindTarget(global.Binding)
		if err != nil {
			return err
		}
		clause := binding.Clause(RegisterTypeB)
		w.writeLinef("cbuffer %s_cbuffer : %s {", name, clause)
		w.pushIndent()
		w.writeLinef("%s %s%s;", typeName, name, arraySuffix)
		w.popIndent()
		w.writeLine("};")
		w.registerBindings[name] = clause

	case ir.SpaceWorkGroup:
		w.writeLinef("groupshared %s %s%s;", typeName, name, arraySuffix)

	case ir.SpacePrivate:
		if global.Init != nil {
			w.writeLinef("static %s %s%s = %s;", typeName, name, arraySuffix,
				w.writeConstantValue(&w.module.Constants[*global.Init]))
		} else {
			w.writeLinef("static %s %s%s;", typeName, name, arraySuffix)
		}

	default:
		return NewError(ErrUnsupportedFeature, fmt.Sprintf("global in address space %d", global.Space))
	}
	return nil
}

// formatFloat32 formats a float32 for HLSL output.
func formatFloat32(f float32) string {
	return formatFloat(float64(f), 32)
}

// formatFloat64 formats a float64 for HLSL output.
func formatFloat64(f float64) string {
	return formatFloat(f, 64)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "1.#INF"
	case math.IsInf(f, -1):
		return "-1.#INF"
	case math.IsNaN(f):
		return "0.0/0.0"
	}
	var s string
	if bits == 32 {
		s = fmt.Sprintf("%g", float32(f))
	} else {
		s = fmt.Sprintf("%g", f)
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// resolutionTypeName returns the HLSL type name of a resolved type,
// preferring the declared name of a type in the arena.
func (w *Writer) resolutionTypeName(res ir.TypeResolution) string {
	if res.Handle != nil {
		return w.getTypeName(*res.Handle)
	}
	return w.innerTypeName(res.Value)
}

// typeInner returns the inner type of handle, or nil when out of range.
func (w *Writer) typeInner(handle ir.TypeHandle) ir.TypeInner {
	if int(handle) >= len(w.module.Types) {
		return nil
	}
	return w.module.Types[handle].Inner
}

// isRuntimeArray checks if the type at handle is a runtime-sized array.
func isRuntimeArray(module *ir.Module, handle ir.TypeHandle) bool {
	if int(handle) >= len(module.Types) {
		return false
	}
	arr, ok := module.Types[handle].Inner.(ir.ArrayType)
	return ok && arr.Size.Constant == nil
}
