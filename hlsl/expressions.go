// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/rawbuf/ir"
)

// swizzleChars are the HLSL vector component names.
var swizzleChars = [4]byte{'x', 'y', 'z', 'w'}

// writeExpression writes an IR expression to HLSL.
// Emitted expressions are referenced by the name they were baked into.
func (w *Writer) writeExpression(handle ir.ExpressionHandle) error {
	if w.currentFunction == nil {
		return internalErrorf("expression %d written outside a function", handle)
	}
	if int(handle) >= len(w.currentFunction.Expressions) {
		return NewError(ErrInvalidModule, fmt.Sprintf("invalid expression handle: %d", handle))
	}

	if name, ok := w.namedExpressions[handle]; ok {
		w.out.WriteString(name)
		return nil
	}

	return w.writeExpressionKind(w.currentFunction.Expressions[handle].Kind)
}

// writeExpressionKind writes an expression kind to HLSL.
//
//nolint:gocyclo,cyclop // Expression dispatch requires handling every expression type
func (w *Writer) writeExpressionKind(kind ir.ExpressionKind) error {
	switch e := kind.(type) {
	case ir.Literal:
		return w.writeLiteralValue(e.Value)
	case ir.ExprConstant:
		w.out.WriteString(w.names[nameKey{kind: nameKeyConstant, handle1: uint32(e.Constant)}])
		return nil
	case ir.ExprZeroValue:
		fmt.Fprintf(&w.out, "(%s)0", w.getTypeName(e.Type))
		return nil
	case ir.ExprCompose:
		return w.writeComposeExpression(e)
	case ir.ExprAccess:
		return w.writeAccessExpression(e)
	case ir.ExprAccessIndex:
		return w.writeAccessIndexExpression(e)
	case ir.ExprSplat:
		return w.writeSplatExpression(e)
	case ir.ExprSwizzle:
		return w.writeSwizzleExpression(e)
	case ir.ExprFunctionArgument:
		key := nameKey{kind: nameKeyFunctionArgument, handle1: uint32(w.currentFuncHandle), handle2: e.Index}
		w.out.WriteString(w.names[key])
		return nil
	case ir.ExprGlobalVariable:
		w.out.WriteString(w.globalName(e.Variable))
		return nil
	case ir.ExprLocalVariable:
		name, ok := w.localNames[e.Variable]
		if !ok {
			return NewError(ErrInvalidModule, fmt.Sprintf("invalid local variable: %d", e.Variable))
		}
		w.out.WriteString(name)
		return nil
	case ir.ExprLoad:
		return w.writeLoadExpression(e)
	case ir.ExprUnary:
		return w.writeUnaryExpression(e)
	case ir.ExprBinary:
		return w.writeBinaryExpression(e)
	case ir.ExprSelect:
		return w.writeSelectExpression(e)
	case ir.ExprAs:
		return w.writeAsExpression(e)
	default:
		return NewError(ErrUnsupportedFeature, fmt.Sprintf("unsupported expression type: %T", kind))
	}
}

// writeLiteralValue writes a literal value to HLSL.
func (w *Writer) writeLiteralValue(v ir.LiteralValue) error {
	switch val := v.(type) {
	case ir.LiteralBool:
		if bool(val) {
			w.out.WriteString("true")
		} else {
			w.out.WriteString("false")
		}
	case ir.LiteralI32:
		fmt.Fprintf(&w.out, "%d", int32(val))
	case ir.LiteralU32:
		fmt.Fprintf(&w.out, "%du", uint32(val))
	case ir.LiteralF32:
		w.out.WriteString(formatFloat32(float32(val)))
	default:
		return NewError(ErrUnsupportedFeature, fmt.Sprintf("unsupported literal type: %T", v))
	}
	return nil
}

// writeComposeExpression writes a composite construction (vector, matrix, array, struct).
func (w *Writer) writeComposeExpression(e ir.ExprCompose) error {
	// Arrays and structs use initializer lists, everything else a constructor
	open, closing := "{", "}"
	switch w.typeInner(e.Type).(type) {
	case ir.ArrayType, ir.StructType:
	default:
		open, closing = w.getTypeName(e.Type)+"(", ")"
	}

	w.out.WriteString(open)
	for i, comp := range e.Components {
		if i > 0 {
			w.out.WriteString(", ")
		}
		if err := w.writeExpression(comp); err != nil {
			return fmt.Errorf("compose component %d: %w", i, err)
		}
	}
	w.out.WriteString(closing)
	return nil
}

// writeSplatExpression writes a scalar broadcast to vector.
func (w *Writer) writeSplatExpression(e ir.ExprSplat) error {
	if e.Size < ir.Vec2 || e.Size > ir.Vec4 {
		return NewError(ErrInvalidModule, fmt.Sprintf("invalid splat size: %d", e.Size))
	}
	w.out.WriteByte('(')
	if err := w.writeExpression(e.Value); err != nil {
		return fmt.Errorf("splat value: %w", err)
	}
	w.out.WriteString(").xxxx"[:e.Size+2])
	return nil
}

// writeSwizzleExpression writes a vector swizzle operation.
func (w *Writer) writeSwizzleExpression(e ir.ExprSwizzle) error {
	if err := w.writeExpression(e.Vector); err != nil {
		return fmt.Errorf("swizzle vector: %w", err)
	}
	w.out.WriteByte('.')
	for i := ir.VectorSize(0); i < e.Size; i++ {
		comp := e.Pattern[i]
		if comp > ir.SwizzleW {
			return NewError(ErrInvalidModule, fmt.Sprintf("invalid swizzle component: %d", comp))
		}
		w.out.WriteByte(swizzleChars[comp])
	}
	return nil
}

// writeAccessExpression writes array/vector/matrix access with computed index.
func (w *Writer) writeAccessExpression(e ir.ExprAccess) error {
	if err := w.writeExpression(e.Base); err != nil {
		return fmt.Errorf("access base: %w", err)
	}
	w.out.WriteByte('[')
	if err := w.writeExpression(e.Index); err != nil {
		return fmt.Errorf("access index: %w", err)
	}
	w.out.WriteByte(']')
	return nil
}

// writeAccessIndexExpression writes access with compile-time constant index.
// The base may be a value or a reference; member syntax depends on what it
// holds or points to.
func (w *Writer) writeAccessIndexExpression(e ir.ExprAccessIndex) error {
	if err := w.writeExpression(e.Base); err != nil {
		return fmt.Errorf("access index base: %w", err)
	}

	switch inner := w.pointeeInner(e.Base).(type) {
	case ir.StructType:
		if int(e.Index) >= len(inner.Members) {
			return NewError(ErrInvalidModule, fmt.Sprintf("member %d of a %d-member struct", e.Index, len(inner.Members)))
		}
		structType := w.structHandle(e.Base)
		member := w.names[nameKey{kind: nameKeyStructMember, handle1: uint32(structType), handle2: e.Index}]
		fmt.Fprintf(&w.out, ".%s", member)
	case ir.VectorType:
		if e.Index < 4 {
			fmt.Fprintf(&w.out, ".%c", swizzleChars[e.Index])
		} else {
			fmt.Fprintf(&w.out, "[%d]", e.Index)
		}
	default:
		fmt.Fprintf(&w.out, "[%d]", e.Index)
	}
	return nil
}

// structHandle returns the struct type handle a value or reference expression has.
func (w *Writer) structHandle(handle ir.ExpressionHandle) ir.TypeHandle {
	res, err := w.expressionResolution(handle)
	if err != nil {
		return 0
	}
	if p, ok := ir.ResolutionInner(w.module, res).(ir.PointerType); ok {
		return p.Base
	}
	if res.Handle != nil {
		return *res.Handle
	}
	return 0
}

// writeLoadExpression writes a load through a pointer. Loads from local and
// private memory are implicit in HLSL; storage buffers are read word by word.
func (w *Writer) writeLoadExpression(e ir.ExprLoad) error {
	if w.isStoragePointer(e.Pointer) {
		return w.writeStorageLoadExpression(e.Pointer)
	}
	return w.writeExpression(e.Pointer)
}

// writeUnaryExpression writes a unary operation.
func (w *Writer) writeUnaryExpression(e ir.ExprUnary) error {
	var op string
	switch e.Op {
	case ir.UnaryNegate:
		op = "-"
	case ir.UnaryLogicalNot:
		op = "!"
	case ir.UnaryBitwiseNot:
		op = "~"
	default:
		return NewError(ErrUnsupportedFeature, fmt.Sprintf("unsupported unary operator: %d", e.Op))
	}

	w.out.WriteString(op)
	w.out.WriteByte('(')
	if err := w.writeExpression(e.Expr); err != nil {
		return fmt.Errorf("unary operand: %w", err)
	}
	w.out.WriteByte(')')
	return nil
}

var binaryOperators = map[ir.BinaryOperator]string{
	ir.BinaryAdd:          "+",
	ir.BinarySubtract:     "-",
	ir.BinaryMultiply:     "*",
	ir.BinaryDivide:       "/",
	ir.BinaryModulo:       "%",
	ir.BinaryEqual:        "==",
	ir.BinaryNotEqual:     "!=",
	ir.BinaryLess:         "<",
	ir.BinaryLessEqual:    "<=",
	ir.BinaryGreater:      ">",
	ir.BinaryGreaterEqual: ">=",
	ir.BinaryAnd:          "&",
	ir.BinaryExclusiveOr:  "^",
	ir.BinaryInclusiveOr:  "|",
	ir.BinaryLogicalAnd:   "&&",
	ir.BinaryLogicalOr:    "||",
	ir.BinaryShiftLeft:    "<<",
	ir.BinaryShiftRight:   ">>",
}

// writeBinaryExpression writes a binary operation.
func (w *Writer) writeBinaryExpression(e ir.ExprBinary) error {
	if e.Op == ir.BinaryMultiply {
		// Matrices are declared transposed (floatCxR), so left * right
		// becomes mul(right, left).
		_, leftIsMatrix := w.getExpressionTypeInner(e.Left).(ir.MatrixType)
		_, rightIsMatrix := w.getExpressionTypeInner(e.Right).(ir.MatrixType)
		if leftIsMatrix || rightIsMatrix {
			w.out.WriteString("mul(")
			if err := w.writeExpression(e.Right); err != nil {
				return fmt.Errorf("binary right: %w", err)
			}
			w.out.WriteString(", ")
			if err := w.writeExpression(e.Left); err != nil {
				return fmt.Errorf("binary left: %w", err)
			}
			w.out.WriteByte(')')
			return nil
		}
	}

	op, ok := binaryOperators[e.Op]
	if !ok {
		return NewError(ErrUnsupportedFeature, fmt.Sprintf("unsupported binary operator: %d", e.Op))
	}

	w.out.WriteByte('(')
	if err := w.writeExpression(e.Left); err != nil {
		return fmt.Errorf("binary left: %w", err)
	}
	fmt.Fprintf(&w.out, " %s ", op)
	if err := w.writeExpression(e.Right); err != nil {
		return fmt.Errorf("binary right: %w", err)
	}
	w.out.WriteByte(')')
	return nil
}

// writeSelectExpression writes a ternary select operation.
func (w *Writer) writeSelectExpression(e ir.ExprSelect) error {
	w.out.WriteByte('(')
	if err := w.writeExpression(e.Condition); err != nil {
		return fmt.Errorf("select condition: %w", err)
	}
	w.out.WriteString(" ? ")
	if err := w.writeExpression(e.Accept); err != nil {
		return fmt.Errorf("select accept: %w", err)
	}
	w.out.WriteString(" : ")
	if err := w.writeExpression(e.Reject); err != nil {
		return fmt.Errorf("select reject: %w", err)
	}
	w.out.WriteByte(')')
	return nil
}

// writeAsExpression writes a conversion or a bit reinterpretation.
//
//	asfloat(x)   bitcast
//	float3(x)    conversion
func (w *Writer) writeAsExpression(e ir.ExprAs) error {
	if e.Convert == nil {
		w.out.WriteString(ScalarCast(e.Kind))
	} else {
		var target ir.TypeInner
		switch src := w.getExpressionTypeInner(e.Expr).(type) {
		case ir.ScalarType:
			target = ir.ScalarType{Kind: e.Kind, Width: *e.Convert}
		case ir.VectorType:
			target = ir.VectorType{Size: src.Size, Scalar: ir.ScalarType{Kind: e.Kind, Width: *e.Convert}}
		default:
			return NewError(ErrUnsupportedFeature, fmt.Sprintf("conversion of %T", src))
		}
		w.out.WriteString(w.innerTypeName(target))
	}

	w.out.WriteByte('(')
	if err := w.writeExpression(e.Expr); err != nil {
		return fmt.Errorf("as operand: %w", err)
	}
	w.out.WriteByte(')')
	return nil
}

// expressionResolution returns the resolved type of an expression of the
// current function.
func (w *Writer) expressionResolution(handle ir.ExpressionHandle) (ir.TypeResolution, error) {
	if int(handle) >= len(w.expressionTypes) {
		return ir.TypeResolution{}, internalErrorf("no type for expression %d", handle)
	}
	return w.expressionTypes[handle], nil
}

// getExpressionTypeInner returns just the TypeInner for an expression.
func (w *Writer) getExpressionTypeInner(handle ir.ExpressionHandle) ir.TypeInner {
	if int(handle) >= len(w.expressionTypes) {
		return nil
	}
	return ir.ResolutionInner(w.module, w.expressionTypes[handle])
}
