package ir

import "fmt"

// ResolveExpressionType resolves the type of an expression in a function.
// Returns a TypeResolution that either references a module type or contains an inline type.
//
// References to global and local variables resolve to pointers, and accesses
// through a pointer stay pointers (PointerType when the element has a handle,
// ValuePointerType for vector components and matrix columns). ExprLoad strips
// the pointer again.
//
//nolint:gocyclo,cyclop // Type resolution requires handling all expression kinds
func ResolveExpressionType(module *Module, fn *Function, handle ExpressionHandle) (TypeResolution, error) {
	if int(handle) >= len(fn.Expressions) {
		return TypeResolution{}, fmt.Errorf("expression handle %d out of range (max %d)", handle, len(fn.Expressions))
	}

	expr := fn.Expressions[handle]

	switch kind := expr.Kind.(type) {
	case Literal:
		return resolveLiteralType(kind)
	case ExprConstant:
		if int(kind.Constant) >= len(module.Constants) {
			return TypeResolution{}, fmt.Errorf("constant %d out of range", kind.Constant)
		}
		return HandleResolution(module.Constants[kind.Constant].Type), nil
	case ExprZeroValue:
		return HandleResolution(kind.Type), nil
	case ExprCompose:
		return HandleResolution(kind.Type), nil
	case ExprAccess:
		return resolveAccessType(module, fn, kind.Base, nil)
	case ExprAccessIndex:
		index := kind.Index
		return resolveAccessType(module, fn, kind.Base, &index)
	case ExprSplat:
		return resolveSplatType(module, fn, kind)
	case ExprSwizzle:
		return resolveSwizzleType(module, fn, kind)
	case ExprFunctionArgument:
		if int(kind.Index) >= len(fn.Arguments) {
			return TypeResolution{}, fmt.Errorf("function argument index %d out of range", kind.Index)
		}
		return HandleResolution(fn.Arguments[kind.Index].Type), nil
	case ExprGlobalVariable:
		if int(kind.Variable) >= len(module.GlobalVariables) {
			return TypeResolution{}, fmt.Errorf("global variable %d out of range", kind.Variable)
		}
		global := &module.GlobalVariables[kind.Variable]
		if global.Space == SpaceHandle {
			return HandleResolution(global.Type), nil
		}
		return ValueResolution(PointerType{Base: global.Type, Space: global.Space}), nil
	case ExprLocalVariable:
		if int(kind.Variable) >= len(fn.LocalVars) {
			return TypeResolution{}, fmt.Errorf("local variable %d out of range", kind.Variable)
		}
		return ValueResolution(PointerType{Base: fn.LocalVars[kind.Variable].Type, Space: SpaceFunction}), nil
	case ExprLoad:
		return resolveLoadType(module, fn, kind)
	case ExprUnary:
		operand, err := ResolveExpressionType(module, fn, kind.Expr)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("unary operand: %w", err)
		}
		return operand, nil
	case ExprBinary:
		return resolveBinaryType(module, fn, kind)
	case ExprSelect:
		accept, err := ResolveExpressionType(module, fn, kind.Accept)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("select accept: %w", err)
		}
		return accept, nil
	case ExprAs:
		return resolveAsType(module, fn, kind)
	default:
		return TypeResolution{}, fmt.Errorf("unsupported expression kind: %T", kind)
	}
}

// ResolveFunctionTypes fills fn.ExpressionTypes for every expression of fn.
func ResolveFunctionTypes(module *Module, fn *Function) error {
	types := make([]TypeResolution, len(fn.Expressions))
	for i := range fn.Expressions {
		res, err := ResolveExpressionType(module, fn, ExpressionHandle(i))
		if err != nil {
			return fmt.Errorf("function %q expression %d: %w", fn.Name, i, err)
		}
		types[i] = res
	}
	fn.ExpressionTypes = types
	return nil
}

// ResolveModuleTypes fills ExpressionTypes of every function whose table is
// missing or stale (shorter than its expression arena).
func ResolveModuleTypes(module *Module) error {
	for i := range module.Functions {
		fn := &module.Functions[i]
		if len(fn.ExpressionTypes) == len(fn.Expressions) {
			continue
		}
		if err := ResolveFunctionTypes(module, fn); err != nil {
			return err
		}
	}
	return nil
}

func resolveLiteralType(lit Literal) (TypeResolution, error) {
	switch v := lit.Value.(type) {
	case LiteralF32:
		return ValueResolution(ScalarType{Kind: ScalarFloat, Width: 4}), nil
	case LiteralU32:
		return ValueResolution(ScalarType{Kind: ScalarUint, Width: 4}), nil
	case LiteralI32:
		return ValueResolution(ScalarType{Kind: ScalarSint, Width: 4}), nil
	case LiteralBool:
		return ValueResolution(ScalarType{Kind: ScalarBool, Width: 1}), nil
	default:
		return TypeResolution{}, fmt.Errorf("unknown literal type: %T", v)
	}
}

// resolveAccessType resolves ExprAccess (index == nil) and ExprAccessIndex.
func resolveAccessType(module *Module, fn *Function, base ExpressionHandle, index *uint32) (TypeResolution, error) {
	baseType, err := ResolveExpressionType(module, fn, base)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("access base: %w", err)
	}
	inner, err := resolutionInnerChecked(module, baseType)
	if err != nil {
		return TypeResolution{}, err
	}

	switch t := inner.(type) {
	case PointerType:
		if int(t.Base) >= len(module.Types) {
			return TypeResolution{}, fmt.Errorf("pointer base type %d out of range", t.Base)
		}
		return resolvePointerAccess(module, module.Types[t.Base].Inner, t.Space, index)
	case ValuePointerType:
		if t.Size == nil {
			return TypeResolution{}, fmt.Errorf("cannot index through a scalar pointer")
		}
		return ValueResolution(ValuePointerType{Scalar: t.Scalar, Space: t.Space}), nil
	case ArrayType:
		return HandleResolution(t.Base), nil
	case VectorType:
		return ValueResolution(t.Scalar), nil
	case MatrixType:
		// Matrix access returns a column vector
		return ValueResolution(VectorType{Size: t.Rows, Scalar: t.Scalar}), nil
	case StructType:
		if index == nil {
			return TypeResolution{}, fmt.Errorf("struct members need a constant index")
		}
		if int(*index) >= len(t.Members) {
			return TypeResolution{}, fmt.Errorf("struct member index %d out of range", *index)
		}
		return HandleResolution(t.Members[*index].Type), nil
	default:
		return TypeResolution{}, fmt.Errorf("cannot index into type %T", t)
	}
}

// resolvePointerAccess returns the pointer to the element of pointee.
func resolvePointerAccess(module *Module, pointee TypeInner, space AddressSpace, index *uint32) (TypeResolution, error) {
	switch t := pointee.(type) {
	case ArrayType:
		return ValueResolution(PointerType{Base: t.Base, Space: space}), nil
	case VectorType:
		return ValueResolution(ValuePointerType{Scalar: t.Scalar, Space: space}), nil
	case MatrixType:
		rows := t.Rows
		return ValueResolution(ValuePointerType{Size: &rows, Scalar: t.Scalar, Space: space}), nil
	case StructType:
		if index == nil {
			return TypeResolution{}, fmt.Errorf("struct members need a constant index")
		}
		if int(*index) >= len(t.Members) {
			return TypeResolution{}, fmt.Errorf("struct member index %d out of range", *index)
		}
		member := t.Members[*index].Type
		if int(member) >= len(module.Types) {
			return TypeResolution{}, fmt.Errorf("struct member type %d out of range", member)
		}
		return ValueResolution(PointerType{Base: member, Space: space}), nil
	default:
		return TypeResolution{}, fmt.Errorf("cannot index through pointer to %T", t)
	}
}

func resolveSplatType(module *Module, fn *Function, expr ExprSplat) (TypeResolution, error) {
	valueType, err := ResolveExpressionType(module, fn, expr.Value)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("splat value: %w", err)
	}
	inner, err := resolutionInnerChecked(module, valueType)
	if err != nil {
		return TypeResolution{}, err
	}
	scalar, ok := inner.(ScalarType)
	if !ok {
		return TypeResolution{}, fmt.Errorf("splat value must be scalar, got %T", inner)
	}
	return ValueResolution(VectorType{Size: expr.Size, Scalar: scalar}), nil
}

func resolveSwizzleType(module *Module, fn *Function, expr ExprSwizzle) (TypeResolution, error) {
	vectorType, err := ResolveExpressionType(module, fn, expr.Vector)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("swizzle vector: %w", err)
	}
	inner, err := resolutionInnerChecked(module, vectorType)
	if err != nil {
		return TypeResolution{}, err
	}
	vec, ok := inner.(VectorType)
	if !ok {
		return TypeResolution{}, fmt.Errorf("swizzle base must be vector, got %T", inner)
	}
	return ValueResolution(VectorType{Size: expr.Size, Scalar: vec.Scalar}), nil
}

func resolveLoadType(module *Module, fn *Function, expr ExprLoad) (TypeResolution, error) {
	pointerType, err := ResolveExpressionType(module, fn, expr.Pointer)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("load pointer: %w", err)
	}
	inner, err := resolutionInnerChecked(module, pointerType)
	if err != nil {
		return TypeResolution{}, err
	}

	switch ptr := inner.(type) {
	case PointerType:
		return HandleResolution(ptr.Base), nil
	case ValuePointerType:
		if ptr.Size == nil {
			return ValueResolution(ptr.Scalar), nil
		}
		return ValueResolution(VectorType{Size: *ptr.Size, Scalar: ptr.Scalar}), nil
	default:
		return TypeResolution{}, fmt.Errorf("load requires pointer type, got %T", inner)
	}
}

func resolveBinaryType(module *Module, fn *Function, expr ExprBinary) (TypeResolution, error) {
	leftType, err := ResolveExpressionType(module, fn, expr.Left)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("binary left: %w", err)
	}

	switch {
	case expr.Op.IsComparison():
		if vec, ok := ResolutionInner(module, leftType).(VectorType); ok {
			return ValueResolution(VectorType{
				Size:   vec.Size,
				Scalar: ScalarType{Kind: ScalarBool, Width: 1},
			}), nil
		}
		return ValueResolution(ScalarType{Kind: ScalarBool, Width: 1}), nil

	case expr.Op == BinaryLogicalAnd || expr.Op == BinaryLogicalOr:
		return ValueResolution(ScalarType{Kind: ScalarBool, Width: 1}), nil

	default:
		rightType, err := ResolveExpressionType(module, fn, expr.Right)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("binary right: %w", err)
		}
		return resolveArithmeticResultType(module, expr.Op, leftType, rightType), nil
	}
}

// resolveArithmeticResultType picks the wider operand shape:
// scalar*vec→vec, scalar*mat→mat, mat*vec→vec(rows), vec*mat→vec(cols).
func resolveArithmeticResultType(module *Module, op BinaryOperator, left, right TypeResolution) TypeResolution {
	leftInner := ResolutionInner(module, left)
	rightInner := ResolutionInner(module, right)

	_, leftIsScalar := leftInner.(ScalarType)
	_, rightIsVec := rightInner.(VectorType)
	_, rightIsMat := rightInner.(MatrixType)
	leftMat, leftIsMat := leftInner.(MatrixType)

	switch {
	case leftIsScalar && (rightIsVec || rightIsMat):
		return right
	case op == BinaryMultiply && leftIsMat && rightIsVec:
		return ValueResolution(VectorType{Size: leftMat.Rows, Scalar: leftMat.Scalar})
	case op == BinaryMultiply && rightIsMat:
		if _, ok := leftInner.(VectorType); ok {
			rightMat := rightInner.(MatrixType)
			return ValueResolution(VectorType{Size: rightMat.Columns, Scalar: rightMat.Scalar})
		}
		return left
	default:
		return left
	}
}

func resolveAsType(module *Module, fn *Function, expr ExprAs) (TypeResolution, error) {
	exprType, err := ResolveExpressionType(module, fn, expr.Expr)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("as expr: %w", err)
	}
	inner, err := resolutionInnerChecked(module, exprType)
	if err != nil {
		return TypeResolution{}, err
	}

	width := uint8(4)
	if expr.Convert != nil {
		width = *expr.Convert
	}
	target := ScalarType{Kind: expr.Kind, Width: width}

	switch t := inner.(type) {
	case ScalarType:
		if expr.Convert == nil {
			target.Width = t.Width
		}
		return ValueResolution(target), nil
	case VectorType:
		if expr.Convert == nil {
			target.Width = t.Scalar.Width
		}
		return ValueResolution(VectorType{Size: t.Size, Scalar: target}), nil
	default:
		return TypeResolution{}, fmt.Errorf("as requires scalar or vector operand, got %T", inner)
	}
}

// resolutionInnerChecked is ResolutionInner with handle bounds checking.
func resolutionInnerChecked(module *Module, res TypeResolution) (TypeInner, error) {
	if res.Handle != nil {
		if int(*res.Handle) >= len(module.Types) {
			return nil, fmt.Errorf("type handle %d out of range", *res.Handle)
		}
		return module.Types[*res.Handle].Inner, nil
	}
	if res.Value == nil {
		return nil, fmt.Errorf("empty type resolution")
	}
	return res.Value, nil
}
