// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/rawbuf/ir"
)

// Every storage buffer is declared as a RWByteAddressBuffer. Values are
// read and written as 32-bit words at explicit byte offsets, so composite
// values are reconstructed (or decomposed) one scalar or vector at a time.
//
// Matrices are kept row-major in the buffer. HLSL matrix constructors take
// their arguments row by row, which means a matrix built from the rows of
// the buffer has to be transposed on load, and transposed back on store.

const (
	hlslRWByteAddressBuffer = "RWByteAddressBuffer"

	// maxStorageDepth bounds the recursion of the load and store sequencers.
	maxStorageDepth = 64
)

// subAccess is one step of the path from a buffer's base to a value.
type subAccess interface {
	subAccess()
}

// subOffset is a constant byte offset.
type subOffset uint32

func (subOffset) subAccess() {}

// subIndex is a dynamic index scaled by the byte stride of the element.
type subIndex struct {
	value  ir.ExpressionHandle
	stride uint32
}

func (subIndex) subAccess() {}

// storeValue refers to the value a store sequence is writing.
type storeValue interface {
	storeValue()
}

// storeExpression is a value computed by an expression of the function.
type storeExpression ir.ExpressionHandle

func (storeExpression) storeValue() {}

// storeTempIndex is an element of the temporary declared at depth.
type storeTempIndex struct {
	depth int
	index uint32
	ty    ir.TypeResolution
}

func (storeTempIndex) storeValue() {}

// storeTempAccess is a member of the struct temporary declared at depth.
type storeTempAccess struct {
	depth  int
	base   ir.TypeHandle
	member uint32
}

func (storeTempAccess) storeValue() {}

// storageElement is a part of a composite value at a byte offset relative
// to the composite.
type storageElement struct {
	ty     ir.TypeResolution
	offset uint32
}

// writeStorageBufferDeclaration declares a storage global as a byte address buffer.
//
//	RWByteAddressBuffer buf : register(u0, space0);
func (w *Writer) writeStorageBufferDeclaration(name string, global *ir.GlobalVariable) error {
	binding, err := w.getBindTarget(global.Binding)
	if err != nil {
		return err
	}
	clause := binding.Clause(registerTypeForSpace(global.Space))
	w.writeLinef("%s %s : %s;", hlslRWByteAddressBuffer, name, clause)
	w.registerBindings[name] = clause
	return nil
}

// pushAccess appends sub to the access chain. The returned func removes it
// again and must run before the caller returns.
func (w *Writer) pushAccess(sub subAccess) func() {
	n := len(w.accessChain)
	w.accessChain = append(w.accessChain, sub)
	return func() {
		w.accessChain = w.accessChain[:n]
	}
}

// detachAccessChain hides the access chain from nested expression writes,
// which may build chains of their own, and returns the func restoring it.
func (w *Writer) detachAccessChain() func() {
	saved := w.accessChain
	w.accessChain = nil
	return func() {
		w.accessChain = saved
	}
}

// fillAccessChain walks pointer back to the global variable it is derived
// from, leaving one access chain step per indexing expression on the way.
// On error the chain is left empty.
func (w *Writer) fillAccessChain(pointer ir.ExpressionHandle) (ir.GlobalVariableHandle, error) {
	w.accessChain = w.accessChain[:0]
	global, err := w.walkAccessChain(pointer)
	if err != nil {
		w.accessChain = w.accessChain[:0]
		return 0, err
	}
	return global, nil
}

func (w *Writer) walkAccessChain(cur ir.ExpressionHandle) (ir.GlobalVariableHandle, error) {
	fn := w.currentFunction
	for {
		if int(cur) >= len(fn.Expressions) {
			return 0, internalErrorf("pointer chain references expression %d out of range", cur)
		}
		switch e := fn.Expressions[cur].Kind.(type) {
		case ir.ExprGlobalVariable:
			return e.Variable, nil

		case ir.ExprAccess:
			stride, err := w.accessStride(e.Base, cur)
			if err != nil {
				return 0, err
			}
			w.accessChain = append(w.accessChain, subIndex{value: e.Index, stride: stride})
			cur = e.Base

		case ir.ExprAccessIndex:
			if st, ok := w.pointeeInner(e.Base).(ir.StructType); ok {
				if int(e.Index) >= len(st.Members) {
					return 0, internalErrorf("member %d of a %d-member struct", e.Index, len(st.Members))
				}
				w.accessChain = append(w.accessChain, subOffset(st.Members[e.Index].Offset))
			} else {
				stride, err := w.accessStride(e.Base, cur)
				if err != nil {
					return 0, err
				}
				w.accessChain = append(w.accessChain, subOffset(e.Index*stride))
			}
			cur = e.Base

		default:
			return 0, NewError(ErrUnsupportedPointerChain,
				fmt.Sprintf("unsupported pointer chain expression %T (expression %d)", e, cur))
		}
	}
}

// accessStride returns the byte distance between the elements of base that
// element points into.
func (w *Writer) accessStride(base, element ir.ExpressionHandle) (uint32, error) {
	switch t := w.pointeeInner(base).(type) {
	case ir.ArrayType:
		return t.Stride, nil
	case ir.MatrixType:
		// Columns are not contiguous in a row-major buffer.
		return 0, NewError(ErrUnsupportedPointerChain,
			fmt.Sprintf("matrix column access through a storage pointer (expression %d)", element))
	}
	return ir.TypeSpan(w.module, w.pointeeInner(element)), nil
}

// pointeeInner is the type the pointer expression handle points to.
func (w *Writer) pointeeInner(handle ir.ExpressionHandle) ir.TypeInner {
	return ir.PointeeInner(w.module, w.getExpressionTypeInner(handle))
}

// writeStorageAddress writes the access chain as a sum of byte offsets.
func (w *Writer) writeStorageAddress() error {
	chain := w.accessChain
	defer w.detachAccessChain()()

	if len(chain) == 0 {
		w.out.WriteByte('0')
		return nil
	}
	for i, access := range chain {
		if i > 0 {
			w.out.WriteByte('+')
		}
		switch a := access.(type) {
		case subOffset:
			fmt.Fprintf(&w.out, "%d", uint32(a))
		case subIndex:
			if err := w.writeExpression(a.value); err != nil {
				return fmt.Errorf("storage address: %w", err)
			}
			fmt.Fprintf(&w.out, "*%d", a.stride)
		}
	}
	return nil
}

// writeStorageLoad writes an expression reconstructing a value of type res
// from global at the position described by the access chain.
func (w *Writer) writeStorageLoad(global ir.GlobalVariableHandle, res ir.TypeResolution) error {
	w.storageDepth++
	defer func() { w.storageDepth-- }()
	if w.storageDepth > maxStorageDepth {
		return internalErrorf("storage load nested deeper than %d levels", maxStorageDepth)
	}

	name := w.globalName(global)
	switch t := ir.ResolutionInner(w.module, res).(type) {
	case ir.ScalarType:
		if err := checkStorageScalar(t); err != nil {
			return err
		}
		fmt.Fprintf(&w.out, "%s(%s.Load(", ScalarCast(t.Kind), name)
		if err := w.writeStorageAddress(); err != nil {
			return err
		}
		w.out.WriteString("))")
		w.storageAccesses++

	case ir.VectorType:
		if err := checkStorageScalar(t.Scalar); err != nil {
			return err
		}
		fmt.Fprintf(&w.out, "%s(%s.Load%d(", ScalarCast(t.Scalar.Kind), name, t.Size)
		if err := w.writeStorageAddress(); err != nil {
			return err
		}
		w.out.WriteString("))")
		w.storageAccesses++

	case ir.MatrixType:
		if err := checkStorageMatrix(t); err != nil {
			return err
		}
		fmt.Fprintf(&w.out, "transpose(%s(", storageMatrixName(t))
		if err := w.writeStorageLoadSequence(global, matrixRows(t)); err != nil {
			return err
		}
		w.out.WriteString("))")

	case ir.ArrayType:
		if t.Size.Constant == nil {
			return NewError(ErrUnsupportedType, "runtime-sized array cannot be loaded as a whole value")
		}
		elements := make([]storageElement, *t.Size.Constant)
		for i := range elements {
			elements[i] = storageElement{ty: ir.HandleResolution(t.Base), offset: uint32(i) * t.Stride}
		}
		w.out.WriteByte('{')
		if err := w.writeStorageLoadSequence(global, elements); err != nil {
			return err
		}
		w.out.WriteByte('}')

	case ir.StructType:
		elements := make([]storageElement, len(t.Members))
		for i, member := range t.Members {
			elements[i] = storageElement{ty: ir.HandleResolution(member.Type), offset: member.Offset}
		}
		w.out.WriteByte('{')
		if err := w.writeStorageLoadSequence(global, elements); err != nil {
			return err
		}
		w.out.WriteByte('}')

	default:
		return internalErrorf("type %T cannot be loaded from a byte address buffer", t)
	}
	return nil
}

// writeStorageLoadSequence writes comma separated loads of elements.
func (w *Writer) writeStorageLoadSequence(global ir.GlobalVariableHandle, elements []storageElement) error {
	for i, elem := range elements {
		if i > 0 {
			w.out.WriteString(", ")
		}
		if err := w.writeStorageLoadElement(global, elem); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeStorageLoadElement(global ir.GlobalVariableHandle, elem storageElement) error {
	defer w.pushAccess(subOffset(elem.offset))()
	return w.writeStorageLoad(global, elem.ty)
}

// writeStorageStore writes the statements storing value into global at the
// position described by the access chain. Composite values are copied into
// a temporary named after the recursion depth, inside a block of their own,
// so the source expression is evaluated once.
func (w *Writer) writeStorageStore(global ir.GlobalVariableHandle, value storeValue, level int) error {
	w.storageDepth++
	defer func() { w.storageDepth-- }()
	depth := w.storageDepth
	if depth > maxStorageDepth {
		return internalErrorf("storage store nested deeper than %d levels", maxStorageDepth)
	}

	res, err := w.storeValueType(value)
	if err != nil {
		return err
	}

	switch t := ir.ResolutionInner(w.module, res).(type) {
	case ir.ScalarType:
		if err := checkStorageScalar(t); err != nil {
			return err
		}
		return w.writeStorageStoreCall(global, "Store", value, level)

	case ir.VectorType:
		if err := checkStorageScalar(t.Scalar); err != nil {
			return err
		}
		return w.writeStorageStoreCall(global, fmt.Sprintf("Store%d", t.Size), value, level)

	case ir.MatrixType:
		if err := checkStorageMatrix(t); err != nil {
			return err
		}
		w.writeIndentAt(level)
		w.out.WriteString("{\n")
		w.writeIndentAt(level + 1)
		fmt.Fprintf(&w.out, "%s %s%d = transpose(", storageMatrixName(t), storeTempName, depth)
		if err := w.writeStoreValue(value); err != nil {
			return err
		}
		w.out.WriteString(");\n")
		for i, row := range matrixRows(t) {
			temp := storeTempIndex{depth: depth, index: uint32(i), ty: row.ty}
			if err := w.writeStorageStoreElement(global, temp, row.offset, level+1); err != nil {
				return err
			}
		}
		w.writeIndentAt(level)
		w.out.WriteString("}\n")

	case ir.ArrayType:
		if t.Size.Constant == nil {
			return NewError(ErrUnsupportedType, "runtime-sized array cannot be stored as a whole value")
		}
		baseName, baseSuffix := w.getTypeNameWithArraySuffix(t.Base)
		w.writeIndentAt(level)
		w.out.WriteString("{\n")
		w.writeIndentAt(level + 1)
		fmt.Fprintf(&w.out, "%s %s%d[%d]%s = ", baseName, storeTempName, depth, *t.Size.Constant, baseSuffix)
		if err := w.writeStoreValue(value); err != nil {
			return err
		}
		w.out.WriteString(";\n")
		for i := uint32(0); i < *t.Size.Constant; i++ {
			temp := storeTempIndex{depth: depth, index: i, ty: ir.HandleResolution(t.Base)}
			if err := w.writeStorageStoreElement(global, temp, i*t.Stride, level+1); err != nil {
				return err
			}
		}
		w.writeIndentAt(level)
		w.out.WriteString("}\n")

	case ir.StructType:
		if res.Handle == nil {
			return internalErrorf("struct value without a type handle")
		}
		structType := *res.Handle
		w.writeIndentAt(level)
		w.out.WriteString("{\n")
		w.writeIndentAt(level + 1)
		fmt.Fprintf(&w.out, "%s %s%d = ", w.getTypeName(structType), storeTempName, depth)
		if err := w.writeStoreValue(value); err != nil {
			return err
		}
		w.out.WriteString(";\n")
		for i, member := range t.Members {
			temp := storeTempAccess{depth: depth, base: structType, member: uint32(i)}
			if err := w.writeStorageStoreElement(global, temp, member.Offset, level+1); err != nil {
				return err
			}
		}
		w.writeIndentAt(level)
		w.out.WriteString("}\n")

	default:
		return internalErrorf("type %T cannot be stored in a byte address buffer", t)
	}
	return nil
}

func (w *Writer) writeStorageStoreElement(global ir.GlobalVariableHandle, value storeValue, offset uint32, level int) error {
	defer w.pushAccess(subOffset(offset))()
	return w.writeStorageStore(global, value, level)
}

// writeStorageStoreCall writes one primitive store.
//
//	buf.Store2(8, asuint(v));
func (w *Writer) writeStorageStoreCall(global ir.GlobalVariableHandle, method string, value storeValue, level int) error {
	w.writeIndentAt(level)
	fmt.Fprintf(&w.out, "%s.%s(", w.globalName(global), method)
	if err := w.writeStorageAddress(); err != nil {
		return err
	}
	w.out.WriteString(", asuint(")
	if err := w.writeStoreValue(value); err != nil {
		return err
	}
	w.out.WriteString("));\n")
	w.storageAccesses++
	return nil
}

// writeStoreValue writes a reference to the value being stored.
func (w *Writer) writeStoreValue(value storeValue) error {
	switch v := value.(type) {
	case storeExpression:
		defer w.detachAccessChain()()
		return w.writeExpression(ir.ExpressionHandle(v))
	case storeTempIndex:
		fmt.Fprintf(&w.out, "%s%d[%d]", storeTempName, v.depth, v.index)
	case storeTempAccess:
		member := w.names[nameKey{kind: nameKeyStructMember, handle1: uint32(v.base), handle2: v.member}]
		fmt.Fprintf(&w.out, "%s%d.%s", storeTempName, v.depth, member)
	default:
		return internalErrorf("unknown store value %T", value)
	}
	return nil
}

// storeValueType returns the type of the value being stored.
func (w *Writer) storeValueType(value storeValue) (ir.TypeResolution, error) {
	switch v := value.(type) {
	case storeExpression:
		return w.expressionResolution(ir.ExpressionHandle(v))
	case storeTempIndex:
		return v.ty, nil
	case storeTempAccess:
		st, ok := w.typeInner(v.base).(ir.StructType)
		if !ok || int(v.member) >= len(st.Members) {
			return ir.TypeResolution{}, internalErrorf("member %d of type %d is not a struct member", v.member, v.base)
		}
		return ir.HandleResolution(st.Members[v.member].Type), nil
	default:
		return ir.TypeResolution{}, internalErrorf("unknown store value %T", value)
	}
}

// isStoragePointer reports whether handle is a pointer into a storage buffer.
func (w *Writer) isStoragePointer(handle ir.ExpressionHandle) bool {
	switch t := w.getExpressionTypeInner(handle).(type) {
	case ir.PointerType:
		return t.Space == ir.SpaceStorage
	case ir.ValuePointerType:
		return t.Space == ir.SpaceStorage
	default:
		return false
	}
}

// writeStorageLoadExpression writes the load of the storage value pointer
// points to. Any chain of an enclosing load or store is preserved.
func (w *Writer) writeStorageLoadExpression(pointer ir.ExpressionHandle) error {
	defer w.detachAccessChain()()

	global, err := w.fillAccessChain(pointer)
	if err != nil {
		return err
	}
	res := pointeeResolution(w.module, w.getExpressionTypeInner(pointer))
	w.logStorage("load", global, res)
	return w.writeStorageLoad(global, res)
}

// writeStorageStoreStatement writes a store through a storage pointer.
func (w *Writer) writeStorageStoreStatement(s ir.StmtStore) error {
	defer w.detachAccessChain()()

	global, err := w.fillAccessChain(s.Pointer)
	if err != nil {
		return err
	}
	res, err := w.expressionResolution(s.Value)
	if err != nil {
		return err
	}
	w.logStorage("store", global, res)
	return w.writeStorageStore(global, storeExpression(s.Value), w.indent)
}

func (w *Writer) logStorage(op string, global ir.GlobalVariableHandle, res ir.TypeResolution) {
	w.logger.Debug("byte address buffer access",
		slog.String("op", op),
		slog.String("buffer", w.globalName(global)),
		slog.String("type", w.resolutionTypeName(res)),
		slog.Int("chain", len(w.accessChain)))
}

// globalName returns the emitted name of a global variable.
func (w *Writer) globalName(handle ir.GlobalVariableHandle) string {
	return w.names[nameKey{kind: nameKeyGlobalVariable, handle1: uint32(handle)}]
}

// pointeeResolution is the type resolution of the value a pointer type
// refers to. Pointers into the type arena keep their handle.
func pointeeResolution(module *ir.Module, inner ir.TypeInner) ir.TypeResolution {
	if p, ok := inner.(ir.PointerType); ok {
		return ir.HandleResolution(p.Base)
	}
	return ir.ValueResolution(ir.PointeeInner(module, inner))
}

// checkStorageScalar reports scalars a byte address buffer cannot hold.
func checkStorageScalar(s ir.ScalarType) error {
	if s.Kind == ir.ScalarBool {
		return internalErrorf("bool reached a byte address buffer access")
	}
	if s.Width != 4 {
		return NewError(ErrUnsupportedType,
			fmt.Sprintf("%d-byte %s in a byte address buffer", s.Width, s.Kind))
	}
	return nil
}

func checkStorageMatrix(m ir.MatrixType) error {
	if m.Rows < ir.Vec2 || m.Rows > ir.Vec4 || m.Columns < ir.Vec2 || m.Columns > ir.Vec4 {
		return internalErrorf("matrix with %d columns and %d rows", m.Columns, m.Rows)
	}
	if m.Scalar.Kind != ir.ScalarFloat {
		return internalErrorf("matrix of %s", m.Scalar.Kind)
	}
	return checkStorageScalar(m.Scalar)
}

// storageMatrixName names the matrix whose rows are the rows stored in the
// buffer: R rows of C components.
func storageMatrixName(m ir.MatrixType) string {
	return fmt.Sprintf("%s%dx%d", ScalarToHLSL(m.Scalar), m.Rows, m.Columns)
}

// matrixRows returns the rows of m as stored in a buffer.
func matrixRows(m ir.MatrixType) []storageElement {
	row := ir.ValueResolution(ir.VectorType{Size: m.Columns, Scalar: m.Scalar})
	rowStride := uint32(m.Scalar.Width) * uint32(m.Columns)
	rows := make([]storageElement, m.Rows)
	for i := range rows {
		rows[i] = storageElement{ty: row, offset: uint32(i) * rowStride}
	}
	return rows
}
