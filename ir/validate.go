package ir

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Function   string
	Expression *ExpressionHandle
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		if e.Expression != nil {
			return fmt.Sprintf("in function %s, expression %d: %s", e.Function, *e.Expression, e.Message)
		}
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// wordSize is the granularity of byte address buffer loads and stores.
const wordSize = 4

// Validator validates IR modules.
type Validator struct {
	module *Module
	errs   error

	// Current function, for error context.
	function     *Function
	functionName string
}

// Validate checks the IR module for correctness.
// Every problem found is reported; use multierr.Errors to list them.
func Validate(module *Module) error {
	if module == nil {
		return fmt.Errorf("module is nil")
	}

	v := &Validator{module: module}
	v.validateTypes()
	v.validateConstants()
	v.validateGlobalVariables()
	v.validateFunctions()
	v.validateEntryPoints()
	return v.errs
}

// ValidateStorageLayout checks that a type can live in a storage buffer:
// only host-shareable 32-bit scalars, vectors, matrices, fixed-size or
// trailing runtime-sized arrays, and structs whose precomputed offsets are
// ascending and fit inside the struct span.
func ValidateStorageLayout(module *Module, handle TypeHandle) error {
	v := &Validator{module: module}
	v.validateStorageType(handle, true, map[TypeHandle]bool{})
	return v.errs
}

// validateTypes checks all type definitions.
//
//nolint:gocognit,gocyclo,cyclop // Type validation requires checking many type variants
func (v *Validator) validateTypes() {
	for i := range v.module.Types {
		handle := TypeHandle(i)
		switch inner := v.module.Types[i].Inner.(type) {
		case nil:
			v.addError("type %d has nil inner type", handle)
		case ScalarType:
			if !validScalarWidth(inner.Width) {
				v.addError("type %d: scalar width must be 1, 2, 4, or 8 bytes, got %d", handle, inner.Width)
			}
		case VectorType:
			if !validVectorSize(inner.Size) {
				v.addError("type %d: vector size must be 2, 3, or 4, got %d", handle, inner.Size)
			}
			if !validScalarWidth(inner.Scalar.Width) {
				v.addError("type %d: vector scalar width must be 1, 2, 4, or 8 bytes, got %d", handle, inner.Scalar.Width)
			}
		case MatrixType:
			if !validVectorSize(inner.Columns) {
				v.addError("type %d: matrix columns must be 2, 3, or 4, got %d", handle, inner.Columns)
			}
			if !validVectorSize(inner.Rows) {
				v.addError("type %d: matrix rows must be 2, 3, or 4, got %d", handle, inner.Rows)
			}
			if inner.Scalar.Kind != ScalarFloat {
				v.addError("type %d: matrix scalar must be float, got %s", handle, inner.Scalar.Kind)
			}
		case ArrayType:
			if int(inner.Base) >= i {
				v.addError("type %d: array base type %d must be declared before the array", handle, inner.Base)
			}
			if inner.Size.Constant != nil && *inner.Size.Constant == 0 {
				v.addError("type %d: array length must be greater than zero", handle)
			}
		case StructType:
			seen := make(map[string]struct{}, len(inner.Members))
			for m, member := range inner.Members {
				if int(member.Type) >= i {
					v.addError("type %d: member %d type %d must be declared before the struct", handle, m, member.Type)
				}
				if member.Name == "" {
					continue
				}
				if _, dup := seen[member.Name]; dup {
					v.addError("type %d: duplicate member name %q", handle, member.Name)
				}
				seen[member.Name] = struct{}{}
			}
		case PointerType:
			if !v.isValidTypeHandle(inner.Base) {
				v.addError("type %d: pointer base type %d out of range", handle, inner.Base)
			}
		case ValuePointerType, AtomicType:
		default:
			v.addError("type %d: unknown type %T", handle, inner)
		}
	}
}

// validateStorageType walks a storage buffer type. top is true for the
// buffer's own type and for the last member of a top-level struct, the only
// places a runtime-sized array may appear.
//
//nolint:gocognit // Layout rules differ per shape
func (v *Validator) validateStorageType(handle TypeHandle, top bool, visiting map[TypeHandle]bool) {
	if !v.isValidTypeHandle(handle) {
		v.addError("storage type %d out of range", handle)
		return
	}
	if visiting[handle] {
		v.addError("storage type %d is recursive", handle)
		return
	}
	visiting[handle] = true
	defer delete(visiting, handle)

	switch inner := v.module.Types[handle].Inner.(type) {
	case ScalarType:
		v.validateStorageScalar(handle, inner)
	case VectorType:
		v.validateStorageScalar(handle, inner.Scalar)
	case MatrixType:
		v.validateStorageScalar(handle, inner.Scalar)
	case AtomicType:
		v.validateStorageScalar(handle, inner.Scalar)
	case ArrayType:
		if inner.Size.Constant == nil && !top {
			v.addError("storage type %d: runtime-sized array must be the buffer type or its last member", handle)
		}
		if !v.isValidTypeHandle(inner.Base) {
			v.addError("storage type %d: array base type %d out of range", handle, inner.Base)
			return
		}
		switch span := TypeHandleSpan(v.module, inner.Base); {
		case inner.Stride == 0:
			v.addError("storage type %d: array stride must be nonzero", handle)
		case inner.Stride%wordSize != 0:
			v.addError("storage type %d: array stride %d is not a multiple of %d", handle, inner.Stride, wordSize)
		case inner.Stride < span:
			v.addError("storage type %d: array stride %d is smaller than element span %d", handle, inner.Stride, span)
		case inner.Size.Constant != nil && uint64(inner.Stride)*uint64(*inner.Size.Constant) > math.MaxUint32:
			v.addError("storage type %d: array of %d elements with stride %d overflows the address space",
				handle, *inner.Size.Constant, inner.Stride)
		}
		v.validateStorageType(inner.Base, false, visiting)
	case StructType:
		if len(inner.Members) == 0 {
			v.addError("storage type %d: struct has no members", handle)
		}
		var end uint32
		for i, member := range inner.Members {
			if i > 0 && member.Offset < end {
				v.addError("storage type %d: member %q at offset %d overlaps the previous member ending at %d",
					handle, member.Name, member.Offset, end)
			}
			if member.Offset%wordSize != 0 {
				v.addError("storage type %d: member %q offset %d is not a multiple of %d", handle, member.Name, member.Offset, wordSize)
			}
			if !v.isValidTypeHandle(member.Type) {
				v.addError("storage type %d: member %q type %d out of range", handle, member.Name, member.Type)
				continue
			}
			span := TypeHandleSpan(v.module, member.Type)
			if member.Offset > math.MaxUint32-span {
				v.addError("storage type %d: member %q at offset %d overflows the address space", handle, member.Name, member.Offset)
				continue
			}
			end = member.Offset + span
			if end > inner.Span {
				v.addError("storage type %d: member %q ends at %d past struct span %d", handle, member.Name, end, inner.Span)
			}
			last := i == len(inner.Members)-1
			v.validateStorageType(member.Type, top && last, visiting)
		}
	default:
		v.addError("storage type %d: %T is not host-shareable", handle, inner)
	}
}

func (v *Validator) validateStorageScalar(handle TypeHandle, scalar ScalarType) {
	if scalar.Kind == ScalarBool {
		v.addError("storage type %d: bool is not host-shareable", handle)
	}
	if scalar.Width != wordSize {
		v.addError("storage type %d: storage buffers hold 32-bit words, got %d-byte scalar", handle, scalar.Width)
	}
}

// validateConstants checks all constants.
func (v *Validator) validateConstants() {
	for i, constant := range v.module.Constants {
		if !v.isValidTypeHandle(constant.Type) {
			v.addError("constant %d: type %d out of range", i, constant.Type)
		}
		if composite, ok := constant.Value.(CompositeValue); ok {
			for _, c := range composite.Components {
				if int(c) >= i {
					v.addError("constant %d: component %d must be declared before the composite", i, c)
				}
			}
		}
	}
}

// validateGlobalVariables checks all global variables.
func (v *Validator) validateGlobalVariables() {
	for i := range v.module.GlobalVariables {
		global := &v.module.GlobalVariables[i]
		if !v.isValidTypeHandle(global.Type) {
			v.addError("global variable %q: type %d out of range", global.Name, global.Type)
			continue
		}
		switch global.Space {
		case SpaceStorage:
			if global.Binding == nil {
				v.addError("global variable %q: storage buffer requires a resource binding", global.Name)
			}
			if err := ValidateStorageLayout(v.module, global.Type); err != nil {
				for _, e := range multierr.Errors(err) {
					v.addError("global variable %q: %v", global.Name, e)
				}
			}
		case SpaceUniform, SpaceHandle:
			if global.Binding == nil {
				v.addError("global variable %q: resource requires a binding", global.Name)
			}
		}
		if global.Init != nil && int(*global.Init) >= len(v.module.Constants) {
			v.addError("global variable %q: initializer constant %d out of range", global.Name, *global.Init)
		}
	}
}

// validateFunctions checks all functions.
func (v *Validator) validateFunctions() {
	for i := range v.module.Functions {
		fn := &v.module.Functions[i]
		v.function = fn
		v.functionName = fn.Name
		if v.functionName == "" {
			v.functionName = fmt.Sprintf("function_%d", i)
		}
		v.validateFunction(fn)
	}
	v.function = nil
	v.functionName = ""
}

// validateFunction checks a function's signature, expressions and body.
func (v *Validator) validateFunction(fn *Function) {
	for i, arg := range fn.Arguments {
		if !v.isValidTypeHandle(arg.Type) {
			v.addErrorInFunction("argument %d type %d out of range", i, arg.Type)
		}
	}
	if fn.Result != nil && !v.isValidTypeHandle(fn.Result.Type) {
		v.addErrorInFunction("result type %d out of range", fn.Result.Type)
	}
	for i, local := range fn.LocalVars {
		if !v.isValidTypeHandle(local.Type) {
			v.addErrorInFunction("local variable %d type %d out of range", i, local.Type)
		}
	}
	if len(fn.ExpressionTypes) != 0 && len(fn.ExpressionTypes) != len(fn.Expressions) {
		v.addErrorInFunction("expression type table has %d entries for %d expressions",
			len(fn.ExpressionTypes), len(fn.Expressions))
	}
	for i := range fn.Expressions {
		v.validateExpression(ExpressionHandle(i), &fn.Expressions[i])
	}
	v.validateBlock(fn.Body)
}

// validateExpression checks that an expression only refers to earlier expressions.
func (v *Validator) validateExpression(handle ExpressionHandle, expr *Expression) {
	var operands []ExpressionHandle
	switch e := expr.Kind.(type) {
	case nil:
		v.addErrorInExpression(handle, "nil expression")
		return
	case ExprAccess:
		operands = []ExpressionHandle{e.Base, e.Index}
	case ExprAccessIndex:
		operands = []ExpressionHandle{e.Base}
	case ExprSplat:
		operands = []ExpressionHandle{e.Value}
	case ExprSwizzle:
		operands = []ExpressionHandle{e.Vector}
	case ExprLoad:
		operands = []ExpressionHandle{e.Pointer}
	case ExprUnary:
		operands = []ExpressionHandle{e.Expr}
	case ExprBinary:
		operands = []ExpressionHandle{e.Left, e.Right}
	case ExprSelect:
		operands = []ExpressionHandle{e.Condition, e.Accept, e.Reject}
	case ExprAs:
		operands = []ExpressionHandle{e.Expr}
	case ExprCompose:
		operands = e.Components
		if !v.isValidTypeHandle(e.Type) {
			v.addErrorInExpression(handle, "compose type %d out of range", e.Type)
		}
	case ExprZeroValue:
		if !v.isValidTypeHandle(e.Type) {
			v.addErrorInExpression(handle, "zero value type %d out of range", e.Type)
		}
	case ExprGlobalVariable:
		if int(e.Variable) >= len(v.module.GlobalVariables) {
			v.addErrorInExpression(handle, "global variable %d out of range", e.Variable)
		}
	case ExprLocalVariable:
		if int(e.Variable) >= len(v.function.LocalVars) {
			v.addErrorInExpression(handle, "local variable %d out of range", e.Variable)
		}
	case ExprFunctionArgument:
		if int(e.Index) >= len(v.function.Arguments) {
			v.addErrorInExpression(handle, "argument %d out of range", e.Index)
		}
	case ExprConstant:
		if int(e.Constant) >= len(v.module.Constants) {
			v.addErrorInExpression(handle, "constant %d out of range", e.Constant)
		}
	}
	for _, op := range operands {
		if op >= handle {
			v.addErrorInExpression(handle, "operand %d must precede the expression", op)
		}
	}
}

// validateBlock checks the statements of a block.
func (v *Validator) validateBlock(block Block) {
	for i := range block {
		v.validateStatement(block[i].Kind)
	}
}

func (v *Validator) validateStatement(kind StatementKind) {
	switch s := kind.(type) {
	case StmtEmit:
		if s.Range.Start > s.Range.End || !v.isValidExpressionHandle(s.Range.End-1) && s.Range.End != s.Range.Start {
			v.addErrorInFunction("emit range [%d, %d) out of range", s.Range.Start, s.Range.End)
		}
	case StmtBlock:
		v.validateBlock(s.Block)
	case StmtIf:
		v.checkExpression(s.Condition, "if condition")
		v.validateBlock(s.Accept)
		v.validateBlock(s.Reject)
	case StmtLoop:
		v.validateBlock(s.Body)
		v.validateBlock(s.Continuing)
		if s.BreakIf != nil {
			v.checkExpression(*s.BreakIf, "break-if condition")
		}
	case StmtReturn:
		if s.Value != nil {
			v.checkExpression(*s.Value, "return value")
		}
	case StmtStore:
		v.checkExpression(s.Pointer, "store pointer")
		v.checkExpression(s.Value, "store value")
	case StmtBreak, StmtContinue:
	default:
		v.addErrorInFunction("unknown statement %T", kind)
	}
}

// validateEntryPoints checks all entry points.
func (v *Validator) validateEntryPoints() {
	for _, ep := range v.module.EntryPoints {
		if !v.isValidFunctionHandle(ep.Function) {
			v.addError("entry point %q: function %d out of range", ep.Name, ep.Function)
			continue
		}
		if ep.Stage == StageCompute {
			for i, size := range ep.Workgroup {
				if size == 0 {
					v.addError("entry point %q: workgroup size dimension %d is zero", ep.Name, i)
				}
			}
		}
	}
}

func (v *Validator) checkExpression(handle ExpressionHandle, what string) {
	if !v.isValidExpressionHandle(handle) {
		v.addErrorInFunction("%s expression %d out of range", what, handle)
	}
}

func (v *Validator) isValidTypeHandle(handle TypeHandle) bool {
	return int(handle) < len(v.module.Types)
}

func (v *Validator) isValidFunctionHandle(handle FunctionHandle) bool {
	return int(handle) < len(v.module.Functions)
}

func (v *Validator) isValidExpressionHandle(handle ExpressionHandle) bool {
	return v.function != nil && int(handle) < len(v.function.Expressions)
}

func (v *Validator) addError(format string, args ...any) {
	v.errs = multierr.Append(v.errs, ValidationError{Message: fmt.Sprintf(format, args...)})
}

func (v *Validator) addErrorInFunction(format string, args ...any) {
	v.errs = multierr.Append(v.errs, ValidationError{
		Message:  fmt.Sprintf(format, args...),
		Function: v.functionName,
	})
}

func (v *Validator) addErrorInExpression(handle ExpressionHandle, format string, args ...any) {
	v.errs = multierr.Append(v.errs, ValidationError{
		Message:    fmt.Sprintf(format, args...),
		Function:   v.functionName,
		Expression: &handle,
	})
}

func validScalarWidth(width uint8) bool {
	return width == 1 || width == 2 || width == 4 || width == 8
}

func validVectorSize(size VectorSize) bool {
	return size == Vec2 || size == Vec3 || size == Vec4
}
