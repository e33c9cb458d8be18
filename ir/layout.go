package ir

// ResolutionInner extracts the TypeInner from a TypeResolution.
// Returns nil for an out-of-range handle or an empty resolution.
func ResolutionInner(module *Module, res TypeResolution) TypeInner {
	if res.Handle != nil {
		if int(*res.Handle) >= len(module.Types) {
			return nil
		}
		return module.Types[*res.Handle].Inner
	}
	return res.Value
}

// PointeeInner returns the type a pointer points to. Non-pointer types are
// returned unchanged, which lets callers treat a reference and its value
// uniformly.
func PointeeInner(module *Module, inner TypeInner) TypeInner {
	switch t := inner.(type) {
	case PointerType:
		if int(t.Base) >= len(module.Types) {
			return nil
		}
		return module.Types[t.Base].Inner
	case ValuePointerType:
		if t.Size == nil {
			return t.Scalar
		}
		return VectorType{Size: *t.Size, Scalar: t.Scalar}
	default:
		return inner
	}
}

// TypeSpan returns the number of bytes a value of the given type occupies in
// a host-shareable buffer. Arrays and structs report the stride and span
// computed by the layout pass; runtime-sized arrays report 0.
//
// Matrices are laid out as tightly packed rows (Rows × Columns × Width),
// matching the row-major representation storage buffers use.
func TypeSpan(module *Module, inner TypeInner) uint32 {
	switch t := inner.(type) {
	case ScalarType:
		return uint32(t.Width)
	case VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width)
	case MatrixType:
		return uint32(t.Columns) * uint32(t.Rows) * uint32(t.Scalar.Width)
	case ArrayType:
		if t.Size.Constant == nil {
			return 0
		}
		return t.Stride * *t.Size.Constant
	case StructType:
		return t.Span
	case AtomicType:
		return uint32(t.Scalar.Width)
	case ValuePointerType:
		size := uint32(1)
		if t.Size != nil {
			size = uint32(*t.Size)
		}
		return size * uint32(t.Scalar.Width)
	default:
		return 0
	}
}

// TypeHandleSpan is TypeSpan for a type in the module arena.
func TypeHandleSpan(module *Module, handle TypeHandle) uint32 {
	if int(handle) >= len(module.Types) {
		return 0
	}
	return TypeSpan(module, module.Types[handle].Inner)
}
