package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeRegistry builds a type arena in which structurally identical types
// share one handle. Structs are identified by name as well as layout, so two
// named structs with the same members stay distinct.
type TypeRegistry struct {
	types   []Type
	typeMap map[string]TypeHandle
	keyBuf  []byte // reusable buffer for scalar keys
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:   make([]Type, 0, 16),
		typeMap: make(map[string]TypeHandle, 16),
		keyBuf:  make([]byte, 0, 32),
	}
}

// GetOrCreate returns the handle of an identical type registered earlier,
// or appends the type to the arena.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) TypeHandle {
	key := r.typeKey(name, inner)
	if handle, exists := r.typeMap[key]; exists {
		return handle
	}

	handle := TypeHandle(len(r.types))
	r.types = append(r.types, Type{Name: name, Inner: inner})
	r.typeMap[key] = handle
	return handle
}

// Types returns the arena in registration order.
func (r *TypeRegistry) Types() []Type {
	return r.types
}

// Lookup finds a type by its handle.
func (r *TypeRegistry) Lookup(handle TypeHandle) (Type, bool) {
	if int(handle) >= len(r.types) {
		return Type{}, false
	}
	return r.types[handle], true
}

// Count returns the number of unique types registered.
func (r *TypeRegistry) Count() int {
	return len(r.types)
}

func (r *TypeRegistry) typeKey(name string, inner TypeInner) string {
	if st, ok := inner.(StructType); ok {
		var b strings.Builder
		fmt.Fprintf(&b, "struct:%s:%d:%d", name, len(st.Members), st.Span)
		for _, member := range st.Members {
			fmt.Fprintf(&b, ":m(%s,%d,%d)", member.Name, member.Type, member.Offset)
		}
		return b.String()
	}
	return r.normalizeType(inner)
}

// normalizeType creates a key for a non-struct type based on its structure.
func (r *TypeRegistry) normalizeType(inner TypeInner) string {
	switch t := inner.(type) {
	case ScalarType:
		return r.scalarKey("scalar:", t)

	case VectorType:
		return "vec:" + strconv.FormatUint(uint64(t.Size), 10) + ":" + r.scalarKey("", t.Scalar)

	case MatrixType:
		return "mat:" + strconv.FormatUint(uint64(t.Columns), 10) + "x" +
			strconv.FormatUint(uint64(t.Rows), 10) + ":" + r.scalarKey("", t.Scalar)

	case ArrayType:
		sizeKey := "runtime"
		if t.Size.Constant != nil {
			sizeKey = strconv.FormatUint(uint64(*t.Size.Constant), 10)
		}
		return "array:" + strconv.FormatUint(uint64(t.Base), 10) + ":" + sizeKey + ":" +
			strconv.FormatUint(uint64(t.Stride), 10)

	case PointerType:
		return "ptr:" + strconv.FormatUint(uint64(t.Base), 10) + ":" + strconv.FormatUint(uint64(t.Space), 10)

	case ValuePointerType:
		size := "scalar"
		if t.Size != nil {
			size = strconv.FormatUint(uint64(*t.Size), 10)
		}
		return "vptr:" + size + ":" + strconv.FormatUint(uint64(t.Space), 10) + ":" + r.scalarKey("", t.Scalar)

	case AtomicType:
		return r.scalarKey("atomic:", t.Scalar)

	default:
		return fmt.Sprintf("unknown:%T", inner)
	}
}

func (r *TypeRegistry) scalarKey(prefix string, s ScalarType) string {
	b := append(r.keyBuf[:0], prefix...)
	b = strconv.AppendUint(b, uint64(s.Kind), 10)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.Width), 10)
	r.keyBuf = b
	return string(b)
}
