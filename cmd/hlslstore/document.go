package main

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/gogpu/rawbuf/ir"
)

// Document describes storage buffer layouts and the accesses a compute
// shader makes to them.
//
//	{
//	  "workgroup": [64, 1, 1],
//	  "types": [
//	    {"name": "Pair", "kind": "struct", "span": 16, "members": [
//	      {"name": "a", "type": "u32", "offset": 0},
//	      {"name": "b", "type": "vec2f", "offset": 8}]},
//	    {"name": "vec2f", "kind": "vector", "scalar": "f32", "size": 2},
//	    {"name": "Pairs", "kind": "array", "base": "Pair", "stride": 16}
//	  ],
//	  "buffers": [{"name": "src", "type": "Pairs", "group": 0, "binding": 0}],
//	  "ops": [{"op": "copy", "from": {"buffer": "src", "path": ["id.x"]},
//	                         "to": {"buffer": "src", "path": ["0"]}}]
//	}
//
// Types may be listed in any order. Path elements are struct member names,
// constant indices, or id.x, id.y and id.z for the global invocation id.
type Document struct {
	Entry     string       `json:"entry"`
	Workgroup [3]uint32    `json:"workgroup"`
	Types     []TypeDecl   `json:"types"`
	Buffers   []BufferDecl `json:"buffers"`
	Ops       []Operation  `json:"ops"`
}

// TypeDecl declares a named type. Kind is scalar, vector, matrix, array or
// struct; an array without a length is runtime-sized.
type TypeDecl struct {
	Name    string       `json:"name"`
	Kind    string       `json:"kind"`
	Scalar  string       `json:"scalar,omitempty"`
	Size    uint8        `json:"size,omitempty"`
	Columns uint8        `json:"columns,omitempty"`
	Rows    uint8        `json:"rows,omitempty"`
	Base    string       `json:"base,omitempty"`
	Length  uint32       `json:"length,omitempty"`
	Stride  uint32       `json:"stride,omitempty"`
	Span    uint32       `json:"span,omitempty"`
	Members []MemberDecl `json:"members,omitempty"`
}

// MemberDecl is a struct member at a fixed byte offset.
type MemberDecl struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset uint32 `json:"offset"`
}

// BufferDecl declares a read-write storage buffer.
type BufferDecl struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Group   uint32 `json:"group"`
	Binding uint32 `json:"binding"`
}

// Operation is one access: load reads From, store writes zero to To, and
// copy reads From and writes the value to To.
type Operation struct {
	Op   string `json:"op"`
	From *Place `json:"from,omitempty"`
	To   *Place `json:"to,omitempty"`
}

// Place is a location inside a buffer.
type Place struct {
	Buffer string   `json:"buffer"`
	Path   []string `json:"path,omitempty"`
}

const defaultEntryPoint = "main"

var scalarNames = map[string]ir.ScalarType{
	"f32":  {Kind: ir.ScalarFloat, Width: 4},
	"f16":  {Kind: ir.ScalarFloat, Width: 2},
	"i32":  {Kind: ir.ScalarSint, Width: 4},
	"u32":  {Kind: ir.ScalarUint, Width: 4},
	"bool": {Kind: ir.ScalarBool, Width: 1},
}

var idComponents = map[string]uint32{"id.x": 0, "id.y": 1, "id.z": 2}

// ParseDocument decodes a layout document. Unknown fields are rejected.
func ParseDocument(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	return &doc, nil
}

// Module lowers the document to an IR module with a single compute entry
// point whose only argument is the global invocation id.
func (d *Document) Module() (*ir.Module, error) {
	b := &moduleBuilder{
		doc:      d,
		registry: ir.NewTypeRegistry(),
		decls:    make(map[string]*TypeDecl, len(d.Types)),
		handles:  make(map[string]ir.TypeHandle, len(d.Types)),
		buffers:  make(map[string]ir.GlobalVariableHandle, len(d.Buffers)),
		idParts:  make(map[uint32]ir.ExpressionHandle),
	}
	return b.build()
}

type moduleBuilder struct {
	doc      *Document
	registry *ir.TypeRegistry
	decls    map[string]*TypeDecl
	handles  map[string]ir.TypeHandle
	visiting map[string]bool

	module  *ir.Module
	buffers map[string]ir.GlobalVariableHandle
	fn      ir.Function
	idParts map[uint32]ir.ExpressionHandle
}

func (b *moduleBuilder) build() (*ir.Module, error) {
	var errs error
	for i := range b.doc.Types {
		decl := &b.doc.Types[i]
		if _, ok := scalarNames[decl.Name]; ok || decl.Name == "" {
			errs = multierr.Append(errs, errors.Errorf("type %d: invalid name %q", i, decl.Name))
			continue
		}
		if _, dup := b.decls[decl.Name]; dup {
			errs = multierr.Append(errs, errors.Errorf("type %q declared twice", decl.Name))
			continue
		}
		b.decls[decl.Name] = decl
	}
	if errs != nil {
		return nil, errs
	}

	b.visiting = make(map[string]bool)
	for i := range b.doc.Types {
		if _, err := b.typeHandle(b.doc.Types[i].Name); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}

	idType := b.registry.GetOrCreate("", ir.VectorType{Size: ir.Vec3, Scalar: scalarNames["u32"]})

	b.module = &ir.Module{}
	for _, buf := range b.doc.Buffers {
		if _, dup := b.buffers[buf.Name]; dup {
			errs = multierr.Append(errs, errors.Errorf("buffer %q declared twice", buf.Name))
			continue
		}
		ty, err := b.typeHandle(buf.Type)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "buffer %q", buf.Name))
			continue
		}
		b.buffers[buf.Name] = ir.GlobalVariableHandle(len(b.module.GlobalVariables))
		b.module.GlobalVariables = append(b.module.GlobalVariables, ir.GlobalVariable{
			Name:    buf.Name,
			Space:   ir.SpaceStorage,
			Binding: &ir.ResourceBinding{Group: buf.Group, Binding: buf.Binding},
			Type:    ty,
		})
	}
	if errs != nil {
		return nil, errs
	}

	entry := b.doc.Entry
	if entry == "" {
		entry = defaultEntryPoint
	}
	var idBinding ir.Binding = ir.BuiltinBinding{Builtin: ir.BuiltinGlobalInvocationID}
	b.fn = ir.Function{
		Name:      entry,
		Arguments: []ir.FunctionArgument{{Name: "id", Type: idType, Binding: &idBinding}},
	}
	b.add(ir.ExprFunctionArgument{Index: 0})

	for i, op := range b.doc.Ops {
		if err := b.lowerOp(op); err != nil {
			return nil, errors.Wrapf(err, "op %d (%s)", i, op.Op)
		}
	}
	b.fn.Body = append(b.fn.Body, ir.Statement{Kind: ir.StmtReturn{}})

	workgroup := b.doc.Workgroup
	for i := range workgroup {
		if workgroup[i] == 0 {
			workgroup[i] = 1
		}
	}
	b.module.Types = b.registry.Types()
	b.module.Functions = []ir.Function{b.fn}
	b.module.EntryPoints = []ir.EntryPoint{{
		Name:      entry,
		Stage:     ir.StageCompute,
		Function:  0,
		Workgroup: workgroup,
	}}
	return b.module, nil
}

// typeHandle registers the named type and everything it refers to.
func (b *moduleBuilder) typeHandle(name string) (ir.TypeHandle, error) {
	if scalar, ok := scalarNames[name]; ok {
		return b.registry.GetOrCreate("", scalar), nil
	}
	if h, ok := b.handles[name]; ok {
		return h, nil
	}
	decl, ok := b.decls[name]
	if !ok {
		return 0, errors.Errorf("unknown type %q", name)
	}
	if b.visiting[name] {
		return 0, errors.Errorf("type %q refers to itself", name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	inner, err := b.typeInner(decl)
	if err != nil {
		return 0, errors.Wrapf(err, "type %q", name)
	}
	regName := ""
	if _, ok := inner.(ir.StructType); ok {
		regName = name
	}
	h := b.registry.GetOrCreate(regName, inner)
	b.handles[name] = h
	return h, nil
}

func (b *moduleBuilder) typeInner(decl *TypeDecl) (ir.TypeInner, error) {
	switch decl.Kind {
	case "scalar":
		scalar, ok := scalarNames[decl.Scalar]
		if !ok {
			return nil, errors.Errorf("unknown scalar %q", decl.Scalar)
		}
		return scalar, nil

	case "vector":
		scalar, ok := scalarNames[decl.Scalar]
		if !ok {
			return nil, errors.Errorf("unknown scalar %q", decl.Scalar)
		}
		return ir.VectorType{Size: ir.VectorSize(decl.Size), Scalar: scalar}, nil

	case "matrix":
		scalar, ok := scalarNames[decl.Scalar]
		if !ok {
			return nil, errors.Errorf("unknown scalar %q", decl.Scalar)
		}
		return ir.MatrixType{Columns: ir.VectorSize(decl.Columns), Rows: ir.VectorSize(decl.Rows), Scalar: scalar}, nil

	case "array":
		base, err := b.typeHandle(decl.Base)
		if err != nil {
			return nil, err
		}
		arr := ir.ArrayType{Base: base, Stride: decl.Stride}
		if decl.Length != 0 {
			length := decl.Length
			arr.Size.Constant = &length
		}
		return arr, nil

	case "struct":
		st := ir.StructType{Span: decl.Span, Members: make([]ir.StructMember, len(decl.Members))}
		seen := make(map[string]struct{}, len(decl.Members))
		for i, m := range decl.Members {
			if _, dup := seen[m.Name]; dup {
				return nil, errors.Errorf("member %q declared twice", m.Name)
			}
			seen[m.Name] = struct{}{}
			ty, err := b.typeHandle(m.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "member %q", m.Name)
			}
			st.Members[i] = ir.StructMember{Name: m.Name, Type: ty, Offset: m.Offset}
		}
		return st, nil

	default:
		return nil, errors.Errorf("unknown kind %q", decl.Kind)
	}
}

func (b *moduleBuilder) lowerOp(op Operation) error {
	switch op.Op {
	case "load":
		if op.From == nil {
			return errors.New("load needs a from place")
		}
		ptr, _, err := b.place(op.From)
		if err != nil {
			return err
		}
		b.emit(b.add(ir.ExprLoad{Pointer: ptr}))

	case "store":
		if op.To == nil {
			return errors.New("store needs a to place")
		}
		ptr, ty, err := b.place(op.To)
		if err != nil {
			return err
		}
		zero := b.add(ir.ExprZeroValue{Type: ty})
		b.store(ptr, zero)

	case "copy":
		if op.From == nil || op.To == nil {
			return errors.New("copy needs from and to places")
		}
		src, srcType, err := b.place(op.From)
		if err != nil {
			return errors.Wrap(err, "from")
		}
		value := b.add(ir.ExprLoad{Pointer: src})
		b.emit(value)
		dst, dstType, err := b.place(op.To)
		if err != nil {
			return errors.Wrap(err, "to")
		}
		if srcType != dstType {
			return errors.Errorf("cannot copy %s into %s", b.typeName(srcType), b.typeName(dstType))
		}
		b.store(dst, value)

	default:
		return errors.Errorf("unknown op %q", op.Op)
	}
	return nil
}

// place returns a pointer to the location p names and the type stored there.
//
//nolint:gocognit // One case per path element shape
func (b *moduleBuilder) place(p *Place) (ir.ExpressionHandle, ir.TypeHandle, error) {
	global, ok := b.buffers[p.Buffer]
	if !ok {
		return 0, 0, errors.Errorf("unknown buffer %q", p.Buffer)
	}
	ptr := b.add(ir.ExprGlobalVariable{Variable: global})
	ty := b.module.GlobalVariables[global].Type

	for _, elem := range p.Path {
		typ, _ := b.registry.Lookup(ty)
		component, dynamic := idComponents[elem]
		index, indexErr := strconv.ParseUint(elem, 10, 32)

		switch inner := typ.Inner.(type) {
		case ir.ArrayType:
			switch {
			case dynamic:
				ptr = b.add(ir.ExprAccess{Base: ptr, Index: b.idPart(component)})
			case indexErr == nil:
				if inner.Size.Constant != nil && uint32(index) >= *inner.Size.Constant {
					return 0, 0, errors.Errorf("index %d out of bounds for length %d", index, *inner.Size.Constant)
				}
				ptr = b.add(ir.ExprAccessIndex{Base: ptr, Index: uint32(index)})
			default:
				return 0, 0, errors.Errorf("%q does not index an array", elem)
			}
			ty = inner.Base

		case ir.StructType:
			member := -1
			for i, m := range inner.Members {
				if m.Name == elem {
					member = i
					break
				}
			}
			if member < 0 {
				return 0, 0, errors.Errorf("%s has no member %q", b.typeName(ty), elem)
			}
			ptr = b.add(ir.ExprAccessIndex{Base: ptr, Index: uint32(member)})
			ty = inner.Members[member].Type

		case ir.VectorType:
			if indexErr != nil || index >= uint64(inner.Size) {
				return 0, 0, errors.Errorf("%q is not a component of %s", elem, b.typeName(ty))
			}
			ptr = b.add(ir.ExprAccessIndex{Base: ptr, Index: uint32(index)})
			ty = b.registry.GetOrCreate("", inner.Scalar)

		case ir.MatrixType:
			if indexErr != nil || index >= uint64(inner.Columns) {
				return 0, 0, errors.Errorf("%q is not a column of %s", elem, b.typeName(ty))
			}
			ptr = b.add(ir.ExprAccessIndex{Base: ptr, Index: uint32(index)})
			ty = b.registry.GetOrCreate("", ir.VectorType{Size: inner.Rows, Scalar: inner.Scalar})

		default:
			return 0, 0, errors.Errorf("cannot index %s with %q", b.typeName(ty), elem)
		}
	}
	return ptr, ty, nil
}

// idPart returns the emitted id component, creating it on first use.
func (b *moduleBuilder) idPart(component uint32) ir.ExpressionHandle {
	if h, ok := b.idParts[component]; ok {
		return h
	}
	h := b.add(ir.ExprAccessIndex{Base: 0, Index: component})
	b.emit(h)
	b.idParts[component] = h
	return h
}

func (b *moduleBuilder) add(kind ir.ExpressionKind) ir.ExpressionHandle {
	h := ir.ExpressionHandle(len(b.fn.Expressions))
	b.fn.Expressions = append(b.fn.Expressions, ir.Expression{Kind: kind})
	return h
}

func (b *moduleBuilder) emit(h ir.ExpressionHandle) {
	b.fn.Body = append(b.fn.Body, ir.Statement{Kind: ir.StmtEmit{Range: ir.Range{Start: h, End: h + 1}}})
}

func (b *moduleBuilder) store(ptr, value ir.ExpressionHandle) {
	b.fn.Body = append(b.fn.Body, ir.Statement{Kind: ir.StmtStore{Pointer: ptr, Value: value}})
}

// typeName names a type for error messages.
func (b *moduleBuilder) typeName(h ir.TypeHandle) string {
	for name, handle := range b.handles {
		if handle == h {
			return name
		}
	}
	typ, _ := b.registry.Lookup(h)
	switch t := typ.Inner.(type) {
	case ir.ScalarType:
		return scalarName(t)
	case ir.VectorType:
		return "vec" + strconv.Itoa(int(t.Size)) + "<" + scalarName(t.Scalar) + ">"
	}
	return "type " + strconv.Itoa(int(h))
}

func scalarName(s ir.ScalarType) string {
	for name, scalar := range scalarNames {
		if scalar == s {
			return name
		}
	}
	return s.Kind.String()
}
