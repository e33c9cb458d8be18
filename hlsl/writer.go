// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/rawbuf/ir"
)

// indentString is one level of indentation in generated code.
const indentString = "    "

// nameKey identifies an IR entity for name lookup.
type nameKey struct {
	kind    nameKeyKind
	handle1 uint32
	handle2 uint32
}

type nameKeyKind uint8

const (
	nameKeyType nameKeyKind = iota
	nameKeyStructMember
	nameKeyConstant
	nameKeyGlobalVariable
	nameKeyFunction
	nameKeyFunctionArgument
	nameKeyEntryPoint
)

// Writer generates HLSL source code from IR.
type Writer struct {
	module  *ir.Module
	options *Options
	logger  *slog.Logger

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	// Name management
	names     map[nameKey]string
	namer     *namer
	typeNames map[ir.TypeHandle]string

	// Function context (set during function writing)
	currentFunction   *ir.Function
	currentFuncHandle ir.FunctionHandle
	expressionTypes   []ir.TypeResolution
	localNames        map[uint32]string
	namedExpressions  map[ir.ExpressionHandle]string

	// accessChain is the byte offset path, from the buffer base, of the
	// storage value currently being loaded or stored.
	accessChain  []subAccess
	storageDepth int

	// Output tracking
	entryPointNames  map[string]string
	registerBindings map[string]string
	storageAccesses  int
}

// newWriter creates a new HLSL writer.
func newWriter(module *ir.Module, options *Options) *Writer {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{
		module:           module,
		options:          options,
		logger:           logger,
		names:            make(map[nameKey]string),
		namer:            newNamer(),
		typeNames:        make(map[ir.TypeHandle]string),
		entryPointNames:  make(map[string]string),
		registerBindings: make(map[string]string),
	}
}

// String returns the generated HLSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeModule generates HLSL code for the entire module.
func (w *Writer) writeModule() error {
	entryPoints, err := w.selectEntryPoints()
	if err != nil {
		return err
	}

	w.registerNames()

	if err := w.writeTypes(); err != nil {
		return err
	}
	if err := w.writeConstants(); err != nil {
		return err
	}
	if err := w.writeGlobalVariables(); err != nil {
		return err
	}
	if err := w.writeFunctions(); err != nil {
		return err
	}
	for _, epIdx := range entryPoints {
		if err := w.writeEntryPoint(epIdx); err != nil {
			return fmt.Errorf("entry point %q: %w", w.module.EntryPoints[epIdx].Name, err)
		}
	}
	return nil
}

// selectEntryPoints returns the indices of the entry points to write.
func (w *Writer) selectEntryPoints() ([]int, error) {
	var selected []int
	for i := range w.module.EntryPoints {
		if w.options.EntryPoint == "" || w.module.EntryPoints[i].Name == w.options.EntryPoint {
			selected = append(selected, i)
		}
	}
	if w.options.EntryPoint != "" && len(selected) == 0 {
		return nil, NewError(ErrEntryPointNotFound, fmt.Sprintf("entry point %q not found", w.options.EntryPoint))
	}
	return selected, nil
}

// registerNames assigns unique names to all IR entities.
//
//nolint:gocognit // Name registration requires handling all IR entity types
func (w *Writer) registerNames() {
	for handle, typ := range w.module.Types {
		st, ok := typ.Inner.(ir.StructType)
		if !ok {
			continue
		}
		baseName := typ.Name
		if baseName == "" {
			baseName = fmt.Sprintf("type_%d", handle)
		}
		name := w.namer.call(baseName)
		w.names[nameKey{kind: nameKeyType, handle1: uint32(handle)}] = name
		w.typeNames[ir.TypeHandle(handle)] = name

		// Members live in their own scope.
		members := newNamer()
		for memberIdx, member := range st.Members {
			memberName := member.Name
			if memberName == "" {
				memberName = fmt.Sprintf("member_%d", memberIdx)
			}
			w.names[nameKey{kind: nameKeyStructMember, handle1: uint32(handle), handle2: uint32(memberIdx)}] = members.call(memberName)
		}
	}

	for handle, constant := range w.module.Constants {
		baseName := constant.Name
		if baseName == "" {
			baseName = fmt.Sprintf("const_%d", handle)
		}
		w.names[nameKey{kind: nameKeyConstant, handle1: uint32(handle)}] = w.namer.call(baseName)
	}

	for handle, global := range w.module.GlobalVariables {
		baseName := global.Name
		if baseName == "" {
			baseName = fmt.Sprintf("global_%d", handle)
		}
		w.names[nameKey{kind: nameKeyGlobalVariable, handle1: uint32(handle)}] = w.namer.call(baseName)
	}

	for epIdx, ep := range w.module.EntryPoints {
		name := w.namer.call(ep.Name)
		w.names[nameKey{kind: nameKeyEntryPoint, handle1: uint32(epIdx)}] = name
		w.entryPointNames[ep.Name] = name
	}

	for handle := range w.module.Functions {
		fn := &w.module.Functions[handle]
		if !w.isEntryPointFunction(ir.FunctionHandle(handle)) {
			baseName := fn.Name
			if baseName == "" {
				baseName = fmt.Sprintf("function_%d", handle)
			}
			w.names[nameKey{kind: nameKeyFunction, handle1: uint32(handle)}] = w.namer.call(baseName)
		}
		for argIdx, arg := range fn.Arguments {
			baseName := arg.Name
			if baseName == "" {
				baseName = fmt.Sprintf("arg_%d", argIdx)
			}
			key := nameKey{kind: nameKeyFunctionArgument, handle1: uint32(handle), handle2: uint32(argIdx)}
			w.names[key] = w.namer.call(baseName)
		}
	}
}

// beginFunction makes fn the function whose expressions are being written.
// Expression types come from fn.ExpressionTypes, or are resolved here when
// the table is missing; the module itself is never modified.
func (w *Writer) beginFunction(handle ir.FunctionHandle) error {
	if int(handle) >= len(w.module.Functions) {
		return NewError(ErrInvalidModule, fmt.Sprintf("invalid function handle: %d", handle))
	}
	fn := &w.module.Functions[handle]

	types := fn.ExpressionTypes
	if len(types) != len(fn.Expressions) {
		types = make([]ir.TypeResolution, len(fn.Expressions))
		for i := range fn.Expressions {
			res, err := ir.ResolveExpressionType(w.module, fn, ir.ExpressionHandle(i))
			if err != nil {
				return NewError(ErrInvalidModule, fmt.Sprintf("function %q expression %d: %v", fn.Name, i, err))
			}
			types[i] = res
		}
	}

	w.currentFunction = fn
	w.currentFuncHandle = handle
	w.expressionTypes = types
	w.localNames = make(map[uint32]string)
	w.namedExpressions = make(map[ir.ExpressionHandle]string)
	w.accessChain = w.accessChain[:0]
	return nil
}

// endFunction clears the function context.
func (w *Writer) endFunction() {
	w.currentFunction = nil
	w.expressionTypes = nil
	w.localNames = nil
	w.namedExpressions = nil
}

// renderScratch runs fn against an empty output buffer and appends what it
// wrote only when it succeeds, so a failed statement leaves no partial text.
func (w *Writer) renderScratch(fn func() error) error {
	saved := w.out
	accesses := w.storageAccesses
	w.out = strings.Builder{}

	err := fn()

	text := w.out.String()
	w.out = saved
	if err != nil {
		w.storageAccesses = accesses
		return err
	}
	w.out.WriteString(text)
	return nil
}

// writeLine writes line indented, or a bare newline when line is empty.
func (w *Writer) writeLine(line string) {
	if line != "" {
		w.writeIndent()
		w.out.WriteString(line)
	}
	w.out.WriteByte('\n')
}

// writeLinef formats an indented line.
func (w *Writer) writeLinef(format string, args ...any) {
	w.writeIndent()
	fmt.Fprintf(&w.out, format, args...)
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *Writer) writeIndent() {
	w.writeIndentAt(w.indent)
}

// writeIndentAt writes the indentation of the given level.
func (w *Writer) writeIndentAt(level int) {
	for i := 0; i < level; i++ {
		w.out.WriteString(indentString)
	}
}

// pushIndent increases the indentation level.
func (w *Writer) pushIndent() {
	w.indent++
}

// popIndent decreases the indentation level.
func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}
