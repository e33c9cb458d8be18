// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/rawbuf/ir"
)

// writeBlock writes a block of statements.
func (w *Writer) writeBlock(block ir.Block) error {
	for i := range block {
		if err := w.writeStatement(block[i].Kind); err != nil {
			return err
		}
	}
	return nil
}

// writeStatement dispatches to the appropriate statement writer.
func (w *Writer) writeStatement(kind ir.StatementKind) error {
	switch s := kind.(type) {
	case ir.StmtEmit:
		return w.writeEmitStatement(s)
	case ir.StmtBlock:
		return w.writeBlockStatement(s)
	case ir.StmtIf:
		return w.writeIfStatement(s)
	case ir.StmtLoop:
		return w.writeLoopStatement(s)
	case ir.StmtBreak:
		w.writeLine("break;")
		return nil
	case ir.StmtContinue:
		w.writeLine("continue;")
		return nil
	case ir.StmtReturn:
		return w.writeReturnStatement(s)
	case ir.StmtStore:
		return w.writeStoreStatement(s)
	default:
		return NewError(ErrUnsupportedFeature, fmt.Sprintf("unsupported statement type: %T", kind))
	}
}

// writeEmitStatement bakes each expression of the range into a temporary
// named _eN, so later statements see the value computed at this point.
func (w *Writer) writeEmitStatement(s ir.StmtEmit) error {
	for handle := s.Range.Start; handle < s.Range.End; handle++ {
		if err := w.writeEmittedExpression(handle); err != nil {
			return fmt.Errorf("expression %d: %w", handle, err)
		}
	}
	return nil
}

// writeEmittedExpression writes an emitted expression as a variable declaration.
// References are not values in HLSL and are never baked.
func (w *Writer) writeEmittedExpression(handle ir.ExpressionHandle) error {
	if _, ok := w.namedExpressions[handle]; ok {
		return nil
	}

	inner := w.getExpressionTypeInner(handle)
	switch inner.(type) {
	case nil:
		return internalErrorf("no type for emitted expression %d", handle)
	case ir.PointerType, ir.ValuePointerType:
		return nil
	}

	// The name is recorded after the initializer is written, otherwise the
	// initializer would refer to itself.
	name := fmt.Sprintf("%s%d", emitTempPrefix, handle)
	typeName, arraySuffix := w.expressionTypeName(handle)
	err := w.renderScratch(func() error {
		w.writeIndent()
		fmt.Fprintf(&w.out, "%s %s%s = ", typeName, name, arraySuffix)
		if err := w.writeExpression(handle); err != nil {
			return err
		}
		w.out.WriteString(";\n")
		return nil
	})
	if err != nil {
		return err
	}

	w.namedExpressions[handle] = name
	return nil
}

// expressionTypeName returns the HLSL type of an expression, preferring the
// declared name of a type in the arena.
func (w *Writer) expressionTypeName(handle ir.ExpressionHandle) (typeName, arraySuffix string) {
	res, err := w.expressionResolution(handle)
	if err == nil && res.Handle != nil {
		return w.getTypeNameWithArraySuffix(*res.Handle)
	}
	return w.innerTypeNameWithArraySuffix(w.getExpressionTypeInner(handle))
}

// writeBlockStatement writes a nested block.
func (w *Writer) writeBlockStatement(s ir.StmtBlock) error {
	w.writeLine("{")
	w.pushIndent()
	if err := w.writeBlock(s.Block); err != nil {
		w.popIndent()
		return err
	}
	w.popIndent()
	w.writeLine("}")
	return nil
}

// writeIfStatement writes an if/else statement.
func (w *Writer) writeIfStatement(s ir.StmtIf) error {
	w.writeIndent()
	w.out.WriteString("if (")
	if err := w.writeExpression(s.Condition); err != nil {
		return fmt.Errorf("if condition: %w", err)
	}
	w.out.WriteString(") {\n")

	w.pushIndent()
	if err := w.writeBlock(s.Accept); err != nil {
		w.popIndent()
		return fmt.Errorf("if accept: %w", err)
	}
	w.popIndent()

	if len(s.Reject) > 0 {
		w.writeLine("} else {")
		w.pushIndent()
		if err := w.writeBlock(s.Reject); err != nil {
			w.popIndent()
			return fmt.Errorf("if reject: %w", err)
		}
		w.popIndent()
	}

	w.writeLine("}")
	return nil
}

// writeLoopStatement writes a loop. A continuing block runs before every
// iteration except the first, guarded by a loop_init flag, so that
// continue statements in the body still reach it.
//
//	bool loop_init = true;
//	while(true) {
//	    if (!loop_init) {
//	        <continuing>
//	        if (<break_if>) { break; }
//	    }
//	    loop_init = false;
//	    <body>
//	}
func (w *Writer) writeLoopStatement(s ir.StmtLoop) error {
	guarded := len(s.Continuing) > 0 || s.BreakIf != nil
	var initName string
	if guarded {
		initName = w.namer.call("loop_init")
		w.writeLinef("bool %s = true;", initName)
	}

	w.writeLine("while(true) {")
	w.pushIndent()
	if guarded {
		if err := w.writeLoopContinuing(s, initName); err != nil {
			w.popIndent()
			return err
		}
	}
	if err := w.writeBlock(s.Body); err != nil {
		w.popIndent()
		return fmt.Errorf("loop body: %w", err)
	}
	w.popIndent()
	w.writeLine("}")
	return nil
}

func (w *Writer) writeLoopContinuing(s ir.StmtLoop, initName string) error {
	w.writeLinef("if (!%s) {", initName)
	w.pushIndent()
	if err := w.writeBlock(s.Continuing); err != nil {
		w.popIndent()
		return fmt.Errorf("loop continuing: %w", err)
	}
	if s.BreakIf != nil {
		w.writeIndent()
		w.out.WriteString("if (")
		if err := w.writeExpression(*s.BreakIf); err != nil {
			w.popIndent()
			return fmt.Errorf("loop break-if: %w", err)
		}
		w.out.WriteString(") {\n")
		w.writeIndentAt(w.indent + 1)
		w.out.WriteString("break;\n")
		w.writeLine("}")
	}
	w.popIndent()
	w.writeLine("}")
	w.writeLinef("%s = false;", initName)
	return nil
}

// writeReturnStatement writes a return statement.
func (w *Writer) writeReturnStatement(s ir.StmtReturn) error {
	if s.Value == nil {
		w.writeLine("return;")
		return nil
	}
	w.writeIndent()
	w.out.WriteString("return ")
	if err := w.writeExpression(*s.Value); err != nil {
		return fmt.Errorf("return value: %w", err)
	}
	w.out.WriteString(";\n")
	return nil
}

// writeStoreStatement writes a store through a pointer. Stores into storage
// buffers are decomposed into primitive Store calls and either written
// completely or not at all.
func (w *Writer) writeStoreStatement(s ir.StmtStore) error {
	if w.isStoragePointer(s.Pointer) {
		return w.renderScratch(func() error {
			return w.writeStorageStoreStatement(s)
		})
	}

	w.writeIndent()
	if err := w.writeExpression(s.Pointer); err != nil {
		return fmt.Errorf("store pointer: %w", err)
	}
	w.out.WriteString(" = ")
	if err := w.writeExpression(s.Value); err != nil {
		return fmt.Errorf("store value: %w", err)
	}
	w.out.WriteString(";\n")
	return nil
}

// writeFunctionBody writes the local variables and statements of fn.
func (w *Writer) writeFunctionBody(fn *ir.Function) error {
	for localIdx, local := range fn.LocalVars {
		baseName := local.Name
		if baseName == "" {
			baseName = fmt.Sprintf("local_%d", localIdx)
		}
		localName := w.namer.call(baseName)
		w.localNames[uint32(localIdx)] = localName
		// HLSL arrays: type name[size], not type[size] name
		localType, arraySuffix := w.getTypeNameWithArraySuffix(local.Type)

		if local.Init != nil {
			w.writeIndent()
			fmt.Fprintf(&w.out, "%s %s%s = ", localType, localName, arraySuffix)
			if err := w.writeExpression(*local.Init); err != nil {
				return fmt.Errorf("local %q init: %w", localName, err)
			}
			w.out.WriteString(";\n")
		} else {
			w.writeLinef("%s %s%s;", localType, localName, arraySuffix)
		}
	}

	if len(fn.LocalVars) > 0 {
		w.writeLine("")
	}

	return w.writeBlock(fn.Body)
}
