package ir

// Statement represents a statement in the IR.
// Statements have side effects and structured control flow, but do not produce values.
// The function body is represented as a tree of statements, with references to expressions.
type Statement struct {
	Kind StatementKind
}

// StatementKind represents the different kinds of statements.
type StatementKind interface {
	statementKind()
}

// Block represents a sequence of statements executed in order.
type Block []Statement

// Range represents a range of expression handles for Emit statements.
type Range struct {
	Start ExpressionHandle
	End   ExpressionHandle // Exclusive
}

// StmtEmit emits a range of expressions, making them visible to all statements that follow.
type StmtEmit struct {
	Range Range
}

func (StmtEmit) statementKind() {}

// StmtBlock contains a sequence of statements to be executed in order.
type StmtBlock struct {
	Block Block
}

func (StmtBlock) statementKind() {}

// StmtIf conditionally executes one of two blocks based on the condition value.
type StmtIf struct {
	Condition ExpressionHandle // Must be a bool expression
	Accept    Block
	Reject    Block
}

func (StmtIf) statementKind() {}

// StmtLoop executes a block repeatedly.
// Each iteration executes the Body block, followed by the Continuing block.
// Break or Return statements exit the loop.
type StmtLoop struct {
	Body       Block
	Continuing Block
	BreakIf    *ExpressionHandle // Optional break-if expression evaluated after continuing
}

func (StmtLoop) statementKind() {}

// StmtBreak exits the innermost enclosing Loop.
type StmtBreak struct{}

func (StmtBreak) statementKind() {}

// StmtContinue skips to the continuing block of the innermost enclosing Loop.
type StmtContinue struct{}

func (StmtContinue) statementKind() {}

// StmtReturn returns from the function, possibly with a value.
type StmtReturn struct {
	Value *ExpressionHandle
}

func (StmtReturn) statementKind() {}

// StmtStore writes a value through a pointer.
type StmtStore struct {
	Pointer ExpressionHandle
	Value   ExpressionHandle
}

func (StmtStore) statementKind() {}
