package ir

import "github.com/weft-lang/weft/internal/diag"

// Expression wraps one node of the fixed variant set from §3. Every
// variant carries its own Span for diagnostics only (§9 "keep
// token-level spans on every AST node and propagate one span to every
// IR node produced by lowering"); spans never affect execution.
type Expression struct {
	Kind ExpressionKind
	Span diag.Span
}

// ExpressionKind is implemented by exactly the nine node kinds of §3
// (CacheRead is the tenth, emitted only by the cache extractor §4.6).
type ExpressionKind interface {
	expressionKind()
}

// Num is a numeric literal.
type Num struct {
	Value float64
}

func (Num) expressionKind() {}

// Param is a reference to a spindle parameter inside its body.
type Param struct {
	Name string
}

func (Param) expressionKind() {}

// Index reads a strand of Bundle at IndexExpr (a number literal, a
// field name, or a dynamic expression — §3).
type Index struct {
	Bundle     string
	FieldName  string // set when indexing by name
	FieldIndex *int   // set when indexing by a literal position
	IndexExpr  *Expression
}

func (Index) expressionKind() {}

// BinaryOp applies op to two operands (§3).
type BinaryOp struct {
	Op    string
	Left  *Expression
	Right *Expression
}

func (BinaryOp) expressionKind() {}

// UnaryOp applies op to one operand.
type UnaryOp struct {
	Op      string
	Operand *Expression
}

func (UnaryOp) expressionKind() {}

// Call invokes a user spindle; it evaluates to a tuple (§3).
type Call struct {
	Spindle string
	Args    []*Expression
}

func (Call) expressionKind() {}

// Builtin invokes a primitive (math, select, hardware I/O — §6).
type Builtin struct {
	Name string
	Args []*Expression
}

func (Builtin) expressionKind() {}

// Extract projects the i-th return of a Call (§3).
type Extract struct {
	Call  *Expression
	Index int
}

func (Extract) expressionKind() {}

// Remap evaluates Base under coordinate Substitutions (§3). A key
// "me.t" marks the remap as temporal: base's dependency becomes a
// previous-tick edge instead of a current-tick one (§4.4).
type Remap struct {
	Base          *Expression
	Substitutions map[string]*Expression // key: "bundle.field"
	Temporal      bool
}

func (Remap) expressionKind() {}

// CacheRead reads an entry from a named history buffer. Emitted only
// by the cache extractor (§4.6), never by lowering directly.
type CacheRead struct {
	CacheID  string
	TapIndex int
}

func (CacheRead) expressionKind() {}
