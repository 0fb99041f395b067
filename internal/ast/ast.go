// Package ast defines the WEFT abstract syntax tree (§4.2) and its
// parser. The AST mirrors the surface syntax; lowering (internal/lower)
// turns it into the IR (internal/ir).
package ast

import "github.com/weft-lang/weft/internal/diag"

// Node is the base interface implemented by every AST node.
type Node interface {
	Pos() diag.Span
}

// Program is a parsed (but not yet desugared or lowered) source file:
// an unordered sequence of bundle and spindle declarations.
type Program struct {
	Bundles  []*BundleDecl
	Spindles []*SpindleDecl
}

// OutputKind distinguishes the two forms an output list entry can take.
type OutputKind uint8

const (
	OutputIndex OutputKind = iota // `0, 1, 2`
	OutputName                    // `r, g, b`
)

// OutputSpec is one entry of a bundle declaration's output list.
type OutputSpec struct {
	Kind  OutputKind
	Index int    // valid when Kind == OutputIndex
	Name  string // valid when Kind == OutputName
	Span  diag.Span
}

// BundleDecl is `name[outputs] = expr` or, with Outputs == nil, the
// width-inferred form `name = expr` (§4.2).
type BundleDecl struct {
	Name    string
	Outputs []OutputSpec // nil if width is inferred
	Expr    Expr
	Span    diag.Span
}

func (b *BundleDecl) Pos() diag.Span { return b.Span }

// SpindleDecl is `spindle name(p1, p2) { body }` (§4.2).
type SpindleDecl struct {
	Name   string
	Params []string
	Body   []BodyItem
	Span   diag.Span
}

func (s *SpindleDecl) Pos() diag.Span { return s.Span }

// BodyItem is an item inside a spindle body or a full-body chain
// pattern: either a local bundle declaration or a return statement.
type BodyItem interface {
	Node
	bodyItem()
}

func (b *BundleDecl) bodyItem() {}

// ReturnStmt is `return.N = expr` or `return = [e1, e2, ...]` (§4.2).
type ReturnStmt struct {
	Index *int // set for `return.N = expr`; nil for `return = [...]`
	Expr  Expr // for return.N: the single expression; for return = [...]: a BundleLiteral
	Span  diag.Span
}

func (r *ReturnStmt) Pos() diag.Span { return r.Span }
func (r *ReturnStmt) bodyItem()      {}

// Expr is implemented by every expression AST node.
type Expr interface {
	Node
	exprNode()
}

// NumberLit is a numeric literal.
type NumberLit struct {
	Value float64
	Span  diag.Span
}

func (n *NumberLit) Pos() diag.Span { return n.Span }
func (n *NumberLit) exprNode()      {}

// StringLit is a double-quoted string literal (resource paths, text).
type StringLit struct {
	Value string
	Span  diag.Span
}

func (s *StringLit) Pos() diag.Span { return s.Span }
func (s *StringLit) exprNode()      {}

// Ident is a bare identifier: a parameter, a spindle-local bundle, or a
// global bundle name, resolved during lowering.
type Ident struct {
	Name string
	Span diag.Span
}

func (i *Ident) Pos() diag.Span { return i.Span }
func (i *Ident) exprNode()      {}

// TagExpr is `$name` or `$name(expr)` — eliminated by the desugarer
// (§4.3). `Expr` is nil for bare `$name` uses.
type TagExpr struct {
	Name string
	Expr Expr // nil for a bare `$name` use
	Span diag.Span
}

func (t *TagExpr) Pos() diag.Span { return t.Span }
func (t *TagExpr) exprNode()      {}

// FieldKind distinguishes how a StrandAccess selects its strand.
type FieldKind uint8

const (
	FieldByName  FieldKind = iota // bundle.field
	FieldByIndex                  // bundle.N
	FieldDynamic                  // bundle.(expr)
)

// StrandAccess is `bundle.field`, `bundle.N`, `bundle.(expr)`, or the
// bare forms `.field` / `.N` / `.(expr)` valid only inside pattern
// bodies (§4.2). Bundle is nil for the bare forms.
type StrandAccess struct {
	Bundle     Expr // nil for the bare `.field` form (pattern-local input)
	BundleName string
	Kind       FieldKind
	Name       string // FieldByName
	Index      int    // FieldByIndex
	IndexExpr  Expr   // FieldDynamic
	Span       diag.Span
}

func (s *StrandAccess) Pos() diag.Span { return s.Span }
func (s *StrandAccess) exprNode()      {}

// MeAccess is `me.x`, `me.t`, etc (§4.4 reserved coordinates).
type MeAccess struct {
	Field string
	Span  diag.Span
}

func (m *MeAccess) Pos() diag.Span { return m.Span }
func (m *MeAccess) exprNode()      {}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Span  diag.Span
}

func (b *BinaryExpr) Pos() diag.Span { return b.Span }
func (b *BinaryExpr) exprNode()      {}

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Op      string
	Operand Expr
	Span    diag.Span
}

func (u *UnaryExpr) Pos() diag.Span { return u.Span }
func (u *UnaryExpr) exprNode()      {}

// CallExpr calls a user spindle or a builtin primitive by name;
// lowering decides which based on name resolution (§4.4).
type CallExpr struct {
	Name string
	Args []Expr
	Span diag.Span
}

func (c *CallExpr) Pos() diag.Span { return c.Span }
func (c *CallExpr) exprNode()      {}

// ExtractExpr projects the i-th return value of a (necessarily
// multi-valued) call expression: `call.N` where call resolves to a
// spindle invocation. The parser does not produce it — `call.N` parses
// as a StrandAccess on a CallExpr base, which lowering turns directly
// into an ir.Extract.
type ExtractExpr struct {
	Call  Expr
	Index int
	Span  diag.Span
}

func (e *ExtractExpr) Pos() diag.Span { return e.Span }
func (e *ExtractExpr) exprNode()      {}

// BundleLiteral is `[e1, e2, ...]`, concatenating widths (§4.4).
type BundleLiteral struct {
	Elems []Expr
	Span  diag.Span
}

func (b *BundleLiteral) Pos() diag.Span { return b.Span }
func (b *BundleLiteral) exprNode()      {}

// RangeExpr is `lo..hi`, valid only as (part of) a chain pattern output
// expression; eliminated during lowering's range-unroll step (§4.4).
type RangeExpr struct {
	Lo, Hi int
	Span   diag.Span
}

func (r *RangeExpr) Pos() diag.Span { return r.Span }
func (r *RangeExpr) exprNode()      {}

// ChainExpr is `base | pattern1 | pattern2 | …` (§4.2, §4.4).
type ChainExpr struct {
	Base     Expr
	Patterns []Pattern
	Span     diag.Span
}

func (c *ChainExpr) Pos() diag.Span { return c.Span }
func (c *ChainExpr) exprNode()      {}

// Pattern is one `| …` step of a chain: either an inline tuple of
// expressions, or a full body with its own locals and outputs.
type Pattern struct {
	Inline  []Expr       // set for an inline tuple `(e1, e2, …)`
	Locals  []BundleDecl // set for a full-body pattern
	Outputs []Expr       // set for a full-body pattern (its "return" list)
	Span    diag.Span
}

// RemapSub is one `key ~ value` entry of a Remap (§3, §4.2).
type RemapSub struct {
	BundleName string
	Field      string
	Value      Expr
}

// RemapExpr is `expr[key1 ~ v1, key2 ~ v2, …]` (§3 Remap).
type RemapExpr struct {
	Base Expr
	Subs []RemapSub
	Span diag.Span
}

func (r *RemapExpr) Pos() diag.Span { return r.Span }
func (r *RemapExpr) exprNode()      {}
