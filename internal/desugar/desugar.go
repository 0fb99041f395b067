// Package desugar collects $tag expressions, synthesizes tag bundles,
// and rewrites every use to a strand access on the synthetic bundle
// (§4.3). After desugaring, no ast.TagExpr remains anywhere in the
// program (§3 invariant 5, §8 "After desugaring, no expression subtree
// contains a TagExpr variant").
package desugar

import "github.com/weft-lang/weft/internal/ast"

// Desugar rewrites prog in place and returns it, with the synthetic
// tag bundles prepended to the program's bundle list.
//
// Decision (spec §9 open question b): when a tag's later use disagrees
// in shape with its first, the first definition is treated as
// authoritative and the later occurrence's own expression is discarded
// entirely (it becomes a plain `$name.0` reference) — we do not raise
// an error, since shape isn't known until width inference runs in
// lowering, long after tags are gone.
func Desugar(prog *ast.Program) *ast.Program {
	d := &desugarer{definitions: map[string]ast.Expr{}, order: nil}
	for _, b := range prog.Bundles {
		d.collect(b.Expr)
	}
	for _, s := range prog.Spindles {
		for _, item := range s.Body {
			d.collectBodyItem(item)
		}
	}

	for _, b := range prog.Bundles {
		b.Expr = d.rewrite(b.Expr)
	}
	for _, s := range prog.Spindles {
		for i, item := range s.Body {
			s.Body[i] = d.rewriteBodyItem(item)
		}
	}

	tagBundles := make([]*ast.BundleDecl, 0, len(d.order))
	for _, name := range d.order {
		def := d.definitions[name]
		span := def.Pos()
		tagBundles = append(tagBundles, &ast.BundleDecl{
			Name:    "$" + name,
			Outputs: []ast.OutputSpec{{Kind: ast.OutputIndex, Index: 0}},
			Expr:    d.rewrite(def),
			Span:    span,
		})
	}
	prog.Bundles = append(tagBundles, prog.Bundles...)
	return prog
}

type desugarer struct {
	definitions map[string]ast.Expr
	order       []string
}

func (d *desugarer) define(name string, expr ast.Expr) {
	if _, ok := d.definitions[name]; ok {
		return
	}
	d.definitions[name] = expr
	d.order = append(d.order, name)
}

// collect walks expr once, recording the first expression seen for
// every distinct $name.
func (d *desugarer) collect(expr ast.Expr) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ast.TagExpr:
		if e.Expr != nil {
			d.collect(e.Expr)
			d.define(e.Name, e.Expr)
		}
	case *ast.BinaryExpr:
		d.collect(e.Left)
		d.collect(e.Right)
	case *ast.UnaryExpr:
		d.collect(e.Operand)
	case *ast.CallExpr:
		for _, a := range e.Args {
			d.collect(a)
		}
	case *ast.StrandAccess:
		d.collect(e.Bundle)
		d.collect(e.IndexExpr)
	case *ast.BundleLiteral:
		for _, el := range e.Elems {
			d.collect(el)
		}
	case *ast.ChainExpr:
		d.collect(e.Base)
		for _, pat := range e.Patterns {
			d.collectPattern(pat)
		}
	case *ast.RemapExpr:
		d.collect(e.Base)
		for _, s := range e.Subs {
			d.collect(s.Value)
		}
	}
}

func (d *desugarer) collectPattern(pat ast.Pattern) {
	for _, e := range pat.Inline {
		d.collect(e)
	}
	for _, local := range pat.Locals {
		d.collect(local.Expr)
	}
	for _, e := range pat.Outputs {
		d.collect(e)
	}
}

func (d *desugarer) collectBodyItem(item ast.BodyItem) {
	switch it := item.(type) {
	case *ast.BundleDecl:
		d.collect(it.Expr)
	case *ast.ReturnStmt:
		d.collect(it.Expr)
	}
}

// rewrite replaces every $name(...) and bare $name with a strand access
// `$name.0` on the synthetic bundle.
func (d *desugarer) rewrite(expr ast.Expr) ast.Expr {
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *ast.TagExpr:
		return &ast.StrandAccess{
			Bundle:     &ast.Ident{Name: "$" + e.Name, Span: e.Span},
			BundleName: "$" + e.Name,
			Kind:       ast.FieldByIndex,
			Index:      0,
			Span:       e.Span,
		}
	case *ast.BinaryExpr:
		e.Left = d.rewrite(e.Left)
		e.Right = d.rewrite(e.Right)
		return e
	case *ast.UnaryExpr:
		e.Operand = d.rewrite(e.Operand)
		return e
	case *ast.CallExpr:
		for i, a := range e.Args {
			e.Args[i] = d.rewrite(a)
		}
		return e
	case *ast.StrandAccess:
		e.Bundle = d.rewrite(e.Bundle)
		e.IndexExpr = d.rewrite(e.IndexExpr)
		return e
	case *ast.BundleLiteral:
		for i, el := range e.Elems {
			e.Elems[i] = d.rewrite(el)
		}
		return e
	case *ast.ChainExpr:
		e.Base = d.rewrite(e.Base)
		for i, pat := range e.Patterns {
			e.Patterns[i] = d.rewritePattern(pat)
		}
		return e
	case *ast.RemapExpr:
		e.Base = d.rewrite(e.Base)
		for i, s := range e.Subs {
			e.Subs[i].Value = d.rewrite(s.Value)
		}
		return e
	default:
		return expr
	}
}

func (d *desugarer) rewritePattern(pat ast.Pattern) ast.Pattern {
	for i, e := range pat.Inline {
		pat.Inline[i] = d.rewrite(e)
	}
	for i := range pat.Locals {
		pat.Locals[i].Expr = d.rewrite(pat.Locals[i].Expr)
	}
	for i, e := range pat.Outputs {
		pat.Outputs[i] = d.rewrite(e)
	}
	return pat
}

func (d *desugarer) rewriteBodyItem(item ast.BodyItem) ast.BodyItem {
	switch it := item.(type) {
	case *ast.BundleDecl:
		it.Expr = d.rewrite(it.Expr)
		return it
	case *ast.ReturnStmt:
		it.Expr = d.rewrite(it.Expr)
		return it
	default:
		return item
	}
}
