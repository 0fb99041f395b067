package ast

import (
	"strconv"

	"github.com/weft-lang/weft/internal/diag"
	"github.com/weft-lang/weft/internal/token"
)

// Parser parses a WEFT token stream into a Program.
type Parser struct {
	tokens  []token.Token
	current int
	file    string
	source  string
}

// NewParser creates a parser over tokens from the named file (used for
// error spans only).
func NewParser(tokens []token.Token, file, source string) *Parser {
	return &Parser{tokens: tokens, file: file, source: source}
}

// Parse parses the whole token stream into a Program.
func (p *Parser) Parse() (*Program, error) {
	prog := &Program{}
	for !p.isAtEnd() {
		if p.check(token.KeywordSpindle) {
			s, err := p.spindleDecl()
			if err != nil {
				return nil, err
			}
			prog.Spindles = append(prog.Spindles, s)
			continue
		}
		b, err := p.bundleDecl()
		if err != nil {
			return nil, err
		}
		prog.Bundles = append(prog.Bundles, b)
	}
	return prog, nil
}

// bundleDecl parses `name[outputs] = expr` or `name = expr`.
func (p *Parser) bundleDecl() (*BundleDecl, error) {
	nameTok, err := p.expect(token.Ident, "expected bundle name")
	if err != nil {
		return nil, err
	}
	decl := &BundleDecl{Name: nameTok.Lexeme, Span: p.spanFrom(nameTok)}

	if p.check(token.LeftBracket) {
		p.advance()
		outputs, err := p.outputList()
		if err != nil {
			return nil, err
		}
		decl.Outputs = outputs
		if _, err := p.expect(token.RightBracket, "expected ']' after bundle output list"); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.Equal, "expected '=' in bundle declaration"); err != nil {
		return nil, err
	}

	expr, err := p.expr()
	if err != nil {
		return nil, err
	}
	decl.Expr = expr
	decl.Span.End = lastPos(p.previous())
	return decl, nil
}

func (p *Parser) outputList() ([]OutputSpec, error) {
	var outs []OutputSpec
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.Number:
			p.advance()
			n, err := strconv.Atoi(tok.Lexeme)
			if err != nil {
				return nil, p.errorAt(tok, "invalid output index %q", tok.Lexeme)
			}
			outs = append(outs, OutputSpec{Kind: OutputIndex, Index: n, Span: spanOf(tok)})
		case token.Ident:
			p.advance()
			outs = append(outs, OutputSpec{Kind: OutputName, Name: tok.Lexeme, Span: spanOf(tok)})
		default:
			return nil, p.errorAt(tok, "expected output index or name")
		}
		if !p.check(token.Comma) {
			break
		}
		p.advance()
	}
	return outs, nil
}

func (p *Parser) spindleDecl() (*SpindleDecl, error) {
	kw := p.advance() // 'spindle'
	nameTok, err := p.expect(token.Ident, "expected spindle name")
	if err != nil {
		return nil, err
	}
	decl := &SpindleDecl{Name: nameTok.Lexeme, Span: spanOf(kw)}

	if _, err := p.expect(token.LeftParen, "expected '(' after spindle name"); err != nil {
		return nil, err
	}
	if !p.check(token.RightParen) {
		for {
			pTok, err := p.expect(token.Ident, "expected parameter name")
			if err != nil {
				return nil, err
			}
			decl.Params = append(decl.Params, pTok.Lexeme)
			if !p.check(token.Comma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RightParen, "expected ')' after parameter list"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LeftBrace, "expected '{' to start spindle body"); err != nil {
		return nil, err
	}

	for !p.check(token.RightBrace) && !p.isAtEnd() {
		item, err := p.bodyItem()
		if err != nil {
			return nil, err
		}
		decl.Body = append(decl.Body, item)
	}
	end, err := p.expect(token.RightBrace, "expected '}' to close spindle body")
	if err != nil {
		return nil, err
	}
	decl.Span.End = spanOf(end).End
	return decl, nil
}

// bodyItem parses either `return …` or a local bundle declaration,
// shared between spindle bodies and full-body chain patterns (§4.2).
func (p *Parser) bodyItem() (BodyItem, error) {
	if p.check(token.KeywordReturn) {
		return p.returnStmt()
	}
	return p.bundleDecl()
}

func (p *Parser) returnStmt() (*ReturnStmt, error) {
	kw := p.advance() // 'return'
	stmt := &ReturnStmt{Span: spanOf(kw)}
	if p.check(token.Dot) {
		p.advance()
		idxTok, err := p.expect(token.Number, "expected return index after '.'")
		if err != nil {
			return nil, err
		}
		idx, err := strconv.Atoi(idxTok.Lexeme)
		if err != nil {
			return nil, p.errorAt(idxTok, "invalid return index %q", idxTok.Lexeme)
		}
		stmt.Index = &idx
	}
	if _, err := p.expect(token.Equal, "expected '=' in return statement"); err != nil {
		return nil, err
	}
	expr, err := p.expr()
	if err != nil {
		return nil, err
	}
	stmt.Expr = expr
	stmt.Span.End = lastPos(p.previous())
	return stmt, nil
}

// --- expressions, precedence-climbing ---

func (p *Parser) expr() (Expr, error) { return p.remapExpr() }

func (p *Parser) remapExpr() (Expr, error) {
	base, err := p.chainExpr()
	if err != nil {
		return nil, err
	}
	if !p.check(token.LeftBracket) {
		return base, nil
	}
	start := p.peek()
	p.advance()
	var subs []RemapSub
	for {
		bnameTok := p.peek()
		if bnameTok.Kind != token.Ident && bnameTok.Kind != token.KeywordMe {
			return nil, p.errorAt(bnameTok, "expected bundle name in remap key")
		}
		p.advance()
		if _, err := p.expect(token.Dot, "expected '.' in remap key"); err != nil {
			return nil, err
		}
		fieldTok := p.peek()
		if fieldTok.Kind != token.Ident && fieldTok.Kind != token.Number && fieldTok.Kind != token.KeywordMe {
			return nil, p.errorAt(fieldTok, "expected field name in remap key")
		}
		p.advance()
		if _, err := p.expect(token.Tilde, "expected '~' in remap substitution"); err != nil {
			return nil, err
		}
		val, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		name := bnameTok.Lexeme
		if bnameTok.Kind == token.KeywordMe {
			name = "me"
		}
		subs = append(subs, RemapSub{BundleName: name, Field: fieldTok.Lexeme, Value: val})
		if !p.check(token.Comma) {
			break
		}
		p.advance()
	}
	end, err := p.expect(token.RightBracket, "expected ']' to close remap")
	if err != nil {
		return nil, err
	}
	return &RemapExpr{Base: base, Subs: subs, Span: diag.Span{Start: spanOf(start).Start, End: spanOf(end).End}}, nil
}

// chainExpr parses `base | pattern | pattern …` (§4.2).
func (p *Parser) chainExpr() (Expr, error) {
	base, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	if !p.check(token.Pipe) {
		return base, nil
	}
	chain := &ChainExpr{Base: base, Span: base.Pos()}
	for p.check(token.Pipe) {
		p.advance()
		pat, err := p.pattern()
		if err != nil {
			return nil, err
		}
		chain.Patterns = append(chain.Patterns, pat)
	}
	return chain, nil
}

func (p *Parser) pattern() (Pattern, error) {
	if p.check(token.LeftBrace) {
		brace := p.advance()
		pat := Pattern{Span: spanOf(brace)}
		for !p.check(token.RightBrace) && !p.isAtEnd() {
			if p.check(token.KeywordReturn) {
				ret, err := p.returnStmt()
				if err != nil {
					return Pattern{}, err
				}
				if ret.Index != nil {
					return Pattern{}, p.errorAt(p.previous(), "return.N is not valid inside a chain pattern body; use 'return = [...]'")
				}
				if lit, ok := ret.Expr.(*BundleLiteral); ok {
					pat.Outputs = lit.Elems
				} else {
					pat.Outputs = []Expr{ret.Expr}
				}
				continue
			}
			local, err := p.bundleDecl()
			if err != nil {
				return Pattern{}, err
			}
			pat.Locals = append(pat.Locals, *local)
		}
		if _, err := p.expect(token.RightBrace, "expected '}' to close pattern body"); err != nil {
			return Pattern{}, err
		}
		return pat, nil
	}

	if p.check(token.LeftParen) {
		paren := p.advance()
		pat := Pattern{Span: spanOf(paren)}
		if !p.check(token.RightParen) {
			for {
				e, err := p.orExpr()
				if err != nil {
					return Pattern{}, err
				}
				pat.Inline = append(pat.Inline, e)
				if !p.check(token.Comma) {
					break
				}
				p.advance()
			}
		}
		if _, err := p.expect(token.RightParen, "expected ')' to close inline pattern"); err != nil {
			return Pattern{}, err
		}
		return pat, nil
	}

	// A single bare expression is shorthand for a one-element inline tuple.
	e, err := p.orExpr()
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{Inline: []Expr{e}, Span: e.Pos()}, nil
}

func (p *Parser) orExpr() (Expr, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.check(token.PipePipe) {
		p.advance()
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "||", Left: left, Right: right, Span: left.Pos()}
	}
	return left, nil
}

func (p *Parser) andExpr() (Expr, error) {
	left, err := p.eqExpr()
	if err != nil {
		return nil, err
	}
	for p.check(token.AmpAmp) {
		p.advance()
		right, err := p.eqExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "&&", Left: left, Right: right, Span: left.Pos()}
	}
	return left, nil
}

func (p *Parser) eqExpr() (Expr, error) {
	left, err := p.relExpr()
	if err != nil {
		return nil, err
	}
	for p.check(token.EqualEqual) || p.check(token.BangEqual) {
		opTok := p.advance()
		right, err := p.relExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: opTok.Kind.String(), Left: left, Right: right, Span: left.Pos()}
	}
	return left, nil
}

func (p *Parser) relExpr() (Expr, error) {
	left, err := p.addExpr()
	if err != nil {
		return nil, err
	}
	for p.check(token.Less) || p.check(token.Greater) || p.check(token.LessEqual) || p.check(token.GreaterEqual) {
		opTok := p.advance()
		right, err := p.addExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: opTok.Kind.String(), Left: left, Right: right, Span: left.Pos()}
	}
	return left, nil
}

func (p *Parser) addExpr() (Expr, error) {
	left, err := p.mulExpr()
	if err != nil {
		return nil, err
	}
	for p.check(token.Plus) || p.check(token.Minus) {
		opTok := p.advance()
		right, err := p.mulExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: opTok.Kind.String(), Left: left, Right: right, Span: left.Pos()}
	}
	return left, nil
}

func (p *Parser) mulExpr() (Expr, error) {
	left, err := p.unaryExpr()
	if err != nil {
		return nil, err
	}
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		opTok := p.advance()
		right, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: opTok.Kind.String(), Left: left, Right: right, Span: left.Pos()}
	}
	return left, nil
}

func (p *Parser) unaryExpr() (Expr, error) {
	if p.check(token.Minus) || p.check(token.Bang) {
		opTok := p.advance()
		operand, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: opTok.Kind.String(), Operand: operand, Span: spanOf(opTok)}, nil
	}
	return p.powExpr()
}

// powExpr is right-associative: 2^3^2 == 2^(3^2).
func (p *Parser) powExpr() (Expr, error) {
	base, err := p.rangeExpr()
	if err != nil {
		return nil, err
	}
	if p.check(token.Caret) {
		p.advance()
		exp, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: "^", Left: base, Right: exp, Span: base.Pos()}, nil
	}
	return base, nil
}

// rangeExpr recognizes `lo..hi` (§4.2); only meaningful inside chain
// pattern outputs, but parsed generally — lowering rejects it elsewhere
// (§4.4 "Ranges outside chain patterns are errors").
func (p *Parser) rangeExpr() (Expr, error) {
	base, err := p.postfixExpr()
	if err != nil {
		return nil, err
	}
	if lit, ok := base.(*NumberLit); ok && p.check(token.DotDot) {
		p.advance()
		hiTok, err := p.expect(token.Number, "expected range upper bound after '..'")
		if err != nil {
			return nil, err
		}
		hi, err := strconv.Atoi(hiTok.Lexeme)
		if err != nil {
			return nil, p.errorAt(hiTok, "invalid range bound %q", hiTok.Lexeme)
		}
		return &RangeExpr{Lo: int(lit.Value), Hi: hi, Span: lit.Span}, nil
	}
	return base, nil
}

func (p *Parser) postfixExpr() (Expr, error) {
	base, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	for p.check(token.Dot) {
		dotTok := p.advance()
		access, err := p.fieldSuffix(base, dotTok)
		if err != nil {
			return nil, err
		}
		base = access
	}
	return base, nil
}

func (p *Parser) fieldSuffix(base Expr, dotTok token.Token) (Expr, error) {
	start := spanOf(dotTok).Start
	if base != nil {
		start = base.Pos().Start
	}
	tok := p.peek()
	switch tok.Kind {
	case token.Number:
		p.advance()
		idx, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return nil, p.errorAt(tok, "invalid strand index %q", tok.Lexeme)
		}
		return &StrandAccess{Bundle: base, Kind: FieldByIndex, Index: idx, Span: diag.Span{Start: start, End: spanOf(tok).End}}, nil
	case token.Ident:
		p.advance()
		return &StrandAccess{Bundle: base, Kind: FieldByName, Name: tok.Lexeme, Span: diag.Span{Start: start, End: spanOf(tok).End}}, nil
	case token.LeftParen:
		p.advance()
		idxExpr, err := p.expr()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(token.RightParen, "expected ')' to close dynamic strand access")
		if err != nil {
			return nil, err
		}
		return &StrandAccess{Bundle: base, Kind: FieldDynamic, IndexExpr: idxExpr, Span: diag.Span{Start: start, End: spanOf(end).End}}, nil
	default:
		_ = dotTok
		return nil, p.errorAt(tok, "expected strand field after '.'")
	}
}

func (p *Parser) primaryExpr() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.Number:
		p.advance()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.errorAt(tok, "invalid number literal %q", tok.Lexeme)
		}
		return &NumberLit{Value: v, Span: spanOf(tok)}, nil

	case token.String:
		p.advance()
		return &StringLit{Value: unquote(tok.Lexeme), Span: spanOf(tok)}, nil

	case token.KeywordMe:
		p.advance()
		if _, err := p.expect(token.Dot, "expected '.' after 'me'"); err != nil {
			return nil, err
		}
		fieldTok, err := p.expect(token.Ident, "expected field name after 'me.'")
		if err != nil {
			return nil, err
		}
		return &MeAccess{Field: fieldTok.Lexeme, Span: diag.Span{Start: spanOf(tok).Start, End: spanOf(fieldTok).End}}, nil

	case token.Dollar:
		p.advance()
		nameTok, err := p.expect(token.Ident, "expected tag name after '$'")
		if err != nil {
			return nil, err
		}
		tagExpr := &TagExpr{Name: nameTok.Lexeme, Span: diag.Span{Start: spanOf(tok).Start, End: spanOf(nameTok).End}}
		if p.check(token.LeftParen) {
			p.advance()
			inner, err := p.expr()
			if err != nil {
				return nil, err
			}
			end, err := p.expect(token.RightParen, "expected ')' to close tag expression")
			if err != nil {
				return nil, err
			}
			tagExpr.Expr = inner
			tagExpr.Span.End = spanOf(end).End
		}
		return tagExpr, nil

	case token.Dot:
		// Bare `.field` / `.N` / `.(expr)`, valid only inside patterns;
		// lowering enforces the context (§4.4).
		dotTok := p.advance()
		return p.fieldSuffix(nil, dotTok)

	case token.Ident:
		p.advance()
		if p.check(token.LeftParen) {
			p.advance()
			var args []Expr
			if !p.check(token.RightParen) {
				for {
					a, err := p.expr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if !p.check(token.Comma) {
						break
					}
					p.advance()
				}
			}
			end, err := p.expect(token.RightParen, "expected ')' to close call arguments")
			if err != nil {
				return nil, err
			}
			return &CallExpr{Name: tok.Lexeme, Args: args, Span: diag.Span{Start: spanOf(tok).Start, End: spanOf(end).End}}, nil
		}
		return &Ident{Name: tok.Lexeme, Span: spanOf(tok)}, nil

	case token.LeftBracket:
		p.advance()
		lit := &BundleLiteral{Span: spanOf(tok)}
		if !p.check(token.RightBracket) {
			for {
				e, err := p.expr()
				if err != nil {
					return nil, err
				}
				lit.Elems = append(lit.Elems, e)
				if !p.check(token.Comma) {
					break
				}
				p.advance()
			}
		}
		end, err := p.expect(token.RightBracket, "expected ']' to close bundle literal")
		if err != nil {
			return nil, err
		}
		lit.Span.End = spanOf(end).End
		return lit, nil

	case token.LeftParen:
		p.advance()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RightParen, "expected ')' to close parenthesized expression"); err != nil {
			return nil, err
		}
		return e, nil

	default:
		return nil, p.errorAt(tok, "unexpected token %s in expression", tok.Kind)
	}
}

// --- token helpers ---

func (p *Parser) peek() token.Token { return p.tokens[p.current] }

func (p *Parser) previous() token.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p *Parser) advance() token.Token {
	t := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool {
	return !p.isAtEnd() && p.peek().Kind == k
}

func (p *Parser) isAtEnd() bool { return p.peek().Kind == token.EOF }

func (p *Parser) expect(k token.Kind, msg string) (token.Token, error) {
	if p.check(k) {
		return p.advance(), nil
	}
	tok := p.peek()
	if tok.Kind == token.EOF {
		return token.Token{}, p.errorAt(tok, "unexpected end of file: %s", msg)
	}
	return token.Token{}, p.errorAt(tok, "%s, found %s", msg, tok.Kind)
}

func (p *Parser) errorAt(tok token.Token, format string, args ...interface{}) error {
	return diag.Parser("UnexpectedToken", spanOf(tok), format, args...)
}

func (p *Parser) spanFrom(start token.Token) diag.Span {
	return diag.Span{Start: diag.Pos{Line: start.Line, Column: start.Column}}
}

func spanOf(t token.Token) diag.Span {
	end := diag.Pos{Line: t.Line, Column: t.Column + len(t.Lexeme)}
	return diag.Span{Start: diag.Pos{Line: t.Line, Column: t.Column}, End: end}
}

func lastPos(t token.Token) diag.Pos {
	return diag.Pos{Line: t.Line, Column: t.Column + len(t.Lexeme)}
}

func unquote(lexeme string) string {
	if len(lexeme) < 2 {
		return lexeme
	}
	inner := lexeme[1 : len(lexeme)-1]
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, inner[i])
			}
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
