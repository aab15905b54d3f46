package compiler

import (
	"fmt"
	"unicode"

	"github.com/bibkit/marcpick/engine"
)

// ---------------- Tokens ----------------

type TokenKind int

const (
	TokPlaceholder TokenKind = iota
	TokAnd
	TokOr
	TokNot
	TokLeftParen
	TokRightParen
)

type Token struct {
	Kind  TokenKind
	Index int // placeholder ordinal, in condition order
}

// TokenizeCombo lexes a placeholder skeleton. The skeleton is already
// lower-cased; anything other than `{}`, parentheses, whitespace and the
// connectives and/or/not is a syntax error.
func TokenizeCombo(skeleton string) ([]Token, error) {
	rs := []rune(skeleton)
	out := make([]Token, 0, len(rs))
	next := 0
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == ' ' || r == '\t':
			i++
		case r == '(':
			out = append(out, Token{Kind: TokLeftParen})
			i++
		case r == ')':
			out = append(out, Token{Kind: TokRightParen})
			i++
		case r == '{':
			if i+1 < len(rs) && rs[i+1] == '}' {
				out = append(out, Token{Kind: TokPlaceholder, Index: next})
				next++
				i += 2
				continue
			}
			return nil, fmt.Errorf("stray '{' in condition expression")
		case unicode.IsLetter(r):
			j := i
			for j < len(rs) && unicode.IsLetter(rs[j]) {
				j++
			}
			switch word := string(rs[i:j]); word {
			case "and":
				out = append(out, Token{Kind: TokAnd})
			case "or":
				out = append(out, Token{Kind: TokOr})
			case "not":
				out = append(out, Token{Kind: TokNot})
			default:
				return nil, fmt.Errorf("unexpected word %q in condition expression", word)
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q in condition expression", r)
		}
	}
	return out, nil
}

// ---------------- Parser ----------------

// comboParser is a minimal recursive-descent parser for boolean expressions
// over placeholders, with the usual precedence: not > and > or.
type comboParser struct {
	tokens []Token
	pos    int
}

// ParseCombo validates the placeholder skeleton as a boolean expression and
// returns its AST. The check is purely syntactic; no condition outcome is
// consulted.
func ParseCombo(skeleton string) (*engine.ComboNode, error) {
	tokens, err := TokenizeCombo(skeleton)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty condition expression")
	}
	p := &comboParser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("trailing tokens in condition expression")
	}
	return node, nil
}

func (p *comboParser) current() *Token {
	if p.pos >= 0 && p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

func (p *comboParser) advance() *Token {
	tok := p.current()
	if tok != nil {
		p.pos++
	}
	return tok
}

// OR (lowest precedence)
func (p *comboParser) parseOr() (*engine.ComboNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if t := p.current(); t != nil && t.Kind == TokOr {
			p.advance()
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			left = &engine.ComboNode{Kind: engine.ComboOr, Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

// AND
func (p *comboParser) parseAnd() (*engine.ComboNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if t := p.current(); t != nil && t.Kind == TokAnd {
			p.advance()
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			left = &engine.ComboNode{Kind: engine.ComboAnd, Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

// NOT (highest precedence)
func (p *comboParser) parseNot() (*engine.ComboNode, error) {
	if t := p.current(); t != nil && t.Kind == TokNot {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &engine.ComboNode{Kind: engine.ComboNot, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *comboParser) parsePrimary() (*engine.ComboNode, error) {
	t := p.advance()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of condition expression")
	}
	switch t.Kind {
	case TokPlaceholder:
		return &engine.ComboNode{Kind: engine.ComboPlaceholder, Index: t.Index}, nil
	case TokLeftParen:
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.advance(); c == nil || c.Kind != TokRightParen {
			return nil, fmt.Errorf("missing close parenthesis in condition expression")
		}
		return node, nil
	default:
		return nil, fmt.Errorf("unexpected token in condition expression")
	}
}
