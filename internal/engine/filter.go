package engine

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tessellate-io/strata/pkg/types"
)

// ParseFilter compiles a $filter expression into a store predicate,
// type-checking literals against the entity type's declared properties.
// The supported surface is `prop eq literal`, `startswith(prop, 'lit')`
// and `substringof('lit', prop)`; recognized-but-unimplemented operators
// and functions fail with their own codes so clients can tell "not yet"
// from "nonsense".
func ParseFilter(et *types.EntityType, expr string) (types.Filter, *types.Error) {
	p := &filterParser{toks: tokenizeFilter(expr), et: et}
	f, err := p.parse()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, types.FilterParseError()
	}
	return f, nil
}

// filter token kinds.
const (
	tokIdent = iota
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokBad
)

type filterToken struct {
	kind int
	text string
}

// tokenizeFilter splits the expression into identifiers, quoted strings,
// numbers and punctuation. String literals use single quotes with ''
// as the embedded-quote escape. An unterminated string becomes a bad
// token; the parser turns it into a parse error.
func tokenizeFilter(s string) []filterToken {
	var toks []filterToken
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, filterToken{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, filterToken{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, filterToken{tokComma, ","})
			i++
		case c == '\'':
			var b strings.Builder
			i++
			closed := false
			for i < len(s) {
				if s[i] == '\'' {
					if i+1 < len(s) && s[i+1] == '\'' {
						b.WriteByte('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(s[i])
				i++
			}
			if !closed {
				return append(toks, filterToken{tokBad, b.String()})
			}
			toks = append(toks, filterToken{tokString, b.String()})
		case c == '-' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.' ||
				s[j] == 'e' || s[j] == 'E' || s[j] == '+' || s[j] == '-') {
				j++
			}
			toks = append(toks, filterToken{tokNumber, s[i:j]})
			i = j
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
			j := i + 1
			for j < len(s) && (s[j] == '_' || s[j] == '.' || s[j] == '-' ||
				s[j] >= 'a' && s[j] <= 'z' || s[j] >= 'A' && s[j] <= 'Z' ||
				s[j] >= '0' && s[j] <= '9') {
				j++
			}
			toks = append(toks, filterToken{tokIdent, s[i:j]})
			i = j
		default:
			return append(toks, filterToken{tokBad, string(c)})
		}
	}
	return toks
}

// Comparison operators recognized by the grammar. Only eq evaluates;
// the rest are rejected individually.
var comparisonOps = map[string]bool{
	"eq": true, "ne": true, "gt": true, "ge": true, "lt": true, "le": true,
}

// Filter functions recognized by the grammar.
var filterFuncs = map[string]bool{
	"startswith": true, "substringof": true,
	"endswith": true, "indexof": true, "replace": true, "tolower": true,
	"toupper": true, "trim": true, "concat": true, "length": true,
}

type filterParser struct {
	toks []filterToken
	pos  int
	et   *types.EntityType
}

func (p *filterParser) peek() (filterToken, bool) {
	if p.pos >= len(p.toks) {
		return filterToken{}, false
	}
	return p.toks[p.pos], true
}

func (p *filterParser) next() (filterToken, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *filterParser) done() bool {
	return p.pos >= len(p.toks)
}

func (p *filterParser) parse() (types.Filter, *types.Error) {
	first, ok := p.next()
	if !ok || first.kind != tokIdent {
		return nil, types.FilterParseError()
	}

	if nxt, ok := p.peek(); ok && nxt.kind == tokLParen {
		return p.parseFunc(first.text)
	}
	return p.parseComparison(first.text)
}

// parseComparison handles `prop OP literal`.
func (p *filterParser) parseComparison(prop string) (types.Filter, *types.Error) {
	op, ok := p.next()
	if !ok || op.kind != tokIdent {
		return nil, types.FilterParseError()
	}
	if !comparisonOps[op.text] {
		return nil, types.FilterParseError()
	}
	if op.text != "eq" {
		return nil, types.UnsupportedQueryOperator(op.text)
	}
	lit, ok := p.next()
	if !ok {
		return nil, types.FilterParseError()
	}
	v, err := p.literalValue(prop, lit)
	if err != nil {
		return nil, err
	}
	return &types.EqFilter{Property: prop, Value: v}, nil
}

// parseFunc handles `name(arg, arg)` for the two string functions.
func (p *filterParser) parseFunc(name string) (types.Filter, *types.Error) {
	if !filterFuncs[name] {
		return nil, types.FilterParseError()
	}
	if name != "startswith" && name != "substringof" {
		return nil, types.UnsupportedQueryFunction(name)
	}
	if t, ok := p.next(); !ok || t.kind != tokLParen {
		return nil, types.FilterParseError()
	}
	a1, ok := p.next()
	if !ok {
		return nil, types.FilterParseError()
	}
	if t, ok := p.next(); !ok || t.kind != tokComma {
		return nil, types.FilterParseError()
	}
	a2, ok := p.next()
	if !ok {
		return nil, types.FilterParseError()
	}
	if t, ok := p.next(); !ok || t.kind != tokRParen {
		return nil, types.FilterParseError()
	}

	var propTok, litTok filterToken
	var litPos string
	switch name {
	case "startswith":
		propTok, litTok, litPos = a1, a2, "second"
	case "substringof":
		litTok, propTok, litPos = a1, a2, "first"
	}
	if propTok.kind != tokIdent {
		return nil, types.FilterParseError()
	}
	if litTok.kind != tokString {
		return nil, types.UnsupportedOperandFormat(litPos)
	}
	if err := p.checkStringProp(propTok.text); err != nil {
		return nil, err
	}
	if name == "startswith" {
		return &types.StartsWithFilter{Property: propTok.text, Prefix: litTok.text}, nil
	}
	return &types.SubstringOfFilter{Property: propTok.text, Substr: litTok.text}, nil
}

// checkStringProp rejects function application on a declared non-String
// property. Dynamic properties pass; a non-string stored value simply
// never matches.
func (p *filterParser) checkStringProp(prop string) *types.Error {
	decl := p.et.Property(prop)
	if decl == nil {
		return nil
	}
	if decl.CollectionKind == types.CollectionKindList || decl.Type != types.EdmString {
		return types.OperatorAndOperandTypeMismatched(prop)
	}
	return nil
}

// literalValue converts an eq operand into the canonical comparison value
// for the named property, enforcing the declared type when one exists.
func (p *filterParser) literalValue(prop string, lit filterToken) (any, *types.Error) {
	decl := p.et.Property(prop)
	if decl != nil && decl.CollectionKind == types.CollectionKindList {
		return nil, types.OperatorAndOperandTypeMismatched(prop)
	}

	switch lit.kind {
	case tokIdent:
		switch lit.text {
		case "null":
			return nil, nil
		case "true", "false":
			if decl != nil && decl.Type != types.EdmBoolean {
				return nil, types.OperatorAndOperandTypeMismatched(prop)
			}
			return lit.text == "true", nil
		default:
			return nil, types.FilterParseError()
		}

	case tokString:
		if decl != nil && decl.Type != types.EdmString {
			return nil, types.OperatorAndOperandTypeMismatched(prop)
		}
		return lit.text, nil

	case tokNumber:
		return p.numericLiteral(prop, decl, lit.text)

	default:
		return nil, types.FilterParseError()
	}
}

// numericLiteral narrows a numeric token by the declared type. Integer
// literals serve Int32, DateTime (epoch millis) and Double; decimal and
// exponent forms serve only Double/Single.
func (p *filterParser) numericLiteral(prop string, decl *types.Property, text string) (any, *types.Error) {
	i, ierr := strconv.ParseInt(text, 10, 64)
	f, ferr := strconv.ParseFloat(text, 64)
	if ferr != nil {
		return nil, types.FilterParseError()
	}

	if decl == nil {
		if ierr == nil {
			return i, nil
		}
		return json.Number(formatDouble(f)), nil
	}

	switch decl.Type {
	case types.EdmInt32:
		if ierr != nil || i < math.MinInt32 || i > math.MaxInt32 {
			return nil, types.OperatorAndOperandTypeMismatched(prop)
		}
		return i, nil
	case types.EdmDateTime:
		if ierr != nil {
			return nil, types.OperatorAndOperandTypeMismatched(prop)
		}
		return i, nil
	case types.EdmDouble, types.EdmSingle:
		return json.Number(formatDouble(f)), nil
	default:
		return nil, types.OperatorAndOperandTypeMismatched(prop)
	}
}
