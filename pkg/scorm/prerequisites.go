package scorm

import (
	"strings"
	"unicode"
)

// EvalPrerequisites evaluates a manifest prerequisite expression over item
// identifiers. Operators are & (and), | (or), ~ (not) and parentheses. An
// identifier holds when satisfied returns true for it. Empty expressions hold;
// malformed ones do not.
func EvalPrerequisites(expr string, satisfied func(identifier string) bool) bool {
	p := &prereqParser{toks: tokenizePrereq(expr), satisfied: satisfied}
	if len(p.toks) == 0 {
		return true
	}
	v, ok := p.or()
	if !ok || p.pos != len(p.toks) {
		return false
	}
	return v
}

func tokenizePrereq(expr string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case r == '&' || r == '|' || r == '~' || r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type prereqParser struct {
	toks      []string
	pos       int
	satisfied func(string) bool
}

func (p *prereqParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *prereqParser) or() (bool, bool) {
	v, ok := p.and()
	for ok && p.peek() == "|" {
		p.pos++
		var r bool
		r, ok = p.and()
		v = v || r
	}
	return v, ok
}

func (p *prereqParser) and() (bool, bool) {
	v, ok := p.unary()
	for ok && p.peek() == "&" {
		p.pos++
		var r bool
		r, ok = p.unary()
		v = v && r
	}
	return v, ok
}

func (p *prereqParser) unary() (bool, bool) {
	switch t := p.peek(); t {
	case "":
		return false, false
	case "~":
		p.pos++
		v, ok := p.unary()
		return !v, ok
	case "(":
		p.pos++
		v, ok := p.or()
		if !ok || p.peek() != ")" {
			return false, false
		}
		p.pos++
		return v, true
	case "&", "|", ")":
		return false, false
	default:
		p.pos++
		return p.satisfied(t), true
	}
}
