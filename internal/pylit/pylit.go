// Package pylit parses and writes the Python-literal subset that
// appears in NPY headers: strings, integers, booleans, tuples, lists
// and dicts with string keys. The grammar is fixed and finite, so this
// is a plain tokenizer plus recursive descent, not a general evaluator.
package pylit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by all parse failures.
var ErrSyntax = errors.New("pylit: syntax error")

// Kind discriminates the Value variants.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindList
	KindTuple
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindDict:
		return "dict"
	default:
		return "unknown"
	}
}

// Value is one parsed Python literal. Exactly the fields implied by
// Kind are meaningful. Dicts keep insertion order: Keys[i] maps to
// Items[i].
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Bool  bool
	Items []Value
	Keys  []string
}

// String returns the literal in Python notation. Tuples of length one
// keep the trailing comma so they round-trip as tuples.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.Kind {
	case KindString:
		writeQuoted(sb, v.Str)
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case KindBool:
		if v.Bool {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case KindList:
		sb.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			it.write(sb)
		}
		sb.WriteByte(']')
	case KindTuple:
		sb.WriteByte('(')
		for i, it := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			it.write(sb)
		}
		if len(v.Items) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	case KindDict:
		sb.WriteByte('{')
		for i, k := range v.Keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeQuoted(sb, k)
			sb.WriteString(": ")
			v.Items[i].write(sb)
		}
		sb.WriteString("}")
	}
}

// writeQuoted emits a single-quoted string with quotes and
// backslashes escaped, so any field name round-trips.
func writeQuoted(sb *strings.Builder, s string) {
	sb.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('\'')
}

// Lookup returns the dict entry for key and whether it exists.
func (v Value) Lookup(key string) (Value, bool) {
	if v.Kind != KindDict {
		return Value{}, false
	}
	for i, k := range v.Keys {
		if k == key {
			return v.Items[i], true
		}
	}
	return Value{}, false
}

// Str returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Integer returns an int Value.
func Integer(n int64) Value { return Value{Kind: KindInt, Int: n} }

// Boolean returns a bool Value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// List returns a list Value.
func List(items ...Value) Value { return Value{Kind: KindList, Items: items} }

// Tuple returns a tuple Value.
func Tuple(items ...Value) Value { return Value{Kind: KindTuple, Items: items} }

// Dict returns an empty dict Value; populate it with Set.
func Dict() Value { return Value{Kind: KindDict} }

// Set appends a key/value pair and returns the updated dict.
func (v Value) Set(key string, item Value) Value {
	v.Keys = append(v.Keys, key)
	v.Items = append(v.Items, item)
	return v
}

// Parse parses a single literal. Trailing input other than whitespace
// is an error.
func Parse(input string) (Value, error) {
	p := &parser{src: input}
	v, err := p.value()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Value{}, p.errf("trailing data at offset %d", p.pos)
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

// accept consumes c if it is the next non-space byte.
func (p *parser) accept(c byte) bool {
	if b, ok := p.peek(); ok && b == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(c byte) error {
	if !p.accept(c) {
		return p.errf("expected %q at offset %d", string(c), p.pos)
	}
	return nil
}

func (p *parser) value() (Value, error) {
	b, ok := p.peek()
	if !ok {
		return Value{}, p.errf("unexpected end of input")
	}
	switch {
	case b == '\'' || b == '"':
		return p.string()
	case b == '[':
		return p.seq('[', ']', KindList)
	case b == '(':
		return p.seq('(', ')', KindTuple)
	case b == '{':
		return p.dict()
	case b == 'T' || b == 'F':
		return p.boolean()
	case b == '-' || (b >= '0' && b <= '9'):
		return p.integer()
	default:
		return Value{}, p.errf("unexpected byte %q at offset %d", string(b), p.pos)
	}
}

func (p *parser) string() (Value, error) {
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; c {
		case quote:
			p.pos++
			return String(sb.String()), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return Value{}, p.errf("unterminated string")
			}
			switch esc := p.src[p.pos]; esc {
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				return Value{}, p.errf("unsupported escape \\%c", esc)
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return Value{}, p.errf("unterminated string")
}

func (p *parser) boolean() (Value, error) {
	if strings.HasPrefix(p.src[p.pos:], "True") {
		p.pos += len("True")
		return Boolean(true), nil
	}
	if strings.HasPrefix(p.src[p.pos:], "False") {
		p.pos += len("False")
		return Boolean(false), nil
	}
	return Value{}, p.errf("invalid literal at offset %d", p.pos)
}

func (p *parser) integer() (Value, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		return Value{}, p.errf("invalid integer %q", p.src[start:p.pos])
	}
	return Integer(n), nil
}

// seq parses a list or tuple. Trailing commas are accepted, matching
// what numpy emits for one-element shapes.
func (p *parser) seq(open, close byte, kind Kind) (Value, error) {
	if err := p.expect(open); err != nil {
		return Value{}, err
	}
	v := Value{Kind: kind}
	for {
		if p.accept(close) {
			return v, nil
		}
		item, err := p.value()
		if err != nil {
			return Value{}, err
		}
		v.Items = append(v.Items, item)
		if !p.accept(',') {
			if err := p.expect(close); err != nil {
				return Value{}, err
			}
			return v, nil
		}
	}
}

func (p *parser) dict() (Value, error) {
	if err := p.expect('{'); err != nil {
		return Value{}, err
	}
	v := Dict()
	for {
		if p.accept('}') {
			return v, nil
		}
		b, ok := p.peek()
		if !ok || (b != '\'' && b != '"') {
			return Value{}, p.errf("dict key must be a string at offset %d", p.pos)
		}
		key, err := p.string()
		if err != nil {
			return Value{}, err
		}
		if err := p.expect(':'); err != nil {
			return Value{}, err
		}
		item, err := p.value()
		if err != nil {
			return Value{}, err
		}
		v = v.Set(key.Str, item)
		if !p.accept(',') {
			if err := p.expect('}'); err != nil {
				return Value{}, err
			}
			return v, nil
		}
	}
}
