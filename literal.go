package filestorage

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// parseLiteral parses a settings value spelled as a literal list, set or
// map: ['jpg', 'png'], {'a', 'b'}, {'key': 'value'}, with arbitrary
// nesting of quoted strings and integers. This covers the literal forms
// older configurations spell out in settings files.
func parseLiteral(s string) (any, error) {
	p := &literalParser{src: s}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("bad value %q: unexpected trailing %q", s, p.src[p.pos:])
	}
	return v, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *literalParser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	c, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("bad value %q: unexpected end", p.src)
	}
	switch {
	case c == '[':
		return p.list()
	case c == '{':
		return p.setOrMap()
	case c == '\'' || c == '"':
		return p.quotedString()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.integer()
	default:
		return nil, fmt.Errorf("bad value %q: unexpected character %q", p.src, c)
	}
}

func (p *literalParser) list() (any, error) {
	p.pos++ // consume [
	out := []any{}
	for {
		p.skipSpace()
		if c, ok := p.peek(); ok && c == ']' {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		c, ok := p.peek()
		switch {
		case !ok:
			return nil, fmt.Errorf("bad value %q: unterminated list", p.src)
		case c == ',':
			p.pos++
		case c == ']':
			// closes on the next loop pass
		default:
			return nil, fmt.Errorf("bad value %q: expected ',' or ']', got %q", p.src, c)
		}
	}
}

// setOrMap parses a brace literal. A ':' after the first element makes it
// a map; an empty brace literal is an empty map.
func (p *literalParser) setOrMap() (any, error) {
	p.pos++ // consume {
	p.skipSpace()
	if c, ok := p.peek(); ok && c == '}' {
		p.pos++
		return map[string]any{}, nil
	}

	first, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	c, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("bad value %q: unterminated brace literal", p.src)
	}
	if c == ':' {
		return p.mapRest(first)
	}
	return p.setRest(first)
}

func (p *literalParser) setRest(first any) (any, error) {
	out := Set{first}
	for {
		p.skipSpace()
		c, ok := p.peek()
		switch {
		case !ok:
			return nil, fmt.Errorf("bad value %q: unterminated set", p.src)
		case c == '}':
			p.pos++
			return out, nil
		case c == ',':
			p.pos++
			p.skipSpace()
			if c, ok := p.peek(); ok && c == '}' {
				p.pos++
				return out, nil
			}
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		default:
			return nil, fmt.Errorf("bad value %q: expected ',' or '}', got %q", p.src, c)
		}
	}
}

func (p *literalParser) mapRest(firstKey any) (any, error) {
	out := map[string]any{}
	key := firstKey
	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok || c != ':' {
			return nil, fmt.Errorf("bad value %q: expected ':' in map literal", p.src)
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		ks, ok := key.(string)
		if !ok {
			ks = fmt.Sprint(key)
		}
		out[ks] = v

		p.skipSpace()
		c, ok = p.peek()
		switch {
		case !ok:
			return nil, fmt.Errorf("bad value %q: unterminated map", p.src)
		case c == '}':
			p.pos++
			return out, nil
		case c == ',':
			p.pos++
			p.skipSpace()
			if c, ok := p.peek(); ok && c == '}' {
				p.pos++
				return out, nil
			}
			key, err = p.value()
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("bad value %q: expected ',' or '}', got %q", p.src, c)
		}
	}
}

func (p *literalParser) quotedString() (any, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			if p.pos+1 >= len(p.src) {
				return nil, fmt.Errorf("bad value %q: dangling escape", p.src)
			}
			p.pos++
			b.WriteByte(p.src[p.pos])
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, fmt.Errorf("bad value %q: unterminated string", p.src)
}

func (p *literalParser) integer() (any, error) {
	start := p.pos
	if c, ok := p.peek(); ok && c == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return nil, fmt.Errorf("bad value %q: bad integer %q", p.src, p.src[start:p.pos])
	}
	return n, nil
}
