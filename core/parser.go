package core

import (
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references during parsing. The parser
// needs one when a stream's /Length is itself an indirect reference.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser parses PDF objects from an io.Reader using a Lexer for
// tokenization, with one token of lookahead to disambiguate indirect
// references ("N G R") from plain integers.
type Parser struct {
	lexer        *Lexer
	currentToken *Token
	peekToken    *Token
	resolver     ReferenceResolver
}

// NewParser creates a parser for the given reader and primes the
// two-token lookahead window.
func NewParser(r io.Reader) *Parser {
	p := &Parser{lexer: NewLexer(r)}
	p.nextToken()
	p.nextToken()
	return p
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// nextToken shifts the lookahead window by one token.
func (p *Parser) nextToken() error {
	p.currentToken = p.peekToken

	// "stream" is followed by binary data that must not be tokenized;
	// parseStream takes over the underlying reader directly.
	if p.currentToken != nil &&
		p.currentToken.Type == TokenKeyword &&
		string(p.currentToken.Value) == "stream" {
		p.peekToken = nil
		return nil
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.peekToken = token
	return nil
}

func (p *Parser) skipComments() error {
	for p.currentToken != nil && p.currentToken.Type == TokenComment {
		if err := p.nextToken(); err != nil {
			return err
		}
	}
	return nil
}

// ParseObject parses and returns the next PDF object from the input.
func (p *Parser) ParseObject() (Object, error) {
	if err := p.skipComments(); err != nil {
		return nil, err
	}
	if p.currentToken == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch p.currentToken.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		keyword := string(p.currentToken.Value)
		switch keyword {
		case "null":
			p.nextToken()
			return Null{}, nil
		case "true":
			p.nextToken()
			return Bool(true), nil
		case "false":
			p.nextToken()
			return Bool(false), nil
		default:
			return nil, fmt.Errorf("unexpected keyword %q", keyword)
		}

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		val, err := strconv.ParseFloat(string(p.currentToken.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number: %w", err)
		}
		p.nextToken()
		return Real(val), nil

	case TokenString:
		val := string(p.currentToken.Value)
		p.nextToken()
		return String(val), nil

	case TokenName:
		val := string(p.currentToken.Value)
		p.nextToken()
		return Name(val), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()

	default:
		return nil, fmt.Errorf("unexpected token type %v at position %d", p.currentToken.Type, p.currentToken.Pos)
	}
}

// parseNumber parses an integer, distinguishing the "N G R" indirect
// reference pattern by lookahead.
func (p *Parser) parseNumber() (Object, error) {
	first, err := strconv.ParseInt(string(p.currentToken.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(p.currentToken.Value), 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid number %q", p.currentToken.Value)
		}
		p.nextToken()
		return Real(f), nil
	}

	if p.peekToken != nil && p.peekToken.Type == TokenInteger {
		second, err := strconv.ParseInt(string(p.peekToken.Value), 10, 64)
		if err == nil {
			p.nextToken() // now at the second integer
			if p.peekToken != nil && p.peekToken.Type == TokenIndirectRef {
				p.nextToken() // at R
				p.nextToken() // past R
				return IndirectRef{Number: int(first), Generation: int(second)}, nil
			}
			// Not a reference; the second integer stays current and the
			// first is returned on its own.
			return Int(first), nil
		}
	}

	p.nextToken()
	return Int(first), nil
}

func (p *Parser) parseArray() (Object, error) {
	if p.currentToken.Type != TokenArrayStart {
		return nil, fmt.Errorf("expected '[', got %v", p.currentToken.Type)
	}
	p.nextToken()

	arr := Array{}
	for {
		if err := p.skipComments(); err != nil {
			return nil, err
		}
		if p.currentToken == nil || p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected end of input in array")
		}
		if p.currentToken.Type == TokenArrayEnd {
			p.nextToken()
			return arr, nil
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	if p.currentToken.Type != TokenDictStart {
		return nil, fmt.Errorf("expected '<<', got %v", p.currentToken.Type)
	}
	p.nextToken()

	dict := make(Dict)
	for {
		if err := p.skipComments(); err != nil {
			return nil, err
		}
		if p.currentToken == nil || p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected end of input in dictionary")
		}
		if p.currentToken.Type == TokenDictEnd {
			p.nextToken()
			return dict, nil
		}

		if p.currentToken.Type != TokenName {
			return nil, fmt.Errorf("expected name for dictionary key, got %v", p.currentToken.Type)
		}
		key := string(p.currentToken.Value)
		p.nextToken()

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("dictionary value for key %q: %w", key, err)
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses an indirect object definition:
// "num gen obj <object> endobj", with an optional stream body.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	if err := p.skipComments(); err != nil {
		return nil, err
	}

	if p.currentToken.Type != TokenInteger {
		return nil, fmt.Errorf("expected object number, got %v", p.currentToken.Type)
	}
	num, err := strconv.Atoi(string(p.currentToken.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid object number: %w", err)
	}
	p.nextToken()

	if p.currentToken.Type != TokenInteger {
		return nil, fmt.Errorf("expected generation number, got %v", p.currentToken.Type)
	}
	gen, err := strconv.Atoi(string(p.currentToken.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid generation number: %w", err)
	}
	p.nextToken()

	if p.currentToken.Type != TokenKeyword || string(p.currentToken.Value) != "obj" {
		return nil, fmt.Errorf("expected 'obj' keyword, got %v", p.currentToken)
	}
	p.nextToken()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("indirect object value: %w", err)
	}

	if p.currentToken != nil && p.currentToken.Type == TokenKeyword && string(p.currentToken.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary, got %T", obj)
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("stream body: %w", err)
		}
		obj = stream
	}

	if p.currentToken == nil || p.currentToken.Type != TokenKeyword || string(p.currentToken.Value) != "endobj" {
		return nil, fmt.Errorf("expected 'endobj' keyword, got %v", p.currentToken)
	}
	p.nextToken()

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: obj,
	}, nil
}

// parseStream reads the binary stream body following the "stream" keyword.
// The byte count comes from the /Length entry, resolved through the
// reference resolver when indirect.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	if p.currentToken.Type != TokenKeyword || string(p.currentToken.Value) != "stream" {
		return nil, fmt.Errorf("expected 'stream' keyword")
	}

	var length int
	switch v := dict.Get("Length").(type) {
	case Int:
		length = int(v)
	case IndirectRef:
		if p.resolver == nil {
			return nil, fmt.Errorf("indirect stream length requires a reference resolver")
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("resolve stream length: %w", err)
		}
		n, ok := resolved.(Int)
		if !ok {
			return nil, fmt.Errorf("stream length resolved to %T, expected Int", resolved)
		}
		length = int(n)
	case nil:
		return nil, fmt.Errorf("stream dictionary missing /Length")
	default:
		return nil, fmt.Errorf("invalid stream length type %T", v)
	}
	if length < 0 {
		return nil, fmt.Errorf("invalid stream length %d", length)
	}

	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, err
	}
	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, err
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		return nil, fmt.Errorf("token after stream data: %w", err)
	}
	if token.Type != TokenKeyword || string(token.Value) != "endstream" {
		return nil, fmt.Errorf("expected 'endstream', got %q", token.Value)
	}

	// Reprime the lookahead window for the caller.
	p.currentToken = nil
	p.peekToken = nil
	p.nextToken()
	p.nextToken()

	return &Stream{Dict: dict, Raw: data}, nil
}
