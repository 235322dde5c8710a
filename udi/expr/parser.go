package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser builds a Node tree from constraint tokens
type Parser struct {
	lexer *Lexer
}

// NewParser creates a new parser
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// Parse parses a single constraint expression
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("empty expression")
	}

	lexer := NewLexer(input)
	if err := lexer.Lex(); err != nil {
		return nil, err
	}

	parser := NewParser(lexer)
	return parser.Parse()
}

// Parse reads one expression and requires the input to end after it
func (p *Parser) Parse() (Node, error) {
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.lexer.PeekToken(); tok.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %s after expression", tok)
	}
	return n, nil
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.lexer.PeekToken().Is("or") {
		p.lexer.NextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.lexer.PeekToken().Is("and") {
		p.lexer.NextToken()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Node, error) {
	if p.lexer.PeekToken().Is("not") {
		p.lexer.NextToken()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

// parseComparison reads a chain such as a < b <= c or x not in y
func (p *Parser) parseComparison() (Node, error) {
	first, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	cmp := &Compare{Terms: []Node{first}}
	for {
		op, ok := p.comparisonOp()
		if !ok {
			break
		}
		term, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Terms = append(cmp.Terms, term)
	}

	if len(cmp.Ops) == 0 {
		return first, nil
	}
	return cmp, nil
}

// comparisonOp consumes the next comparison operator, if any
func (p *Parser) comparisonOp() (string, bool) {
	tok := p.lexer.PeekToken()
	switch {
	case tok.Type == TokenOperator:
		switch tok.Value {
		case "==", "!=", "<", "<=", ">", ">=":
			p.lexer.NextToken()
			return tok.Value, true
		}
	case tok.Is("in"):
		p.lexer.NextToken()
		return "in", true
	case tok.Is("not") && p.lexer.PeekAt(1).Is("in"):
		p.lexer.NextToken()
		p.lexer.NextToken()
		return "not in", true
	}
	return "", false
}

func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.lexer.PeekToken()
		if !tok.Is("+") && !tok.Is("-") {
			return left, nil
		}
		p.lexer.NextToken()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.Value, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.lexer.PeekToken()
		if !tok.Is("*") && !tok.Is("/") && !tok.Is("%") {
			return left, nil
		}
		p.lexer.NextToken()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.Value, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (Node, error) {
	if p.lexer.PeekToken().Is("-") {
		p.lexer.NextToken()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := x.(*Literal); ok {
			switch v := lit.Value.(type) {
			case int64:
				return &Literal{Value: -v}, nil
			case float64:
				return &Literal{Value: -v}, nil
			}
		}
		return &Unary{Op: "-", X: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix reads a primary followed by any number of .name and [key] accessors
func (p *Parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.lexer.PeekToken()
		switch tok.Type {
		case TokenDot:
			p.lexer.NextToken()
			name := p.lexer.NextToken()
			if name.Type != TokenIdent {
				return nil, fmt.Errorf("expected attribute name after '.' at %d, got %s", tok.Pos, name)
			}
			x = &Member{X: x, Name: name.Value}
		case TokenLeftBracket:
			p.lexer.NextToken()
			key, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokenRightBracket, "]"); err != nil {
				return nil, err
			}
			if lit, ok := key.(*Literal); ok {
				if s, ok := lit.Value.(string); ok {
					x = &Attr{X: x, Key: s}
					continue
				}
			}
			x = &Index{X: x, Key: key}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.lexer.NextToken()

	switch tok.Type {
	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of expression at %d", tok.Pos)

	case TokenNumber:
		return parseNumber(tok)

	case TokenString:
		return &Literal{Value: tok.Value}, nil

	case TokenIdent:
		switch tok.Value {
		case "True":
			return &Literal{Value: true}, nil
		case "False":
			return &Literal{Value: false}, nil
		case "None":
			return &Literal{Value: nil}, nil
		case "and", "or", "not", "in":
			return nil, fmt.Errorf("unexpected keyword %q at %d", tok.Value, tok.Pos)
		}
		return &Var{Name: tok.Value}, nil

	case TokenLeftParen:
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen, ")"); err != nil {
			return nil, err
		}
		return x, nil

	case TokenLeftBracket:
		return p.parseList()
	}

	return nil, fmt.Errorf("unexpected %s", tok)
}

// parseList reads the elements of a list literal after its opening bracket
func (p *Parser) parseList() (Node, error) {
	list := &List{}
	if p.lexer.PeekToken().Type == TokenRightBracket {
		p.lexer.NextToken()
		return list, nil
	}

	for {
		elem, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, elem)

		tok := p.lexer.NextToken()
		switch tok.Type {
		case TokenRightBracket:
			return list, nil
		case TokenComma:
			// trailing comma
			if p.lexer.PeekToken().Type == TokenRightBracket {
				p.lexer.NextToken()
				return list, nil
			}
		default:
			return nil, fmt.Errorf("expected ',' or ']' in list, got %s", tok)
		}
	}
}

func (p *Parser) expect(typ TokenType, text string) error {
	tok := p.lexer.NextToken()
	if tok.Type != typ {
		return fmt.Errorf("expected '%s', got %s", text, tok)
	}
	return nil
}

func parseNumber(tok Token) (Node, error) {
	if strings.Contains(tok.Value, ".") {
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at %d: %w", tok.Value, tok.Pos, err)
		}
		return &Literal{Value: f}, nil
	}
	i, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q at %d: %w", tok.Value, tok.Pos, err)
	}
	return &Literal{Value: i}, nil
}
