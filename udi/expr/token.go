package expr

import "fmt"

// TokenType represents the type of a constraint token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenNumber
	TokenString
	TokenOperator
	TokenDot
	TokenComma
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
)

// Token represents a lexical token of a constraint expression
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Is reports whether the token is an identifier or operator with the given text.
func (t Token) Is(value string) bool {
	return (t.Type == TokenIdent || t.Type == TokenOperator) && t.Value == value
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return fmt.Sprintf("EOF[%d]", t.Pos)
	case TokenIdent:
		return fmt.Sprintf("Ident[%d]:%s", t.Pos, t.Value)
	case TokenNumber:
		return fmt.Sprintf("Number[%d]:%s", t.Pos, t.Value)
	case TokenString:
		return fmt.Sprintf("String[%d]:%q", t.Pos, t.Value)
	case TokenOperator:
		return fmt.Sprintf("Operator[%d]:%s", t.Pos, t.Value)
	case TokenDot:
		return fmt.Sprintf("Dot[%d]", t.Pos)
	case TokenComma:
		return fmt.Sprintf("Comma[%d]", t.Pos)
	case TokenLeftParen:
		return fmt.Sprintf("LeftParen[%d]", t.Pos)
	case TokenRightParen:
		return fmt.Sprintf("RightParen[%d]", t.Pos)
	case TokenLeftBracket:
		return fmt.Sprintf("LeftBracket[%d]", t.Pos)
	case TokenRightBracket:
		return fmt.Sprintf("RightBracket[%d]", t.Pos)
	default:
		return fmt.Sprintf("Unknown[%d]:%s", t.Pos, t.Value)
	}
}
