package expr

import (
	"fmt"
	"strings"
	"unicode"
)

// Lexer tokenizes constraint expressions
type Lexer struct {
	input   string
	pos     int
	tokens  []Token
	current int
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Lex tokenizes the entire input
func (l *Lexer) Lex() error {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			break
		}

		start := l.pos
		ch := l.peek()
		switch {
		case ch == '\'' || ch == '"':
			str, err := l.readString(ch)
			if err != nil {
				return err
			}
			l.emit(TokenString, str, start)
		case isDigit(ch):
			l.emit(TokenNumber, l.readNumber(), start)
		case isIdentStart(ch):
			l.emit(TokenIdent, l.readIdent(), start)
		case ch == '.':
			l.pos++
			l.emit(TokenDot, ".", start)
		case ch == ',':
			l.pos++
			l.emit(TokenComma, ",", start)
		case ch == '(':
			l.pos++
			l.emit(TokenLeftParen, "(", start)
		case ch == ')':
			l.pos++
			l.emit(TokenRightParen, ")", start)
		case ch == '[':
			l.pos++
			l.emit(TokenLeftBracket, "[", start)
		case ch == ']':
			l.pos++
			l.emit(TokenRightBracket, "]", start)
		default:
			op := l.readOperator()
			if op == "" {
				return fmt.Errorf("unexpected character '%c' at %d", ch, l.pos)
			}
			l.emit(TokenOperator, op, start)
		}
	}

	l.emit(TokenEOF, "", l.pos)
	return nil
}

// Tokens returns every token produced by Lex
func (l *Lexer) Tokens() []Token {
	return l.tokens
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	if l.current >= len(l.tokens) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}
	token := l.tokens[l.current]
	l.current++
	return token
}

// PeekToken returns the next token without advancing
func (l *Lexer) PeekToken() Token {
	return l.PeekAt(0)
}

// PeekAt returns the token n positions ahead without advancing
func (l *Lexer) PeekAt(n int) Token {
	if l.current+n >= len(l.tokens) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}
	return l.tokens[l.current+n]
}

func (l *Lexer) emit(typ TokenType, value string, pos int) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: value, Pos: pos})
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

// readString reads a single- or double-quoted string literal
func (l *Lexer) readString(quote byte) (string, error) {
	var result strings.Builder
	start := l.pos
	l.pos++ // skip opening quote

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == quote:
			l.pos++
			return result.String(), nil
		case ch == '\\':
			l.pos++
			if l.pos >= len(l.input) {
				return "", fmt.Errorf("unexpected end of input in string at %d", l.pos)
			}
			escaped := l.input[l.pos]
			switch escaped {
			case 't':
				result.WriteByte('\t')
			case 'n':
				result.WriteByte('\n')
			case '\\', '\'', '"':
				result.WriteByte(escaped)
			default:
				return "", fmt.Errorf("invalid escape sequence '\\%c' at %d", escaped, l.pos)
			}
			l.pos++
		default:
			result.WriteByte(ch)
			l.pos++
		}
	}

	return "", fmt.Errorf("unterminated string at %d", start)
}

// readNumber reads an integer or a decimal literal. A dot is only part of
// the number when a digit follows it.
func (l *Lexer) readNumber() string {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for l.pos < len(l.input) && (isIdentStart(l.input[l.pos]) || isDigit(l.input[l.pos])) {
		l.pos++
	}
	return l.input[start:l.pos]
}

var operators = []string{"==", "!=", "<=", ">=", "<", ">", "+", "-", "*", "/", "%"}

func (l *Lexer) readOperator() string {
	for _, op := range operators {
		if strings.HasPrefix(l.input[l.pos:], op) {
			l.pos += len(op)
			return op
		}
	}
	return ""
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
