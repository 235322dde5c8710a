package expr

import (
	"reflect"
	"testing"
)

func TestLexerBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "empty input",
			input: "",
			expected: []Token{
				{Type: TokenEOF, Pos: 0},
			},
		},
		{
			name:  "shorthand access",
			input: "E.c > 5",
			expected: []Token{
				{Type: TokenIdent, Value: "E", Pos: 0},
				{Type: TokenDot, Value: ".", Pos: 1},
				{Type: TokenIdent, Value: "c", Pos: 2},
				{Type: TokenOperator, Value: ">", Pos: 4},
				{Type: TokenNumber, Value: "5", Pos: 6},
				{Type: TokenEOF, Pos: 7},
			},
		},
		{
			name:  "subscript with string",
			input: `E_F['udi:cardinality']`,
			expected: []Token{
				{Type: TokenIdent, Value: "E_F", Pos: 0},
				{Type: TokenLeftBracket, Value: "[", Pos: 3},
				{Type: TokenString, Value: "udi:cardinality", Pos: 4},
				{Type: TokenRightBracket, Value: "]", Pos: 21},
				{Type: TokenEOF, Pos: 22},
			},
		},
		{
			name:  "decimal and escapes",
			input: `1.5 "a\"b"`,
			expected: []Token{
				{Type: TokenNumber, Value: "1.5", Pos: 0},
				{Type: TokenString, Value: `a"b`, Pos: 4},
				{Type: TokenEOF, Pos: 10},
			},
		},
		{
			name:  "two character operators",
			input: "a<=b!=c",
			expected: []Token{
				{Type: TokenIdent, Value: "a", Pos: 0},
				{Type: TokenOperator, Value: "<=", Pos: 1},
				{Type: TokenIdent, Value: "b", Pos: 3},
				{Type: TokenOperator, Value: "!=", Pos: 4},
				{Type: TokenIdent, Value: "c", Pos: 6},
				{Type: TokenEOF, Pos: 7},
			},
		},
		{
			name:  "list literal",
			input: "['q', 'n']",
			expected: []Token{
				{Type: TokenLeftBracket, Value: "[", Pos: 0},
				{Type: TokenString, Value: "q", Pos: 1},
				{Type: TokenComma, Value: ",", Pos: 4},
				{Type: TokenString, Value: "n", Pos: 6},
				{Type: TokenRightBracket, Value: "]", Pos: 9},
				{Type: TokenEOF, Pos: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			if err := lexer.Lex(); err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			if !reflect.DeepEqual(lexer.Tokens(), tt.expected) {
				t.Errorf("Lex() tokens = %v, want %v", lexer.Tokens(), tt.expected)
			}
		})
	}
}

func TestLexerNumberFollowedByDot(t *testing.T) {
	lexer := NewLexer("1.c")
	if err := lexer.Lex(); err != nil {
		t.Fatalf("Lex() error = %v", err)
	}
	tokens := lexer.Tokens()
	if len(tokens) != 4 || tokens[0].Value != "1" || tokens[1].Type != TokenDot {
		t.Errorf("unexpected tokens %v", tokens)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", "'abc"},
		{"bad escape", `'a\qb'`},
		{"unknown character", "E.c @ 3"},
		{"lone bang", "!x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewLexer(tt.input).Lex(); err == nil {
				t.Errorf("expected error for %q", tt.input)
			}
		})
	}
}

func TestLexerPeek(t *testing.T) {
	lexer := NewLexer("not in")
	if err := lexer.Lex(); err != nil {
		t.Fatal(err)
	}
	if !lexer.PeekToken().Is("not") || !lexer.PeekAt(1).Is("in") {
		t.Fatalf("unexpected lookahead %v %v", lexer.PeekToken(), lexer.PeekAt(1))
	}
	lexer.NextToken()
	lexer.NextToken()
	if lexer.NextToken().Type != TokenEOF || lexer.NextToken().Type != TokenEOF {
		t.Errorf("expected EOF after all tokens")
	}
}
