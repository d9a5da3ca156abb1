package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextToken_Operators(t *testing.T) {
	src := `+ - * / % == != < > <= >= = ( ) , ;`
	l := New(src)
	want := []TokenType{PLUS, MINUS, STAR, SLASH, PCT, EQ, NEQ, LT, GT, LTE, GTE, ASSIGN, LPAREN, RPAREN, COMMA, SEMI}
	for _, w := range want {
		tok := l.NextToken()
		assert.Equal(t, w, tok.Type)
	}
	assert.Equal(t, EOF, l.NextToken().Type)
}

func TestNextToken_LogicalOperatorAliases(t *testing.T) {
	l := New("$a and $b && $c or $d || $e")
	want := []TokenType{VARIABLE, AND, VARIABLE, AND, VARIABLE, OR, VARIABLE, OR, VARIABLE}
	for _, w := range want {
		tok := l.NextToken()
		assert.Equal(t, w, tok.Type)
	}
}

func TestNextToken_Keywords(t *testing.T) {
	l := New("if THEN eLsE endif while")
	assert.Equal(t, IF, l.NextToken().Type)
	assert.Equal(t, THEN, l.NextToken().Type)
	assert.Equal(t, ELSE, l.NextToken().Type)
	assert.Equal(t, ENDIF, l.NextToken().Type)
	assert.Equal(t, WHILE, l.NextToken().Type)
}

func TestNextToken_KeywordCasingPreserved(t *testing.T) {
	l := New("Say")
	tok := l.NextToken()
	assert.Equal(t, SAY, tok.Type)
	assert.Equal(t, "Say", tok.Lexeme)
}

func TestNextToken_Variable(t *testing.T) {
	l := New("$count")
	tok := l.NextToken()
	assert.Equal(t, VARIABLE, tok.Type)
	assert.Equal(t, "count", tok.Lexeme)
}

func TestNextToken_BareDollarIsError(t *testing.T) {
	l := New("$ 1")
	tok := l.NextToken()
	assert.Equal(t, ERROR, tok.Type)
	assert.Len(t, l.Diagnostics, 1)
}

func TestNextToken_Numbers(t *testing.T) {
	l := New("42 3.14")
	i := l.NextToken()
	assert.Equal(t, INT, i.Type)
	assert.Equal(t, "42", i.Lexeme)
	f := l.NextToken()
	assert.Equal(t, FLOAT, f.Type)
	assert.Equal(t, "3.14", f.Lexeme)
}

func TestNextToken_MalformedNumberRecovers(t *testing.T) {
	l := New("1.2.3 say \"ok\"")
	bad := l.NextToken()
	assert.Equal(t, ERROR, bad.Type)
	assert.NotEmpty(t, l.Diagnostics)
	// Lexing continues past the bad token.
	assert.Equal(t, SAY, l.NextToken().Type)
}

func TestNextToken_StringEscapes(t *testing.T) {
	l := New(`"hello\nworld\t\"quoted\""`)
	tok := l.NextToken()
	assert.Equal(t, STRING, tok.Type)
	assert.Equal(t, "hello\nworld\t\"quoted\"", tok.Lexeme)
}

func TestNextToken_UnterminatedString(t *testing.T) {
	l := New("\"unterminated")
	tok := l.NextToken()
	assert.Equal(t, STRING, tok.Type)
	assert.Equal(t, "unterminated", tok.Lexeme)
	assert.Len(t, l.Diagnostics, 1)
}

func TestNextToken_UnknownEscape(t *testing.T) {
	l := New(`"a\qb"`)
	tok := l.NextToken()
	assert.Equal(t, STRING, tok.Type)
	assert.Equal(t, "a\\qb", tok.Lexeme)
	assert.Len(t, l.Diagnostics, 1)
}

// P1: lexer totality — for any input, lexing terminates with an EOF token.
func TestLexerTotality(t *testing.T) {
	inputs := []string{
		"", "   \n\n  ", "@@@", `say "unterminated`, "$ $ $",
		"def $x = 1 + 2 * (3 - 4) / 5 % 6",
	}
	for _, src := range inputs {
		l := New(src)
		var last Token
		for i := 0; i < 10000; i++ {
			last = l.NextToken()
			if last.Type == EOF {
				break
			}
		}
		assert.Equal(t, EOF, last.Type, "input %q never reached EOF", src)
	}
}

// P2: span monotonicity — token byte offsets strictly increase.
func TestSpanMonotonicity(t *testing.T) {
	src := "def $x = 1 + 2\nsay \"hi\"\nwhile $x < 3\n  $x = $x + 1\nendwhile"
	l := New(src)
	prev := -1
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		assert.Greater(t, tok.Span.ByteOffset, prev)
		prev = tok.Span.ByteOffset
	}
}

func TestLineCommentSkipped(t *testing.T) {
	l := New("say \"a\" // trailing comment\nsay \"b\"")
	assert.Equal(t, SAY, l.NextToken().Type)
	assert.Equal(t, STRING, l.NextToken().Type)
	assert.Equal(t, NEWLINE, l.NextToken().Type)
	assert.Equal(t, SAY, l.NextToken().Type)
}

func TestLexRecoveryScenario(t *testing.T) {
	// §8 scenario 6: say "ok" @ move
	l := New(`say "ok" @ move`)
	toks := l.All()
	assert.Len(t, l.Diagnostics, 1)
	assert.Contains(t, l.Diagnostics[0].Message, "@")
	types := make([]TokenType, 0, len(toks))
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Contains(t, types, SAY)
	assert.Contains(t, types, MOVE)
}
