package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer performs single-pass, one-rune-lookahead tokenization of BotScript
// source. It never stops on bad input: NextToken's default case appends a
// diagnostic and advances past the offending code point (panic-mode
// recovery), guaranteeing P1 (lexer totality) — the final token emitted is
// always EOF.
type Lexer struct {
	src        string
	pos        int // byte offset of the rune at curr
	curr       rune
	currWidth  int
	line       int
	column     int // counts code points, 1-based
	Diagnostics []Diagnostic
}

// Diagnostic is a lexical error record, kept lexer-local so this package
// has no dependency on diag (diag depends on lexer for Span, not the
// other way around); callers fold these into diag.Diagnostic at the
// lex_error kind.
type Diagnostic struct {
	Span    Span
	Message string
}

// New creates a Lexer positioned at the start of src.
func New(src string) *Lexer {
	l := &Lexer{src: src, line: 1, column: 1}
	l.readRune()
	return l
}

func (l *Lexer) readRune() {
	if l.pos >= len(l.src) {
		l.curr = 0
		l.currWidth = 0
		return
	}
	r, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.curr = r
	l.currWidth = w
}

func (l *Lexer) peekRune() rune {
	if l.pos+l.currWidth >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+l.currWidth:])
	return r
}

// advance consumes the current rune and moves to the next one.
func (l *Lexer) advance() {
	if l.curr == 0 {
		return
	}
	if l.curr == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos += l.currWidth
	l.readRune()
}

func (l *Lexer) span(start int, startLine, startCol int) Span {
	return Span{Line: startLine, Column: startCol, ByteOffset: start, Length: l.pos - start}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.curr == ' ' || l.curr == '\t' || l.curr == '\r':
			l.advance()
		case l.curr == '/' && l.peekRune() == '/':
			for l.curr != '\n' && l.curr != 0 {
				l.advance()
			}
		default:
			return
		}
	}
}

// NextToken returns the next token in the stream, or an EOF token once the
// source is exhausted. Tokens are emitted in strictly increasing
// ByteOffset (P2).
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	startLine, startCol, start := l.line, l.column, l.pos

	switch {
	case l.curr == 0:
		return Token{Type: EOF, Lexeme: "", Span: l.span(start, startLine, startCol)}
	case l.curr == '\n':
		l.advance()
		return Token{Type: NEWLINE, Lexeme: "\n", Span: l.span(start, startLine, startCol)}
	case l.curr == '"':
		return l.readString(start, startLine, startCol)
	case l.curr == '$':
		return l.readVariable(start, startLine, startCol)
	case isDigit(l.curr):
		return l.readNumber(start, startLine, startCol)
	case isIdentStart(l.curr):
		return l.readIdentifier(start, startLine, startCol)
	default:
		return l.readOperator(start, startLine, startCol)
	}
}

func (l *Lexer) readOperator(start, startLine, startCol int) Token {
	two := func(next rune, two TokenType, one TokenType) Token {
		if l.peekRune() == next {
			l.advance()
			l.advance()
			return Token{Type: two, Lexeme: l.src[start:l.pos], Span: l.span(start, startLine, startCol)}
		}
		l.advance()
		return Token{Type: one, Lexeme: l.src[start:l.pos], Span: l.span(start, startLine, startCol)}
	}

	switch l.curr {
	case '=':
		return two('=', EQ, ASSIGN)
	case '!':
		if l.peekRune() == '=' {
			l.advance()
			l.advance()
			return Token{Type: NEQ, Lexeme: "!=", Span: l.span(start, startLine, startCol)}
		}
	case '&':
		// `&&` is recognized as an alias for the `and` keyword (§4.1 point
		// 8); a lone `&` has no meaning and falls through to the error case.
		if l.peekRune() == '&' {
			l.advance()
			l.advance()
			return Token{Type: AND, Lexeme: "&&", Span: l.span(start, startLine, startCol)}
		}
	case '|':
		if l.peekRune() == '|' {
			l.advance()
			l.advance()
			return Token{Type: OR, Lexeme: "||", Span: l.span(start, startLine, startCol)}
		}
	case '<':
		return two('=', LTE, LT)
	case '>':
		return two('=', GTE, GT)
	case '+':
		l.advance()
		return Token{Type: PLUS, Lexeme: "+", Span: l.span(start, startLine, startCol)}
	case '-':
		l.advance()
		return Token{Type: MINUS, Lexeme: "-", Span: l.span(start, startLine, startCol)}
	case '*':
		l.advance()
		return Token{Type: STAR, Lexeme: "*", Span: l.span(start, startLine, startCol)}
	case '/':
		l.advance()
		return Token{Type: SLASH, Lexeme: "/", Span: l.span(start, startLine, startCol)}
	case '%':
		l.advance()
		return Token{Type: PCT, Lexeme: "%", Span: l.span(start, startLine, startCol)}
	case '(':
		l.advance()
		return Token{Type: LPAREN, Lexeme: "(", Span: l.span(start, startLine, startCol)}
	case ')':
		l.advance()
		return Token{Type: RPAREN, Lexeme: ")", Span: l.span(start, startLine, startCol)}
	case ',':
		l.advance()
		return Token{Type: COMMA, Lexeme: ",", Span: l.span(start, startLine, startCol)}
	case ';':
		l.advance()
		return Token{Type: SEMI, Lexeme: ";", Span: l.span(start, startLine, startCol)}
	}

	// Unrecognized code point: diagnose and advance past it (panic mode),
	// never halting the lexer.
	offending := l.curr
	l.advance()
	sp := l.span(start, startLine, startCol)
	l.Diagnostics = append(l.Diagnostics, Diagnostic{Span: sp, Message: "unexpected character " + string(offending)})
	return Token{Type: ERROR, Lexeme: string(offending), Span: sp}
}

func (l *Lexer) readString(start, startLine, startCol int) Token {
	l.advance() // opening quote
	var b strings.Builder
	for {
		if l.curr == 0 || l.curr == '\n' {
			sp := l.span(start, startLine, startCol)
			l.Diagnostics = append(l.Diagnostics, Diagnostic{Span: sp, Message: "unterminated string literal"})
			return Token{Type: STRING, Lexeme: b.String(), Span: sp}
		}
		if l.curr == '"' {
			l.advance()
			break
		}
		if l.curr == '\\' {
			l.advance()
			switch l.curr {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				l.Diagnostics = append(l.Diagnostics, Diagnostic{
					Span:    l.span(l.pos, l.line, l.column),
					Message: "unrecognized escape sequence \\" + string(l.curr),
				})
				b.WriteByte('\\')
				b.WriteRune(l.curr)
			}
			l.advance()
			continue
		}
		b.WriteRune(l.curr)
		l.advance()
	}
	return Token{Type: STRING, Lexeme: b.String(), Span: l.span(start, startLine, startCol)}
}

func (l *Lexer) readVariable(start, startLine, startCol int) Token {
	l.advance() // '$'
	nameStart := l.pos
	if !isIdentStart(l.curr) {
		sp := l.span(start, startLine, startCol)
		l.Diagnostics = append(l.Diagnostics, Diagnostic{Span: sp, Message: "bare '$' is not a valid variable name"})
		return Token{Type: ERROR, Lexeme: "$", Span: sp}
	}
	for isIdentPart(l.curr) {
		l.advance()
	}
	return Token{Type: VARIABLE, Lexeme: l.src[nameStart:l.pos], Span: l.span(start, startLine, startCol)}
}

func (l *Lexer) readNumber(start, startLine, startCol int) Token {
	dots := 0
	for isDigit(l.curr) {
		l.advance()
	}
	if l.curr == '.' {
		dots++
		l.advance()
		for isDigit(l.curr) {
			l.advance()
		}
		if l.curr == '.' {
			// A second dot makes this a malformed number; diagnose and
			// consume the rest of the digit/dot run (all of "1.2.3") as
			// one ERROR token, so lexing resumes at the next real token.
			dots++
			for isDigit(l.curr) || l.curr == '.' {
				l.advance()
			}
			sp := l.span(start, startLine, startCol)
			l.Diagnostics = append(l.Diagnostics, Diagnostic{Span: sp, Message: "malformed number literal"})
			return Token{Type: ERROR, Lexeme: l.src[start:l.pos], Span: sp}
		}
	}
	typ := INT
	if dots == 1 {
		typ = FLOAT
	}
	return Token{Type: typ, Lexeme: l.src[start:l.pos], Span: l.span(start, startLine, startCol)}
}

func (l *Lexer) readIdentifier(start, startLine, startCol int) Token {
	for isIdentPart(l.curr) {
		l.advance()
	}
	lexeme := l.src[start:l.pos]
	return Token{Type: lookupIdent(lexeme), Lexeme: lexeme, Span: l.span(start, startLine, startCol)}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// All tokenizes the entire source and returns every non-EOF token,
// equivalent to repeatedly calling NextToken until EOF.
func (l *Lexer) All() []Token {
	var toks []Token
	for {
		t := l.NextToken()
		if t.Type == EOF {
			break
		}
		toks = append(toks, t)
	}
	return toks
}
