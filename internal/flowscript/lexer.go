package flowscript

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// keywords maps a bare identifier's literal text to the specific token
// type the parser expects; anything not in this table stays a generic
// identifier (a node or job-type name).
var keywords = map[string]TokenType{
	"digraph": TokDigraph,
	"node":    TokNode,
	"shape":   TokShape,
	"label":   TokLabel,
	"data":    TokData,
}

// tokenPattern is a single alternation over every lexeme shape in the
// grammar, scanned in one regex pass per token. A lone "-" matches no
// alternative and is reported as a lex error.
var tokenPattern = regexp.MustCompile(
	`^\s*(?:` +
		`(->)` + // 1: arrow
		`|"([^"]*)"` + // 2: double-quoted string
		`|'([^']*)'` + // 3: single-quoted string
		`|([A-Za-z_][A-Za-z0-9_]*)` + // 4: identifier/keyword
		`|(\{)` + // 5
		`|(\})` + // 6
		`|(\[)` + // 7
		`|(\])` + // 8
		`|(;)` + // 9
		`|(=)` + // 10
		`|(,)` + // 11
		`)`,
)

// Tokenize scans FlowScript source into a token stream terminated by
// TokEOF. It reports a lexical error for any residue that the grammar's
// alternation doesn't recognize.
func Tokenize(src string) ([]Token, error) {
	remaining := src
	var tokens []Token

	for {
		trimmed := strings.TrimLeft(remaining, " \t\r\n")
		if trimmed == "" {
			break
		}
		loc := tokenPattern.FindStringSubmatchIndex(trimmed)
		if loc == nil || loc[0] != 0 {
			return nil, errors.Errorf("flowscript: lex error near %q", firstN(trimmed, 20))
		}
		tok, err := classify(trimmed, loc)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		remaining = trimmed[loc[1]:]
	}

	tokens = append(tokens, Token{Type: TokEOF})
	return tokens, nil
}

// group returns the text of capture group i (1-based) and whether it
// participated in the match, using the index pairs FindStringSubmatchIndex
// returns (a -1 start means the group didn't match, which string
// comparison alone can't distinguish from "matched empty string").
func group(s string, loc []int, i int) (string, bool) {
	start, end := loc[2*i], loc[2*i+1]
	if start == -1 {
		return "", false
	}
	return s[start:end], true
}

func classify(s string, loc []int) (Token, error) {
	if _, ok := group(s, loc, 1); ok {
		return Token{Type: TokArrow, Lexeme: "->"}, nil
	}
	if v, ok := group(s, loc, 2); ok {
		return Token{Type: TokString, Lexeme: v}, nil
	}
	if v, ok := group(s, loc, 3); ok {
		return Token{Type: TokString, Lexeme: v}, nil
	}
	if v, ok := group(s, loc, 4); ok {
		if tt, kw := keywords[v]; kw {
			return Token{Type: tt, Lexeme: v}, nil
		}
		return Token{Type: TokIdentifier, Lexeme: v}, nil
	}
	if _, ok := group(s, loc, 5); ok {
		return Token{Type: TokLBrace, Lexeme: "{"}, nil
	}
	if _, ok := group(s, loc, 6); ok {
		return Token{Type: TokRBrace, Lexeme: "}"}, nil
	}
	if _, ok := group(s, loc, 7); ok {
		return Token{Type: TokLBracket, Lexeme: "["}, nil
	}
	if _, ok := group(s, loc, 8); ok {
		return Token{Type: TokRBracket, Lexeme: "]"}, nil
	}
	if _, ok := group(s, loc, 9); ok {
		return Token{Type: TokSemicolon, Lexeme: ";"}, nil
	}
	if _, ok := group(s, loc, 10); ok {
		return Token{Type: TokEquals, Lexeme: "="}, nil
	}
	if _, ok := group(s, loc, 11); ok {
		return Token{Type: TokComma, Lexeme: ","}, nil
	}
	return Token{}, errors.New("flowscript: lex error: empty match")
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
