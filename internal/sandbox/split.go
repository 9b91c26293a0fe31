package sandbox

import "strings"

// SplitStatements splits a SQL script into individual statements on
// top-level semicolons. Semicolons inside quoted strings, dollar-quoted
// strings, quoted identifiers and comments do not split, nor do those inside
// the BEGIN ... END body of a CREATE TRIGGER. Statements that contain only
// whitespace or comments are dropped. The returned statements keep their
// original text, without the terminating semicolon.
func SplitStatements(script string) []string {
	var (
		stmts   []string
		start   int
		hasCode bool
		block   blockTracker
	)

	flush := func(end int) {
		if hasCode {
			stmts = append(stmts, strings.TrimSpace(script[start:end]))
		}
		hasCode = false
		block = blockTracker{}
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			hasCode = true
			i = skipQuoted(script, i, c)
		case c == '[':
			hasCode = true
			i = skipUntil(script, i+1, "]")
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			i = skipUntil(script, i+2, "\n")
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			i = skipUntil(script, i+2, "*/")
		case c == '$' && (i == 0 || !isIdentChar(script[i-1])):
			hasCode = true
			if tag := dollarTag(script, i); tag != "" {
				i = skipUntil(script, i+len(tag), tag)
			}
		case isIdentStart(c):
			hasCode = true
			j := i + 1
			for j < len(script) && isIdentChar(script[j]) {
				j++
			}
			block.word(strings.ToUpper(script[i:j]))
			i = j - 1
		case c == ';':
			if block.depth > 0 {
				continue
			}
			flush(i)
			start = i + 1
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			hasCode = true
		}
	}
	flush(len(script))

	return stmts
}

// blockTracker follows the keywords of one statement to find the body of a
// trigger, whose inner statements end in semicolons of their own.
type blockTracker struct {
	first   string
	trigger bool
	depth   int
}

func (b *blockTracker) word(w string) {
	if b.first == "" {
		b.first = w
	}
	if b.first == "CREATE" && w == "TRIGGER" {
		b.trigger = true
	}
	if !b.trigger {
		return
	}
	switch w {
	case "BEGIN":
		b.depth++
	case "CASE":
		if b.depth > 0 {
			b.depth++
		}
	case "END":
		if b.depth > 0 {
			b.depth--
		}
	}
}

// dollarTag returns the delimiter of the dollar-quoted string opened at i,
// such as $$ or $body$, or "" if none starts there. Positional parameters
// like $1 are not delimiters.
func dollarTag(s string, i int) string {
	j := i + 1
	if j < len(s) && isIdentStart(s[j]) {
		for j < len(s) && s[j] != '$' && isIdentChar(s[j]) {
			j++
		}
	}
	if j < len(s) && s[j] == '$' {
		return s[i : j+1]
	}
	return ""
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}

// skipQuoted returns the index of the closing quote of the quoted section
// opened at i. A doubled quote character is an escaped quote.
func skipQuoted(s string, i int, quote byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != quote {
			continue
		}
		if j+1 < len(s) && s[j+1] == quote {
			j++
			continue
		}
		return j
	}
	return len(s) - 1
}

// skipUntil returns the index of the last byte of the first occurrence of
// terminator at or after i, or the end of s.
func skipUntil(s string, i int, terminator string) int {
	if i > len(s) {
		return len(s) - 1
	}
	idx := strings.Index(s[i:], terminator)
	if idx < 0 {
		return len(s) - 1
	}
	return i + idx + len(terminator) - 1
}
