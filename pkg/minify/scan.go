package minify

import (
	"fmt"
)

// maxDepth bounds bracket nesting; deeper sources are left untouched.
const maxDepth = 200

// logicalLine is one statement line of Python source, possibly spanning
// several physical lines through brackets, continuations or triple quotes.
type logicalLine struct {
	start  int // offset of the first physical line
	first  int // offset of the first significant character
	end    int // offset after the terminating newline
	indent int
	blank  bool

	tokens     int
	onlyString bool
	header     bool // def or class whose body starts on the next line
}

type scanner struct {
	src   []byte
	pos   int
	lines []logicalLine
}

func scanLines(src []byte) ([]logicalLine, error) {
	s := &scanner{src: src}
	for s.pos < len(s.src) {
		if err := s.line(); err != nil {
			return nil, err
		}
	}
	return s.lines, nil
}

func (s *scanner) line() error {
	ln := logicalLine{start: s.pos}
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == ' ' {
			ln.indent++
		} else if c == '\t' {
			ln.indent = (ln.indent/8 + 1) * 8
		} else if c != '\f' {
			break
		}
		s.pos++
	}
	ln.first = s.pos

	if s.pos >= len(s.src) || s.src[s.pos] == '\n' || s.src[s.pos] == '\r' || s.src[s.pos] == '#' {
		s.skipToEOL()
		ln.blank = true
		ln.end = s.pos
		s.lines = append(s.lines, ln)
		return nil
	}

	var (
		depth       int
		words       []string
		firstString bool
		last        byte
	)
scan:
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\n':
			s.pos++
			if depth == 0 {
				break scan
			}
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			s.pos++
		case c == '#':
			s.skipComment()
		case c == '\\':
			if s.pos+1 < len(s.src) && (s.src[s.pos+1] == '\n' || s.src[s.pos+1] == '\r') {
				s.pos++
				if s.src[s.pos] == '\r' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '\n' {
					s.pos++
				}
				s.pos++
				continue
			}
			return fmt.Errorf("%w: stray backslash at offset %d", ErrParse, s.pos)
		case c == '"' || c == '\'':
			if ln.tokens == 0 {
				firstString = true
			}
			ln.tokens++
			if err := s.skipString(); err != nil {
				return err
			}
			last = c
		case isWordByte(c):
			word := s.word()
			if s.pos < len(s.src) && (s.src[s.pos] == '"' || s.src[s.pos] == '\'') && isStringPrefix(word) {
				if ln.tokens == 0 {
					firstString = true
				}
				ln.tokens++
				if err := s.skipString(); err != nil {
					return err
				}
				last = '"'
				continue
			}
			if len(words) < 2 && ln.tokens == len(words) {
				words = append(words, word)
			}
			ln.tokens++
			last = word[len(word)-1]
		default:
			switch c {
			case '(', '[', '{':
				depth++
				if depth > maxDepth {
					return fmt.Errorf("%w: nesting deeper than %d", ErrTooDeep, maxDepth)
				}
			case ')', ']', '}':
				depth--
				if depth < 0 {
					return fmt.Errorf("%w: unbalanced %q at offset %d", ErrParse, c, s.pos)
				}
			}
			ln.tokens++
			last = c
			s.pos++
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unclosed bracket at end of file", ErrParse)
	}
	ln.end = s.pos
	ln.onlyString = firstString && ln.tokens == 1
	if last == ':' && len(words) > 0 {
		switch {
		case words[0] == "def" || words[0] == "class":
			ln.header = true
		case words[0] == "async" && len(words) > 1 && words[1] == "def":
			ln.header = true
		}
	}
	s.lines = append(s.lines, ln)
	return nil
}

func (s *scanner) skipToEOL() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
	if s.pos < len(s.src) {
		s.pos++
	}
}

// skipComment stops before the newline so the caller sees the line end.
func (s *scanner) skipComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) word() string {
	start := s.pos
	for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
		s.pos++
	}
	return string(s.src[start:s.pos])
}

// skipString consumes a string literal starting at the opening quote.
// Backslashes escape the following byte in every string kind, raw strings
// included, as far as finding the closing quote is concerned.
func (s *scanner) skipString() error {
	start := s.pos
	q := s.src[s.pos]
	triple := s.pos+2 < len(s.src) && s.src[s.pos+1] == q && s.src[s.pos+2] == q
	if triple {
		s.pos += 3
	} else {
		s.pos++
	}
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos += 2
		case c == q && !triple:
			s.pos++
			return nil
		case c == q && s.pos+2 < len(s.src) && s.src[s.pos+1] == q && s.src[s.pos+2] == q:
			s.pos += 3
			return nil
		case c == '\n' && !triple:
			return fmt.Errorf("%w: unterminated string at offset %d", ErrParse, start)
		default:
			s.pos++
		}
	}
	return fmt.Errorf("%w: unterminated string at offset %d", ErrParse, start)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isStringPrefix(word string) bool {
	switch len(word) {
	case 1, 2:
	default:
		return false
	}
	for i := 0; i < len(word); i++ {
		switch word[i] {
		case 'r', 'R', 'b', 'B', 'u', 'U', 'f', 'F':
		default:
			return false
		}
	}
	return true
}
