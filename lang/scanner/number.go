package scanner

import "github.com/mna/vela/lang/token"

// number scans an integer or float literal starting at the current
// character, returning its token kind, raw source text and base (10, 16, 8
// or 2; always 10 for floats).
func (s *Scanner) number() (token.Token, string, int) {
	start := s.off
	base := 10

	if s.cur == '0' {
		switch s.peek() {
		case 'x', 'X':
			base = 16
			s.advance()
			s.advance()
			s.digitsWithUnderscore(isHexDigit)
			return token.INT, string(s.src[start:s.off]), base
		case 'o', 'O':
			base = 8
			s.advance()
			s.advance()
			s.digitsWithUnderscore(isOctalDigit)
			return token.INT, string(s.src[start:s.off]), base
		case 'b', 'B':
			base = 2
			s.advance()
			s.advance()
			s.digitsWithUnderscore(isBinaryDigit)
			return token.INT, string(s.src[start:s.off]), base
		}
	}

	s.digitsWithUnderscore(isDecimal)
	isFloat := false
	if s.cur == '.' && isDecimal(rune(s.peek())) {
		isFloat = true
		s.advance()
		s.digitsWithUnderscore(isDecimal)
	}
	if s.cur == 'e' || s.cur == 'E' {
		isFloat = true
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		s.digitsWithUnderscore(isDecimal)
	}

	lit := string(s.src[start:s.off])
	if isFloat {
		return token.FLOAT, lit, 10
	}
	return token.INT, lit, base
}

func (s *Scanner) digitsWithUnderscore(pred func(rune) bool) {
	for pred(s.cur) || s.cur == '_' {
		s.advance()
	}
}

func isHexDigit(r rune) bool {
	return isDecimal(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

func isOctalDigit(r rune) bool { return '0' <= r && r <= '7' }

func isBinaryDigit(r rune) bool { return r == '0' || r == '1' }
