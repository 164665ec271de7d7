package ais

// SixbitChar maps one sixbit text code to a character. Code 0 is padding and
// reports ok=false so that callers skip it. Codes that fall outside every
// mapped range decode to '?'.
func SixbitChar(code uint8) (rune, bool) {
	switch {
	case code == 0:
		return 0, false
	case code == 32:
		return ' ', true
	case code >= 1 && code <= 31, code >= 33 && code <= 63:
		return rune(code) + 64, true
	case code >= 64 && code <= 95:
		return rune(code), true
	default:
		return '?', true
	}
}
