package irtext

// tokenize splits one instruction line into tokens. Sigil-prefixed names
// (%reg, $local, .label) stay single tokens, the punctuation ( ) [ ] , =
// always stands alone, and a ; starts a comment running to the end of the
// line. Multibyte runes never collide with the ASCII punctuation bytes, so
// the scan works bytewise.
func tokenize(line string) []string {
	var toks []string
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ';':
			return toks
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case isPunct(c):
			toks = append(toks, string(c))
			i++
		default:
			j := i
			for j < len(line) && !isBoundary(line[j]) {
				j++
			}
			toks = append(toks, line[i:j])
			i = j
		}
	}
	return toks
}

func isPunct(c byte) bool {
	switch c {
	case '(', ')', '[', ']', ',', '=':
		return true
	}
	return false
}

func isBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == ';' || isPunct(c)
}
