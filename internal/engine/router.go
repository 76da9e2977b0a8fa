package engine

// Match reports whether a routing tag satisfies an output's match pattern.
// The only metacharacter is '*', which matches any run of characters,
// including none. A plain pattern must equal the tag exactly.
func Match(pattern, tag string) bool {
	p, t := 0, 0
	star, mark := -1, 0
	for t < len(tag) {
		switch {
		case p < len(pattern) && (pattern[p] == tag[t]):
			p++
			t++
		case p < len(pattern) && pattern[p] == '*':
			star = p
			mark = t
			p++
		case star >= 0:
			p = star + 1
			mark++
			t = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
