package topic

import (
	"regexp"
	"strings"
	"sync"
)

// Pattern is a compiled wildcard pattern. It is immutable and safe for
// concurrent use.
type Pattern struct {
	raw string

	// all is set for "*" and "**", which match every name.
	all bool

	// literal is set when raw has no wildcards; Match is then a string compare.
	literal bool

	re *regexp.Regexp
}

// cache maps raw pattern text to *Pattern. Entries are never evicted.
var cache sync.Map

// Compile returns the compiled form of pattern, compiling it on first use.
// Identical pattern text always yields the same *Pattern.
func Compile(pattern string) *Pattern {
	if p, ok := cache.Load(pattern); ok {
		return p.(*Pattern)
	}
	p, _ := cache.LoadOrStore(pattern, compile(pattern))
	return p.(*Pattern)
}

// Match reports whether name matches pattern.
func Match(pattern, name string) bool {
	return Compile(pattern).Match(name)
}

// compile builds a Pattern without consulting the cache.
func compile(raw string) *Pattern {
	p := &Pattern{raw: raw}

	switch {
	case raw == WildcardSingle || raw == WildcardMulti:
		p.all = true
		return p
	case !IsPattern(raw):
		p.literal = true
		return p
	}

	var b strings.Builder
	b.WriteString(`(?s)^`)

	literalStart := 0
	flush := func(end int) {
		if end > literalStart {
			b.WriteString(regexp.QuoteMeta(raw[literalStart:end]))
		}
	}

	for i := 0; i < len(raw); {
		switch raw[i] {
		case '*':
			flush(i)
			if i+1 < len(raw) && raw[i+1] == '*' {
				b.WriteString(`.*`)
				i += 2
			} else {
				b.WriteString(`[^.]*`)
				i++
			}
			literalStart = i
		case '?':
			flush(i)
			b.WriteString(`[^.]`)
			i++
			literalStart = i
		default:
			i++
		}
	}
	flush(len(raw))
	b.WriteString(`$`)

	// Every non-wildcard byte is quoted, so the expression always compiles.
	p.re = regexp.MustCompile(b.String())
	return p
}

// Match reports whether name matches the pattern.
func (p *Pattern) Match(name string) bool {
	switch {
	case p.all:
		return true
	case p.literal:
		return name == p.raw
	default:
		return p.re.MatchString(name)
	}
}
