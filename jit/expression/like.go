package expression

import (
	"strings"

	"github.com/pecbali/hyrise-jit/jit/runtime"
)

// likeOp is one compiled step of a LIKE pattern: either a literal run of
// characters that must match exactly, or a wildcard ('%': any run,
// possibly empty; '_': exactly one character).
type likeOp struct {
	literal  string
	wildcard byte // 0, '%', or '_'
}

// LikeMatcher is a pattern compiled once at plan time (§4.2): '%' matches
// any (possibly empty) run of characters, '_' matches exactly one
// character, '\' escapes the next metacharacter.
type LikeMatcher struct {
	ops []likeOp
}

// CompileLike compiles pattern into a LikeMatcher.
func CompileLike(pattern string) *LikeMatcher {
	m := &LikeMatcher{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			m.ops = append(m.ops, likeOp{literal: lit.String()})
			lit.Reset()
		}
	}
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			if i+1 < len(runes) {
				i++
				lit.WriteRune(runes[i])
			}
		case '%':
			flush()
			m.ops = append(m.ops, likeOp{wildcard: '%'})
		case '_':
			flush()
			m.ops = append(m.ops, likeOp{wildcard: '_'})
		default:
			lit.WriteRune(runes[i])
		}
	}
	flush()
	return m
}

// Match reports whether s satisfies the compiled pattern. A pattern with
// no metacharacters behaves exactly like Eq (§8's boundary case).
func (m *LikeMatcher) Match(s string) bool {
	return matchOps(m.ops, []rune(s))
}

func matchOps(ops []likeOp, s []rune) bool {
	if len(ops) == 0 {
		return len(s) == 0
	}
	op := ops[0]
	switch op.wildcard {
	case 0:
		lit := []rune(op.literal)
		if len(s) < len(lit) {
			return false
		}
		for i, r := range lit {
			if s[i] != r {
				return false
			}
		}
		return matchOps(ops[1:], s[len(lit):])
	case '_':
		if len(s) < 1 {
			return false
		}
		return matchOps(ops[1:], s[1:])
	case '%':
		for i := 0; i <= len(s); i++ {
			if matchOps(ops[1:], s[i:]) {
				return true
			}
		}
		return false
	}
	return false
}

func (e *Expr) evalLike(ctx *runtime.Context) (interface{}, bool) {
	lv, lnull := e.Left.eval(ctx)
	_, rnull := e.Right.eval(ctx)
	if lnull || rnull {
		return nil, true
	}
	matched := e.Matcher.Match(lv.(string))
	if e.Kind == NotLike {
		return !matched, false
	}
	return matched, false
}
