package rules

import (
	"testing"

	"urlmapper/internal/pattern"
	"urlmapper/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRules(t *testing.T, pairs ...string) []Rule {
	t.Helper()
	require.Zero(t, len(pairs)%2)
	var rs []Rule
	for i := 0; i < len(pairs); i += 2 {
		p, err := pattern.Compile(pairs[i])
		require.NoError(t, err)
		rs = append(rs, Rule{Pattern: p, Mapping: model.Mapping{URL: p.String(), NewURL: pairs[i+1]}})
	}
	return rs
}

func evalNew(t *testing.T, e *Engine, q string) string {
	t.Helper()
	r, ok := e.Eval(q)
	if !ok {
		return ""
	}
	return r.Mapping.NewURL
}

func TestEvalSpecificity(t *testing.T) {
	e := New(mustRules(t,
		"foo.com/*/*", "C",
		"foo.com/*/baz", "B",
		"foo.com/bar/baz", "A",
	))

	assert.Equal(t, "A", evalNew(t, e, "foo.com/bar/baz"))
	assert.Equal(t, "B", evalNew(t, e, "foo.com/derp/baz"))
	assert.Equal(t, "C", evalNew(t, e, "foo.com/derp/any"))
	assert.Equal(t, "", evalNew(t, e, "foo.com/derp"))
}

func TestEvalTieBreakLeftmostLiteral(t *testing.T) {
	e := New(mustRules(t,
		"foo.com/*/spaghetti", "early",
		"foo.com/bar/*", "late",
	))
	assert.Equal(t, "late", evalNew(t, e, "foo.com/bar/spaghetti"))

	e = New(mustRules(t,
		"bar.com/*/*/baz", "earlyMulti",
		"bar.com/*/foo/*", "lateMulti",
	))
	assert.Equal(t, "lateMulti", evalNew(t, e, "bar.com/yolo/foo/baz"))
}

func TestEvalInsertionOrderIrrelevant(t *testing.T) {
	e := New(mustRules(t,
		"foo.com/bar/*", "late",
		"foo.com/*/spaghetti", "early",
	))
	assert.Equal(t, "late", evalNew(t, e, "foo.com/bar/spaghetti"))
}

func TestEvalSchemeAndTrailingSlash(t *testing.T) {
	e := New(mustRules(t, "foo.com", "host"))
	assert.Equal(t, "host", evalNew(t, e, "foo.com"))
	assert.Equal(t, "host", evalNew(t, e, "foo.com/"))
	assert.Equal(t, "host", evalNew(t, e, "https://foo.com/"))

	e = New(mustRules(t, "foo.com/*", "wild"))
	assert.Equal(t, "", evalNew(t, e, "foo.com"))
	assert.Equal(t, "", evalNew(t, e, "foo.com/"))
	assert.Equal(t, "wild", evalNew(t, e, "http://foo.com/x"))
}

func TestEvalWildcardNeedsNonEmptySegment(t *testing.T) {
	e := New(mustRules(t, "foo.com/*/baz", "B"))
	assert.Equal(t, "", evalNew(t, e, "foo.com//baz"))
}

func TestEvalNoRules(t *testing.T) {
	e := New(nil)
	_, ok := e.Eval("foo.com")
	assert.False(t, ok)
	_, ok = e.Eval("")
	assert.False(t, ok)
}

func TestCandidatesRanked(t *testing.T) {
	e := New(mustRules(t,
		"foo.com/*/*", "C",
		"foo.com/bar/baz", "A",
		"foo.com/*/baz", "B",
		"foo.com/bar/*", "D",
		"other.com/bar/baz", "X",
	))
	var got []string
	for _, r := range e.Candidates("foo.com/bar/baz") {
		got = append(got, r.Mapping.NewURL)
	}
	assert.Equal(t, []string{"A", "D", "B", "C"}, got)
}

func TestUpdate(t *testing.T) {
	e := New(nil)
	e.Update(mustRules(t, "foo.com/bar", "n"))
	assert.Equal(t, "n", evalNew(t, e, "foo.com/bar"))
}

// 任何命中结果都满足结构匹配约束
func TestEvalResultSatisfiesMatch(t *testing.T) {
	e := New(mustRules(t,
		"a.com/*", "1",
		"a.com/x/*", "2",
		"a.com/*/y", "3",
		"a.com/x/y", "4",
		"*/x", "5",
	))
	for _, q := range []string{"a.com/x", "a.com/x/y", "a.com/q/y", "a.com/x/q", "b.com/x", "a.com//y", "a.com"} {
		r, ok := e.Eval(q)
		if !ok {
			continue
		}
		qp := pattern.Parse(q)
		require.Len(t, r.Pattern, len(qp), q)
		for i, s := range r.Pattern {
			if s.Wildcard {
				assert.NotEmpty(t, qp[i].Value, q)
			} else {
				assert.Equal(t, s.Value, qp[i].Value, q)
			}
		}
	}
}

func TestCompare(t *testing.T) {
	p := func(s string) pattern.Pattern { return pattern.Parse(s) }
	assert.Negative(t, Compare(p("a/b/c"), p("a/*/c")))
	assert.Positive(t, Compare(p("a/*/*"), p("a/*/c")))
	assert.Negative(t, Compare(p("a/b/*"), p("a/*/c")))
	assert.Zero(t, Compare(p("a/*/c"), p("a/*/c")))
}
