package rules

import (
	"slices"

	"urlmapper/internal/pattern"
	"urlmapper/pkg/model"

	"github.com/samber/lo"
)

// Rule 已编译的规则
type Rule struct {
	Pattern pattern.Pattern
	Mapping model.Mapping
}

// Engine 规则匹配引擎，本身不加锁，由持有者负责串行化
type Engine struct {
	rs []Rule
}

func New(rs []Rule) *Engine { return &Engine{rs: rs} }

func (e *Engine) Update(rs []Rule) { e.rs = rs }

// Eval 返回与请求地址最匹配的规则
func (e *Engine) Eval(rawURL string) (*Rule, bool) {
	cands := e.candidates(pattern.Parse(rawURL))
	if len(cands) == 0 {
		return nil, false
	}
	best := cands[0]
	for _, r := range cands[1:] {
		if Compare(r.Pattern, best.Pattern) < 0 {
			best = r
		}
	}
	return best, true
}

// Candidates 返回全部结构匹配的规则，按优先级从高到低排列
func (e *Engine) Candidates(rawURL string) []*Rule {
	cands := e.candidates(pattern.Parse(rawURL))
	slices.SortStableFunc(cands, func(a, b *Rule) int {
		return Compare(a.Pattern, b.Pattern)
	})
	return cands
}

func (e *Engine) candidates(q pattern.Pattern) []*Rule {
	ptrs := lo.Map(e.rs, func(_ Rule, i int) *Rule { return &e.rs[i] })
	return lo.Filter(ptrs, func(r *Rule, _ int) bool {
		return Matches(q, r.Pattern)
	})
}

// Matches 结构匹配：长度相同，字面量段逐一相等，通配段对应非空段
func Matches(q, p pattern.Pattern) bool {
	if len(q) != len(p) {
		return false
	}
	for i, s := range p {
		if s.Wildcard {
			if q[i].Value == "" {
				return false
			}
			continue
		}
		if q[i].Value != s.Value {
			return false
		}
	}
	return true
}

// Compare 比较两个匹配同一请求的模式的具体程度，返回负数表示 a 更具体。
// 先比通配段数量，少者优先；数量相同时自左向右找第一个不同位置，字面量优先。
func Compare(a, b pattern.Pattern) int {
	if d := a.Wildcards() - b.Wildcards(); d != 0 {
		return d
	}
	// 两个模式都匹配同一请求时长度必然相同
	return slices.Compare(a.Mask(), b.Mask())
}
