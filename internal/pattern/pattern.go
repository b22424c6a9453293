// Package pattern 将规则源地址与请求地址编译为有序的路径段序列。
package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard 通配段的书写形式
const Wildcard = "*"

var schemes = []string{"http://", "https://"}

// ErrInvalidPattern 规则地址无法编译
var ErrInvalidPattern = errors.New("invalid pattern")

// InvalidPatternError 描述无法编译的规则地址
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
}

func (e *InvalidPatternError) Unwrap() error { return ErrInvalidPattern }

// Segment 路径段：字面量或通配
type Segment struct {
	Value    string
	Wildcard bool
}

// Literal 构造字面量段
func Literal(v string) Segment { return Segment{Value: v} }

// Any 构造通配段
func Any() Segment { return Segment{Value: Wildcard, Wildcard: true} }

// Pattern 规范化后的段序列，第一段为主机
type Pattern []Segment

// Normalize 去掉协议前缀，并把仅含主机且带尾部斜杠的地址折叠为不带斜杠的形式
func Normalize(raw string) string {
	for _, s := range schemes {
		if strings.HasPrefix(raw, s) {
			raw = raw[len(s):]
			break
		}
	}
	if host, rest, ok := strings.Cut(raw, "/"); ok && rest == "" {
		return host
	}
	return raw
}

// Parse 编译请求地址，从不失败
func Parse(raw string) Pattern {
	parts := strings.Split(Normalize(raw), "/")
	p := make(Pattern, len(parts))
	for i, v := range parts {
		if v == Wildcard {
			p[i] = Any()
		} else {
			p[i] = Literal(v)
		}
	}
	return p
}

// Compile 编译规则地址
func Compile(raw string) (Pattern, error) {
	norm := Normalize(raw)
	switch {
	case norm == "":
		return nil, &InvalidPatternError{Pattern: raw, Reason: "empty"}
	case strings.HasPrefix(norm, "/"):
		return nil, &InvalidPatternError{Pattern: raw, Reason: "missing host"}
	}
	return Parse(norm), nil
}

// String 返回规范化的地址，即存储时使用的键
func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.Value
	}
	return strings.Join(parts, "/")
}

// Wildcards 通配段数量
func (p Pattern) Wildcards() int {
	n := 0
	for _, s := range p {
		if s.Wildcard {
			n++
		}
	}
	return n
}

// Mask 指示向量：字面量为0，通配为1
func (p Pattern) Mask() []uint8 {
	m := make([]uint8, len(p))
	for i, s := range p {
		if s.Wildcard {
			m[i] = 1
		}
	}
	return m
}
