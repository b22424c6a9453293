// Package notify 将规则变更编码为 JSON 事件。
package notify

import (
	"io"
	"sync"
	"time"

	"urlmapper/internal/logger"
	"urlmapper/pkg/model"

	"github.com/tidwall/sjson"
)

// Encode 编码一次变更，mappings 为完整列表
func Encode(ch model.Change, at time.Time) ([]byte, error) {
	b := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			b, err = sjson.SetBytes(b, path, v)
		}
	}
	set("op", string(ch.Op))
	if ch.URL != "" {
		set("url", ch.URL)
	}
	set("time", at.UTC().Format(time.RFC3339Nano))
	set("count", len(ch.Mappings))
	set("mappings", []any{})
	for _, m := range ch.Mappings {
		set("mappings.-1", m)
	}
	return b, err
}

// Writer 返回把每次变更写为一行 JSON 的订阅者
func Writer(w io.Writer, l logger.Logger) model.Notifier {
	var mu sync.Mutex
	return func(ch model.Change) {
		b, err := Encode(ch, time.Now())
		if err != nil {
			l.Error("编码变更事件失败", "op", string(ch.Op), "error", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if _, err := w.Write(append(b, '\n')); err != nil {
			l.Warn("写出变更事件失败", "op", string(ch.Op), "error", err)
		}
	}
}

// Chain 依次调用多个订阅者
func Chain(ns ...model.Notifier) model.Notifier {
	return func(ch model.Change) {
		for _, n := range ns {
			if n != nil {
				n(ch)
			}
		}
	}
}
