package mapper

import (
	"context"
	"sync"
	"time"

	"urlmapper/internal/ctxkeys"
	"urlmapper/internal/logger"
	"urlmapper/pkg/model"

	"github.com/google/uuid"
)

type opKind int

const (
	opInsert opKind = iota
	opRemove
	opBarrier
)

func (k opKind) String() string {
	switch k {
	case opInsert:
		return "insert"
	case opRemove:
		return "remove"
	default:
		return "barrier"
	}
}

type op struct {
	kind    opKind
	mapping model.Mapping
	done    chan struct{}
}

// writer 按提交顺序串行执行持久化操作。队列不设上限，提交从不阻塞，
// 积压超过 warnAt 时记录一次告警。
type writer struct {
	store   Store
	timeout time.Duration
	log     logger.Logger
	onErr   ErrorHandler
	warnAt  int

	mu      sync.Mutex
	pending []op
	closed  bool
	warned  bool
	wake    chan struct{}
	wg      sync.WaitGroup
}

func newWriter(store Store, warnAt int, timeout time.Duration, l logger.Logger, onErr ErrorHandler) *writer {
	w := &writer{
		store:   store,
		timeout: timeout,
		log:     l,
		onErr:   onErr,
		warnAt:  warnAt,
		wake:    make(chan struct{}, 1),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *writer) run() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		batch := w.pending
		w.pending = nil
		closed := w.closed
		w.mu.Unlock()

		for _, o := range batch {
			if o.kind == opBarrier {
				close(o.done)
				continue
			}
			w.apply(o)
		}
		if len(batch) == 0 {
			if closed {
				return
			}
			<-w.wake
		}
	}
}

func (w *writer) apply(o op) {
	traceID := uuid.NewString()
	ctx := context.WithValue(context.Background(), ctxkeys.TraceIDKey{}, traceID)
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	var err error
	switch o.kind {
	case opInsert:
		err = w.store.Insert(ctx, o.mapping)
	case opRemove:
		select {
		case err = <-w.store.Remove(ctx, model.Filter{URL: o.mapping.URL}):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err != nil {
		w.log.Error("持久化失败", "op", o.kind.String(), "url", o.mapping.URL, "traceId", traceID, "error", err)
		if w.onErr != nil {
			w.onErr(o.kind.String(), o.mapping, err)
		}
		return
	}
	w.log.Debug("持久化完成", "op", o.kind.String(), "url", o.mapping.URL, "traceId", traceID, "duration", time.Since(start))
}

// submit 追加操作，关闭后返回 false
func (w *writer) submit(o op) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.pending = append(w.pending, o)
	n := len(w.pending)
	warn := n > w.warnAt && !w.warned
	if warn {
		w.warned = true
	} else if n <= w.warnAt {
		w.warned = false
	}
	w.mu.Unlock()

	w.signal()
	if warn {
		w.log.Warn("持久化积压", "pending", n, "threshold", w.warnAt)
	}
	return true
}

// barrier 提交一个屏障，返回的通道在此前提交的操作全部完成后关闭
func (w *writer) barrier() <-chan struct{} {
	done := make(chan struct{})
	if !w.submit(op{kind: opBarrier, done: done}) {
		close(done)
	}
	return done
}

func (w *writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.signal()
	w.wg.Wait()
}
