// Package mapper 维护地址改写规则集合：内存状态为准，写操作异步同步到持久化存储，
// 每次变更后通知订阅者。
package mapper

import (
	"context"
	"slices"
	"sync"
	"time"

	"urlmapper/internal/logger"
	"urlmapper/internal/pattern"
	"urlmapper/internal/rules"
	"urlmapper/pkg/model"

	"github.com/samber/lo"
)

const (
	defaultTimeout = 3 * time.Second
	defaultQueue   = 256
)

// Store 持久化存储需要提供的能力。Remove 异步执行，结果通过单次通道返回。
type Store interface {
	Insert(ctx context.Context, m model.Mapping) error
	Remove(ctx context.Context, f model.Filter) <-chan error
	Find(ctx context.Context, f model.Filter) ([]model.Mapping, error)
	Count(ctx context.Context, f model.Filter) (int64, error)
}

// ErrorHandler 接收持久化失败，op 为 insert 或 remove。在写入协程中调用。
type ErrorHandler func(op string, m model.Mapping, err error)

// Option 配置项
type Option func(*Mapper)

// WithLogger 设置日志器
func WithLogger(l logger.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.log = l
		}
	}
}

// WithNotifier 设置变更订阅者
func WithNotifier(n model.Notifier) Option {
	return func(m *Mapper) { m.notify = n }
}

// WithErrorHandler 设置持久化失败回调
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Mapper) { m.onErr = h }
}

// WithTimeout 单次持久化操作的超时时间
func WithTimeout(d time.Duration) Option {
	return func(m *Mapper) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithQueueSize 持久化积压告警阈值，队列本身不设上限
func WithQueueSize(n int) Option {
	return func(m *Mapper) {
		if n > 0 {
			m.queue = n
		}
	}
}

// Mapper 地址改写规则集合
type Mapper struct {
	mu     sync.RWMutex
	rules  []rules.Rule
	engine *rules.Engine
	closed bool

	store   Store
	w       *writer
	notify  model.Notifier
	onErr   ErrorHandler
	log     logger.Logger
	timeout time.Duration
	queue   int
}

// New 创建规则集合，store 为 nil 时只保存在内存中
func New(store Store, opts ...Option) *Mapper {
	m := &Mapper{
		log:     logger.NewNop(),
		timeout: defaultTimeout,
		queue:   defaultQueue,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.engine = rules.New(nil)
	m.store = store
	if store != nil {
		m.w = newWriter(store, m.queue, m.timeout, m.log, m.onErr)
	}
	return m
}

// Load 从持久化存储恢复规则，不会回写存储
func (m *Mapper) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	rows, err := m.store.Find(ctx, model.Filter{})
	if err != nil {
		return err
	}

	m.mu.Lock()
	for _, row := range rows {
		p, err := pattern.Compile(row.URL)
		if err != nil {
			m.log.Warn("跳过无效规则", "url", row.URL, "error", err)
			continue
		}
		if _, ok := m.indexOf(p.String()); ok {
			m.log.Warn("跳过重复规则", "url", row.URL)
			continue
		}
		row.URL = p.String()
		m.rules = append(m.rules, rules.Rule{Pattern: p, Mapping: row})
	}
	m.engine.Update(m.rules)
	snap := m.snapshot()
	m.mu.Unlock()

	m.log.Info("规则加载完成", "count", len(snap))
	m.emit(model.OpLoad, "", snap)
	return nil
}

// Set 新增或替换规则。同一规范化地址的旧规则先删除再插入。
func (m *Mapper) Set(url, newURL string, isLocal, isActive bool) error {
	p, err := pattern.Compile(url)
	if err != nil {
		return err
	}
	rec := model.Mapping{
		URL:      p.String(),
		NewURL:   newURL,
		IsLocal:  isLocal,
		IsActive: isActive,
	}

	m.mu.Lock()
	if i, ok := m.indexOf(rec.URL); ok {
		m.rules = slices.Delete(m.rules, i, i+1)
	}
	m.rules = append(m.rules, rules.Rule{Pattern: p, Mapping: rec})
	m.engine.Update(m.rules)
	m.persist(op{kind: opRemove, mapping: model.Mapping{URL: rec.URL}})
	m.persist(op{kind: opInsert, mapping: rec})
	snap := m.snapshot()
	m.mu.Unlock()

	m.log.Info("规则已保存", "url", rec.URL, "newUrl", rec.NewURL, "isLocal", isLocal, "isActive", isActive)
	m.emit(model.OpSet, rec.URL, snap)
	return nil
}

// Remove 删除规则，不存在时不做任何改变
func (m *Mapper) Remove(url string) {
	p, err := pattern.Compile(url)
	if err != nil {
		// 无效地址不可能存在于集合中，也不能下发为空条件的删除
		m.log.Debug("删除的规则不存在", "url", url)
		m.emit(model.OpRemove, url, m.Mappings())
		return
	}
	key := p.String()

	m.mu.Lock()
	i, ok := m.indexOf(key)
	if ok {
		m.rules = slices.Delete(m.rules, i, i+1)
		m.engine.Update(m.rules)
	}
	m.persist(op{kind: opRemove, mapping: model.Mapping{URL: key}})
	snap := m.snapshot()
	m.mu.Unlock()

	if ok {
		m.log.Info("规则已删除", "url", key)
	} else {
		m.log.Debug("删除的规则不存在", "url", key)
	}
	m.emit(model.OpRemove, key, snap)
}

// Get 返回与请求地址最匹配的规则副本，不区分是否启用
func (m *Mapper) Get(url string) (model.Mapping, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.engine.Eval(url)
	if !ok {
		return model.Mapping{}, false
	}
	return r.Mapping, true
}

// Candidates 返回全部匹配规则的副本，按优先级排列
func (m *Mapper) Candidates(url string) []model.Mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Map(m.engine.Candidates(url), func(r *rules.Rule, _ int) model.Mapping {
		return r.Mapping
	})
}

// IsMappedURL 是否存在匹配规则
func (m *Mapper) IsMappedURL(url string) bool {
	_, ok := m.Get(url)
	return ok
}

// IsActiveMappedURL 是否存在匹配且已启用的规则
func (m *Mapper) IsActiveMappedURL(url string) bool {
	r, ok := m.Get(url)
	return ok && r.IsActive
}

// Count 规则数量
func (m *Mapper) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Mappings 按插入顺序返回全部规则的副本
func (m *Mapper) Mappings() []model.Mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

// Flush 等待已提交的持久化操作完成
func (m *Mapper) Flush(ctx context.Context) error {
	m.mu.RLock()
	if m.w == nil || m.closed {
		m.mu.RUnlock()
		return nil
	}
	done := m.w.barrier()
	m.mu.RUnlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 等待持久化队列清空并停止写入。之后的变更只作用于内存。
func (m *Mapper) Close() error {
	m.mu.Lock()
	if m.closed || m.w == nil {
		m.closed = true
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.w.close()
	return nil
}

func (m *Mapper) indexOf(url string) (int, bool) {
	for i := range m.rules {
		if m.rules[i].Mapping.URL == url {
			return i, true
		}
	}
	return -1, false
}

func (m *Mapper) snapshot() []model.Mapping {
	return lo.Map(m.rules, func(r rules.Rule, _ int) model.Mapping { return r.Mapping })
}

// persist 需持有写锁，只入队不等待存储
func (m *Mapper) persist(o op) {
	if m.w == nil {
		return
	}
	if m.closed {
		m.log.Warn("存储已关闭，变更未持久化", "op", o.kind.String(), "url", o.mapping.URL)
		return
	}
	m.w.submit(o)
}

// emit 在锁外调用订阅者，snap 为变更时在锁内取得的状态
func (m *Mapper) emit(kind model.ChangeOp, url string, snap []model.Mapping) {
	if m.notify == nil {
		return
	}
	m.notify(model.Change{Op: kind, URL: url, Mappings: snap})
}
