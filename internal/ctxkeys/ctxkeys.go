package ctxkeys

// TraceIDKey 上下文中追踪ID的键
type TraceIDKey struct{}
