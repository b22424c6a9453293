package model

// Mapping 一条地址改写规则
type Mapping struct {
	URL      string `json:"url"`      // 规范化后的源地址，可包含通配段
	NewURL   string `json:"newUrl"`   // 替换目标，原样保存
	IsLocal  bool   `json:"isLocal"`  // 目标为本地文件
	IsActive bool   `json:"isActive"` // 是否启用
}

// Filter 持久化层的查询/删除条件，URL 为空表示全部
type Filter struct {
	URL string `json:"url,omitempty"`
}

// ChangeOp 变更类型
type ChangeOp string

const (
	OpSet    ChangeOp = "set"
	OpRemove ChangeOp = "remove"
	OpLoad   ChangeOp = "load"
)

// Change 变更通知内容，Mappings 为变更后的完整规则列表
type Change struct {
	Op       ChangeOp  `json:"op"`
	URL      string    `json:"url,omitempty"`
	Mappings []Mapping `json:"mappings"`
}

// Notifier 变更订阅者，在每次成功的 set/remove 后同步调用
type Notifier func(Change)
