package api

import (
	"context"

	"urlmapper/internal/config"
	"urlmapper/internal/logger"
	"urlmapper/internal/service"
	"urlmapper/pkg/model"
)

// Service 服务接口
type Service interface {
	// Set 新增或替换规则
	Set(url, newURL string, isLocal, isActive bool) error

	// Remove 删除规则
	Remove(url string)

	// Get 获取最匹配的规则
	Get(url string) (model.Mapping, bool)

	// Candidates 获取全部匹配规则，按优先级排列
	Candidates(url string) []model.Mapping

	// IsMappedURL 是否存在匹配规则
	IsMappedURL(url string) bool

	// IsActiveMappedURL 是否存在匹配且启用的规则
	IsActiveMappedURL(url string) bool

	// Count 规则数量
	Count() int

	// Mappings 全部规则
	Mappings() []model.Mapping

	// Flush 等待持久化完成
	Flush(ctx context.Context) error

	// Close 关闭服务
	Close() error
}

// NewService 创建并返回服务接口实现
func NewService(ctx context.Context, cfg *config.Config, l logger.Logger, n model.Notifier) (Service, error) {
	s, err := service.New(ctx, cfg, l, n)
	if err != nil {
		return nil, err
	}
	return s, nil
}
