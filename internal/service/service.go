package service

import (
	"context"
	"errors"
	"time"

	"urlmapper/internal/config"
	"urlmapper/internal/logger"
	"urlmapper/internal/mapper"
	"urlmapper/internal/storage"
	"urlmapper/pkg/model"

	"gorm.io/gorm"
)

// Service 组装存储与规则集合
type Service struct {
	*mapper.Mapper
	db  *gorm.DB
	log logger.Logger
}

// New 打开数据库、恢复规则并返回服务
func New(ctx context.Context, cfg *config.Config, l logger.Logger, n model.Notifier) (*Service, error) {
	if l == nil {
		l = logger.NewNop()
	}
	db, err := storage.Open(cfg, l)
	if err != nil {
		return nil, err
	}

	m := mapper.New(storage.NewMappingStore(db),
		mapper.WithLogger(l.With("component", "mapper")),
		mapper.WithNotifier(n),
		mapper.WithTimeout(time.Duration(cfg.Store.TimeoutMS)*time.Millisecond),
		mapper.WithQueueSize(cfg.Store.QueueSize),
	)
	if err := m.Load(ctx); err != nil {
		_ = m.Close()
		_ = storage.Close(db)
		return nil, err
	}
	l.Debug("服务已启动", "dsn", cfg.Sqlite.Dsn, "count", m.Count())
	return &Service{Mapper: m, db: db, log: l}, nil
}

// Close 等待持久化完成并关闭数据库
func (s *Service) Close() error {
	return errors.Join(s.Mapper.Close(), storage.Close(s.db))
}
