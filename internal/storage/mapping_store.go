package storage

import (
	"context"
	"fmt"
	"time"

	"urlmapper/pkg/model"

	"gorm.io/gorm"
)

// Mapping 规则表的行
type Mapping struct {
	ID        uint   `gorm:"primaryKey"`
	URL       string `gorm:"uniqueIndex;not null"`
	NewURL    string `gorm:"not null"`
	IsLocal   bool
	IsActive  bool
	CreatedAt time.Time
}

func (r *Mapping) toModel() model.Mapping {
	return model.Mapping{URL: r.URL, NewURL: r.NewURL, IsLocal: r.IsLocal, IsActive: r.IsActive}
}

// MappingStore 基于 GORM 的规则持久化存储
type MappingStore struct {
	db *gorm.DB
}

// NewMappingStore 创建规则存储
func NewMappingStore(db *gorm.DB) *MappingStore {
	return &MappingStore{db: db}
}

// Insert 插入一条规则
func (s *MappingStore) Insert(ctx context.Context, m model.Mapping) error {
	row := &Mapping{URL: m.URL, NewURL: m.NewURL, IsLocal: m.IsLocal, IsActive: m.IsActive}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("insert mapping %s: %w", m.URL, err)
	}
	return nil
}

// Remove 异步删除符合条件的规则，完成后通过通道返回结果
func (s *MappingStore) Remove(ctx context.Context, f model.Filter) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := s.where(ctx, f).Delete(&Mapping{}).Error
		if err != nil {
			err = fmt.Errorf("remove mapping %q: %w", f.URL, err)
		}
		done <- err
	}()
	return done
}

// Find 按插入顺序返回符合条件的规则
func (s *MappingStore) Find(ctx context.Context, f model.Filter) ([]model.Mapping, error) {
	var rows []Mapping
	if err := s.where(ctx, f).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find mappings: %w", err)
	}
	out := make([]model.Mapping, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// Count 统计符合条件的规则数量
func (s *MappingStore) Count(ctx context.Context, f model.Filter) (int64, error) {
	var n int64
	if err := s.where(ctx, f).Model(&Mapping{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return n, nil
}

func (s *MappingStore) where(ctx context.Context, f model.Filter) *gorm.DB {
	tx := s.db.WithContext(ctx)
	if f.URL == "" {
		// 无条件删除会被 GORM 拒绝
		return tx.Where("1 = 1")
	}
	return tx.Where("url = ?", f.URL)
}
