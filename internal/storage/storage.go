package storage

import (
	"context"
	"fmt"

	"borgcache-go/internal/config"
	"borgcache-go/internal/logger"
)

// Storage 存储管理器，聚合持久存储与缓存存储
type Storage struct {
	// 关系型数据库
	Postgres *Postgres

	// 键值缓存
	Redis *Redis
}

// NewStorage 创建存储管理器。两个存储都是必需的，任何一个失败都立即返回错误。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var err error

	s.Postgres, err = NewPostgres(&cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("初始化Postgres失败: %w", err)
	}
	logger.Info().Str("host", cfg.Postgres.Host).Str("database", cfg.Postgres.Database).Msg("Postgres连接成功")

	s.Redis, err = NewRedisAdapter(&cfg.Redis)
	if err != nil {
		s.Postgres.Close()
		return nil, fmt.Errorf("初始化Redis失败: %w", err)
	}
	logger.Info().Str("address", cfg.Redis.Address).Msg("Redis连接成功")

	return s, nil
}

// Close 关闭所有存储连接
func (s *Storage) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if s.Postgres != nil {
		if err := s.Postgres.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Postgres连接失败")
		}
	}
}
