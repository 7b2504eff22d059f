// Package cache 实现cache-aside查询原语:
// 先查缓存，未命中时执行计算(通常是一次持久存储查询)，有结果则带TTL写回缓存。
// "没查到"从不写入缓存——反复未命中会反复查库，这是有意为之，
// 否则新插入的行会被一条缓存住的"不存在"挡住。
package cache

import (
	"context"
	"time"

	"borgcache-go/internal/constants"
	"borgcache-go/internal/storage"
)

// Store 是本包需要的最小缓存能力，由storage.Redis实现
type Store interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSONEx(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Database 是本包需要的最小持久存储能力，由storage.Postgres实现
type Database interface {
	Select(ctx context.Context, dest any, query string, args ...any) error
	SelectOne(ctx context.Context, dest any, query string, args ...any) (bool, error)
}

// ComputeFn 缓存未命中时的计算函数。返回(nil, nil)表示确实没有这个值。
type ComputeFn[T any] func(ctx context.Context) (*T, error)

// FetchOrCompute 按cache-aside模式取值:
// 命中直接返回，不碰持久存储；未命中时调用compute，有值则先以ttl写缓存再返回。
func FetchOrCompute[T any](ctx context.Context, store Store, key string, ttl time.Duration, compute ComputeFn[T]) (*T, error) {
	var cached T
	found, err := store.GetJSON(ctx, key, &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return &cached, nil
	}

	val, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if val == nil {
		// 缺失不缓存
		return nil, nil
	}
	if err := store.SetJSONEx(ctx, key, val, ttl); err != nil {
		return nil, err
	}
	return val, nil
}

// MustFetchOrCompute 与FetchOrCompute相同，但把"没有值"当作硬错误(MissingRowError)。
// 用于调用方确信该行必须存在的场合。
func MustFetchOrCompute[T any](ctx context.Context, store Store, key string, ttl time.Duration, compute ComputeFn[T]) (*T, error) {
	val, err := FetchOrCompute(ctx, store, key, ttl, compute)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, storage.NewMissingRow("fetch-or-compute expected a value for key " + key)
	}
	return val, nil
}

// QuerySpec 把一条零或一行的查询和它的缓存策略绑在一起
type QuerySpec struct {
	// KeyPrefix 缓存键前缀; 完整键为 {KeyPrefix}_{参数1}_{参数2}...
	KeyPrefix string
	// TTL 缓存写入时的过期时间
	TTL time.Duration
	// Query 参数化查询文本，占位符与params一一对应
	Query string
}

// CachedQuery 以cache-aside方式执行spec描述的单行查询。
// 键后缀由params派生，所以params必须是能稳定编码查询身份的那组参数。
func CachedQuery[T any](ctx context.Context, store Store, db Database, spec QuerySpec, params ...any) (*T, error) {
	key := constants.ParamsKey(spec.KeyPrefix, params...)
	return FetchOrCompute(ctx, store, key, spec.TTL, func(ctx context.Context) (*T, error) {
		var row T
		found, err := db.SelectOne(ctx, &row, spec.Query, params...)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return &row, nil
	})
}

// MustCachedQuery CachedQuery的强制变体: 查不到行返回MissingRowError
func MustCachedQuery[T any](ctx context.Context, store Store, db Database, spec QuerySpec, params ...any) (*T, error) {
	val, err := CachedQuery[T](ctx, store, db, spec, params...)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, storage.NewMissingRow("cached query " + spec.KeyPrefix + " returned no row")
	}
	return val, nil
}
