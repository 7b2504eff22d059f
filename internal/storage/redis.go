package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"borgcache-go/internal/config"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Redis wraps the Redis client.
// 这里提供的是缓存语义的一组小操作: JSON序列化的GET/SET(EX)和去重集合用的
// SADD/SISMEMBER/SCARD/SPOP/DEL。所有"键不存在"一律映射为found=false而不是错误；
// 传输失败和序列化失败原样上抛，绝不在这一层吞掉。
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 客户端级重试(针对传输错误, 与上层的业务重试无关)
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	// Ping to check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetJSON 读取key并把JSON负载反序列化到dest。
// 键不存在时返回(false, nil)，dest保持原样。
func (r *Redis) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis客户端未初始化")
	}
	payload, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return false, fmt.Errorf("反序列化缓存值失败 key=%s: %w", key, err)
	}
	return true, nil
}

// SetJSON 序列化value并写入key，覆盖旧值，不设置过期时间
func (r *Redis) SetJSON(ctx context.Context, key string, value any) error {
	return r.setJSONInternal(ctx, key, value, 0)
}

// SetJSONEx 序列化value并写入key，同时设置过期时间
func (r *Redis) SetJSONEx(ctx context.Context, key string, value any, ttl time.Duration) error {
	return r.setJSONInternal(ctx, key, value, ttl)
}

func (r *Redis) setJSONInternal(ctx context.Context, key string, value any, ttl time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存值失败 key=%s: %w", key, err)
	}
	return r.Client.Set(ctx, key, payload, ttl).Err()
}

// SAdd 向集合添加一个成员
func (r *Redis) SAdd(ctx context.Context, key string, member string) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.SAdd(ctx, key, member).Err()
}

// SIsMember 判断member是否在集合内
func (r *Redis) SIsMember(ctx context.Context, key string, member string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.SIsMember(ctx, key, member).Result()
}

// SCard 返回集合的基数，集合不存在时为0
func (r *Redis) SCard(ctx context.Context, key string) (int64, error) {
	if r.Client == nil {
		return 0, fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.SCard(ctx, key).Result()
}

// SPop 随机弹出集合中的一个成员。集合为空或不存在时返回(_, false, nil)。
func (r *Redis) SPop(ctx context.Context, key string) (string, bool, error) {
	if r.Client == nil {
		return "", false, fmt.Errorf("redis客户端未初始化")
	}
	member, err := r.Client.SPop(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, err
	}
	return member, true, nil
}

// Del 删除一个键(对集合即整体清空)
func (r *Redis) Del(ctx context.Context, key string) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.Del(ctx, key).Err()
}
