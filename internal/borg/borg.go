// Package borg 实现通用的构建协调器。
// 名字取自"同化": 它拿一个借用输入和一个被消费的输入，同化出一个新对象。
// 四个类型参数对应构建的四个阶段:
//
//	B: 借用的输入(可在多次相关构建间复用)
//	O: 被消费的输入(构建后不再可用)
//	R: 可序列化的中间值, 计算昂贵(通常要查库), 所以缓存在Redis里
//	G: 消费O和R生成的中间产物, 自身也被最终实例化消费
//
// 外加最终产物T。借用/消费的区别通过参数传递方式表达: 指针为借用, 值为消费。
//
// 每个完整实例还要给出一个去重身份串: 同一身份在一个缓存窗口内第一次出现时，
// OnFirstSight钩子恰好被调用一次(并发竞争除外, 见ResolveStringID)，
// 典型用途是保证持久存储里存在这条记录的规范行。
package borg

import (
	"context"
	"time"

	"borgcache-go/internal/constants"
)

// Cache 构建协调器需要的缓存能力，由storage.Redis实现
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSONEx(ctx context.Context, key string, value any, ttl time.Duration) error
	SAdd(ctx context.Context, key string, member string) error
	SIsMember(ctx context.Context, key string, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, key string) error
}

// Database 构建协调器及其钩子需要的持久存储能力，由storage.Postgres实现
type Database interface {
	Select(ctx context.Context, dest any, query string, args ...any) error
	SelectOne(ctx context.Context, dest any, query string, args ...any) (bool, error)
	Exec(ctx context.Context, query string, args ...any) error
}

// Deps 传递给各钩子的外部依赖
type Deps struct {
	Cache Cache
	DB    Database
}

// Blueprint 描述如何从(B, O)构建出T。
// OnInvocation/OnFirstSight/OnComplete是可选钩子，IntermediateTTL和
// MaxDedupMembers有文档化的默认值: 内嵌Defaults即可获得全部默认实现。
type Blueprint[B any, O any, R any, G any, T any] interface {
	// Prefix 本构建类型的键前缀。中间值缓存在 r_{prefix}_{suffix}，
	// 去重集合是 pks_{prefix}。
	Prefix() string

	// Suffix 由(B, O)派生中间值的缓存键后缀。
	// 必须稳定且无碰撞地编码(B, O)中决定R的那部分: 两次调用若有效身份相同，
	// 就必须落在同一个键上。注意这个键未必唯一对应一个实例——
	// 比如多个实例共享同一个前缀记录时, 它们的R相同。
	Suffix(b *B, o *O) string

	// IntermediateTTL 中间值在缓存里的保留时间。默认2小时。
	IntermediateTTL() time.Duration

	// MaxDedupMembers 去重集合的容量上限, 超过后整个集合被清空。默认一百万。
	MaxDedupMembers() int64

	// Intermediate 缓存未命中时计算R
	Intermediate(ctx context.Context, deps *Deps, b *B, o *O) (R, error)

	// Generate 消费O和R，产出G
	Generate(ctx context.Context, deps *Deps, b *B, o O, r R) (G, error)

	// Instantiate 借用B、消费G，实例化T
	Instantiate(b *B, g G) (T, error)

	// DedupMember 返回一个完整实例独有的去重身份串。
	// 只用于去重记账，和任何存储主键无关，跨前缀不保证唯一。
	DedupMember(t *T) string

	// OnInvocation 在Build最开始、任何缓存或存储访问之前调用。
	// 适合在还没有机会出其他错之前发出事件。默认什么都不做。
	OnInvocation(ctx context.Context, deps *Deps, b *B, o *O) error

	// OnFirstSight 在实例化之后、OnComplete之前调用，且仅当该实例的
	// 去重身份串不在集合里时。典型用途是向持久存储写入这条新记录。
	// 注意membership检查→本钩子→SADD三步不是原子的: 并发构建同一新身份时
	// 钩子可能跑两次，钩子里的持久写入必须自己容忍重复插入。默认什么都不做。
	OnFirstSight(ctx context.Context, deps *Deps, b *B, t *T) error

	// OnComplete 在构建收尾、返回T之前调用。默认什么都不做。
	OnComplete(ctx context.Context, deps *Deps, t *T) error
}

// Defaults 提供Blueprint全部可选方法的默认实现，内嵌使用:
//
//	type sightingBlueprint struct {
//	    borg.Defaults[Animal, Report, Sighting]
//	}
type Defaults[B any, O any, T any] struct{}

// IntermediateTTL 默认2小时
func (Defaults[B, O, T]) IntermediateTTL() time.Duration {
	return constants.DefaultIntermediateTTL
}

// MaxDedupMembers 默认一百万
func (Defaults[B, O, T]) MaxDedupMembers() int64 {
	return constants.DefaultDedupMaxMembers
}

// OnInvocation 默认什么都不做
func (Defaults[B, O, T]) OnInvocation(ctx context.Context, deps *Deps, b *B, o *O) error {
	return nil
}

// OnFirstSight 默认什么都不做
func (Defaults[B, O, T]) OnFirstSight(ctx context.Context, deps *Deps, b *B, t *T) error {
	return nil
}

// OnComplete 默认什么都不做
func (Defaults[B, O, T]) OnComplete(ctx context.Context, deps *Deps, t *T) error {
	return nil
}

// Build 按蓝图构建一个T。每次调用严格按以下顺序执行:
//
//	1. OnInvocation
//	2. 推导键: r_{prefix}_{suffix} 和 pks_{prefix}
//	3. 取缓存的R; 未命中则调Intermediate计算并带TTL写回
//	4. Generate消费O和R得到G
//	5. Instantiate借用B、消费G得到T
//	6. 去重: 身份串不在集合时调OnFirstSight; 集合基数超限则整体清空; 再SADD
//	7. OnComplete, 返回T
//
// 任何一步失败都中止整个构建，已经写下的缓存不回滚——
// 缓存是尽力而为的，下次读取会自愈。
func Build[B any, O any, R any, G any, T any](ctx context.Context, deps *Deps, bp Blueprint[B, O, R, G, T], b *B, o O) (T, error) {
	var zero T

	// 最先调OnInvocation, 在任何其他错误有机会发生之前
	if err := bp.OnInvocation(ctx, deps, b, &o); err != nil {
		return zero, err
	}

	prefix := bp.Prefix()
	keyR := constants.IntermediateKey(prefix, bp.Suffix(b, &o))
	keySet := constants.DedupSetKey(prefix)

	// 解析中间值: 先查缓存, 未命中再计算并写回
	var r R
	found, err := deps.Cache.GetJSON(ctx, keyR, &r)
	if err != nil {
		return zero, err
	}
	if !found {
		r, err = bp.Intermediate(ctx, deps, b, &o)
		if err != nil {
			return zero, err
		}
		if err := deps.Cache.SetJSONEx(ctx, keyR, r, bp.IntermediateTTL()); err != nil {
			return zero, err
		}
	}

	g, err := bp.Generate(ctx, deps, b, o, r)
	if err != nil {
		return zero, err
	}

	t, err := bp.Instantiate(b, g)
	if err != nil {
		return zero, err
	}

	// 去重: 第一次见到这个身份串才触发OnFirstSight
	member := bp.DedupMember(&t)
	seen, err := deps.Cache.SIsMember(ctx, keySet, member)
	if err != nil {
		return zero, err
	}
	if !seen {
		if err := bp.OnFirstSight(ctx, deps, b, &t); err != nil {
			return zero, err
		}
		card, err := deps.Cache.SCard(ctx, keySet)
		if err != nil {
			return zero, err
		}
		if card > bp.MaxDedupMembers() {
			// 集合积累得太大了: 整体清空重来, 不做LRU式的局部淘汰
			if err := deps.Cache.Del(ctx, keySet); err != nil {
				return zero, err
			}
		}
		if err := deps.Cache.SAdd(ctx, keySet, member); err != nil {
			return zero, err
		}
	}

	if err := bp.OnComplete(ctx, deps, &t); err != nil {
		return zero, err
	}
	return t, nil
}
