package borg

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"borgcache-go/internal/constants"
	"borgcache-go/internal/logger"
	"borgcache-go/internal/storage"
)

// ResolveStringID 把一个自然键字符串解析成它的持久标识。
// 很多表都是"整型主键 + 带唯一约束的VARCHAR"的形状，selectQuery和insertQuery
// 就是针对这种表的查询/插入语句，各带一个接收name的占位符，且都只返回键列
// (插入语句要用 INSERT ... RETURNING id 的形式)。
//
// 流程: 先select, 有行直接返回键; 没有则insert并返回新键。
// 并发写入者同时插入同一个name时, 输家会撞上唯一约束冲突——这是这一层
// 唯一主动重试的错误: 等一小段带抖动的退避后从头再来一轮(此时select就能命中)。
// 重试有次数上限, 退避逐次翻倍; 等待用定时器挂起, 不会阻塞调度线程。
// 其他插入失败原样上抛。
func ResolveStringID[PK any](ctx context.Context, db Database, name string, selectQuery string, insertQuery string) (PK, error) {
	var zero PK
	var lastErr error
	delay := constants.ResolveRetryBaseDelay

	for attempt := 1; attempt <= constants.MaxResolveAttempts; attempt++ {
		if attempt > 1 {
			logger.Warn().
				Str("name", name).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("唯一键解析撞上并发插入, 退避后重试")
			if err := sleepWithContext(ctx, jitter(delay)); err != nil {
				return zero, err
			}
			delay *= 2
		}

		var id PK
		found, err := db.SelectOne(ctx, &id, selectQuery, name)
		if err != nil {
			return zero, err
		}
		if found {
			return id, nil
		}

		// 走到这里说明需要插入一条新记录
		found, err = db.SelectOne(ctx, &id, insertQuery, name)
		if err != nil {
			if storage.IsDuplicateKey(err) {
				lastErr = err
				continue
			}
			return zero, err
		}
		if !found {
			// 插入成功却拿不到行, 说明持久存储违反了契约, 必须显式报出来
			return zero, storage.NewMissingRow(fmt.Sprintf("insert for %q succeeded but returned no row", name))
		}
		return id, nil
	}

	return zero, fmt.Errorf("解析 %q 的唯一键在%d次尝试后仍失败: %w", name, constants.MaxResolveAttempts, lastErr)
}

// jitter 在[d/2, d*3/2)内随机取值, 避免多个输家同步醒来再次相撞
func jitter(d time.Duration) time.Duration {
	return d/2 + time.Duration(rand.Int63n(int64(d)))
}

// sleepWithContext 非阻塞的定时挂起, ctx取消时提前返回
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
