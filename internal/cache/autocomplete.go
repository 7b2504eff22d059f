package cache

import (
	"context"
	"time"

	"borgcache-go/internal/constants"
	"borgcache-go/internal/logger"
	"borgcache-go/internal/search"
)

// Hit 自动补全结果中一条指向完整记录的轻量引用。
// DataType用于区分同一结果列表里不同种类的实体。
type Hit[PK any] struct {
	DataType string `json:"data_type"`
	PK       PK     `json:"pk"`
	Name     string `json:"name"`
}

// hitRow 自动补全查询的扫描目标。查询必须把主键列别名为pk、展示名列别名为name。
type hitRow[PK any] struct {
	PK   PK     `gorm:"column:pk"`
	Name string `gorm:"column:name"`
}

// Completer 由支持自动补全的实体类型实现
type Completer[PK any] interface {
	// DataType 类型标签，用于结果标注和缓存键前缀
	DataType() string
	// AutocompQuery 带一个占位符的查询，接收规整后的表达式；需SELECT ... AS pk, ... AS name
	AutocompQuery() string
	// CacheTTL 缓存结果的过期时间
	CacheTTL() time.Duration
	// WarmDepth 预热深度(1-3)
	WarmDepth() int
}

func execAutocomp[PK any](ctx context.Context, db Database, ac Completer[PK], phrase string) ([]Hit[PK], error) {
	expr := search.Expression(phrase, true)
	var rows []hitRow[PK]
	if err := db.Select(ctx, &rows, ac.AutocompQuery(), expr); err != nil {
		return nil, err
	}
	hits := make([]Hit[PK], 0, len(rows))
	for _, row := range rows {
		hits = append(hits, Hit[PK]{DataType: ac.DataType(), PK: row.PK, Name: row.Name})
	}
	return hits, nil
}

// Lookup 返回短语的自动补全结果，优先取缓存。
// 缓存键把短语转了小写: 检索端不区分大小写，但Redis键区分。
func Lookup[PK any](ctx context.Context, store Store, db Database, ac Completer[PK], phrase string) ([]Hit[PK], error) {
	key := constants.AutocompKey(ac.DataType(), phrase)
	var cached []Hit[PK]
	found, err := store.GetJSON(ctx, key, &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return cached, nil
	}
	return Recache[PK](ctx, store, db, ac, phrase)
}

// Recache 重新查询短语的自动补全结果并整体覆盖缓存(空结果也缓存)
func Recache[PK any](ctx context.Context, store Store, db Database, ac Completer[PK], phrase string) ([]Hit[PK], error) {
	key := constants.AutocompKey(ac.DataType(), phrase)
	hits, err := execAutocomp[PK](ctx, db, ac, phrase)
	if err != nil {
		return nil, err
	}
	if err := store.SetJSONEx(ctx, key, hits, ac.CacheTTL()); err != nil {
		return nil, err
	}
	return hits, nil
}

// Warm 枚举短前缀空间并逐个recache。
// 短语越短命中行越多、查询越慢，恰恰是最值得预热的部分。
// depth=1时查36个单字符前缀; depth=2再为每个一级前缀扩展43个字符;
// depth=3在二级前缀上再扩一层。这是冷启动/定时任务的路径，不是热路径。
func Warm[PK any](ctx context.Context, store Store, db Database, ac Completer[PK], depth int) error {
	start := time.Now()
	count := 0
	for _, c1 := range constants.WarmFirstChars {
		p1 := string(c1)
		if _, err := Recache[PK](ctx, store, db, ac, p1); err != nil {
			return err
		}
		count++
		if depth < 2 {
			continue
		}
		for _, c2 := range constants.WarmExtensionChars {
			p2 := p1 + string(c2)
			if _, err := Recache[PK](ctx, store, db, ac, p2); err != nil {
				return err
			}
			count++
			if depth < 3 {
				continue
			}
			for _, c3 := range constants.WarmExtensionChars {
				if _, err := Recache[PK](ctx, store, db, ac, p2+string(c3)); err != nil {
					return err
				}
				count++
			}
		}
	}
	logger.Info().
		Str("data_type", ac.DataType()).
		Int("depth", depth).
		Int("recached", count).
		Dur("elapsed", time.Since(start)).
		Msg("自动补全缓存预热完成")
	return nil
}
