package search

import (
	"context"

	"borgcache-go/internal/logger"
)

// Database 是本包需要的最小持久存储能力
type Database interface {
	Select(ctx context.Context, dest any, query string, args ...any) error
}

// FullText 由想要支持全文检索的行类型实现。
// 查询文本带一个占位符，接收规整后的表达式；结果列需与类型字段对应。
type FullText interface {
	FullTextQuery() string
}

// Query 执行一次全文检索: 短语先经Expression规整(不带前缀匹配)，再交给T声明的查询。
func Query[T FullText](ctx context.Context, db Database, phrase string) ([]T, error) {
	var zero T
	expr := Expression(phrase, false)
	logger.Debug().Str("phrase", phrase).Str("expression", expr).Msg("执行全文检索")

	var hits []T
	if err := db.Select(ctx, &hits, zero.FullTextQuery(), expr); err != nil {
		return nil, err
	}
	return hits, nil
}
