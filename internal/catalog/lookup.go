package catalog

import (
	"context"
	"time"

	"borgcache-go/internal/cache"
)

// 主数据变化慢, 按主键的点查缓存一小时足够
const masterDataTTL = time.Hour

var animalByIDSpec = cache.QuerySpec{
	KeyPrefix: "animal",
	TTL:       masterDataTTL,
	Query:     `SELECT id, name, description FROM animals WHERE id = ?`,
}

var foodByNameSpec = cache.QuerySpec{
	KeyPrefix: "food",
	TTL:       masterDataTTL,
	Query:     `SELECT name, color FROM foods WHERE name = ?`,
}

// AnimalByID 按主键取动物, 旁路缓存; 不存在时返回MissingRowError
func AnimalByID(ctx context.Context, store cache.Store, db cache.Database, id int32) (*Animal, error) {
	return cache.MustCachedQuery[Animal](ctx, store, db, animalByIDSpec, id)
}

// FoodByName 按名称取食物, 旁路缓存; 不存在时返回MissingRowError
func FoodByName(ctx context.Context, store cache.Store, db cache.Database, name string) (*Food, error) {
	return cache.MustCachedQuery[Food](ctx, store, db, foodByNameSpec, name)
}
