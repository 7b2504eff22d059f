package catalog

import (
	"time"

	"borgcache-go/internal/constants"
)

// AnimalCompleter 动物名的自动补全配置。
// 动物表大、前缀命中多, 预热到两级前缀。
type AnimalCompleter struct{}

func (AnimalCompleter) DataType() string {
	return "animal"
}

func (AnimalCompleter) AutocompQuery() string {
	return `SELECT id AS pk, name AS name
		FROM animals
		WHERE autocomp_tsv @@ to_tsquery('simple', ?)
		ORDER BY LENGTH(name) ASC, name ASC
		LIMIT 5`
}

func (AnimalCompleter) CacheTTL() time.Duration {
	return constants.DefaultAutocompTTL
}

func (AnimalCompleter) WarmDepth() int {
	return 2
}

// FoodCompleter 食物名的自动补全配置, 主键就是名称字符串。
// 食物表小, 只预热单字符前缀。
type FoodCompleter struct{}

func (FoodCompleter) DataType() string {
	return "food"
}

func (FoodCompleter) AutocompQuery() string {
	return `SELECT name AS pk, name AS name
		FROM foods
		WHERE autocomp_tsv @@ to_tsquery('simple', ?)
		ORDER BY LENGTH(name) ASC, name ASC
		LIMIT 5`
}

func (FoodCompleter) CacheTTL() time.Duration {
	return constants.DefaultAutocompTTL
}

func (FoodCompleter) WarmDepth() int {
	return 1
}
