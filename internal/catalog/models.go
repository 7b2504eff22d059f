// Package catalog 是目录域: 动物/食物/栖息地的查询模型，
// 以及"观测上报"的构建蓝图。缓存和存储的通用机制在cache、borg两个包里，
// 这里只放领域自己的表结构、查询语句和蓝图装配。
package catalog

import "time"

// Animal 动物主数据。autocomp_tsv和search_tsv是建表时声明的生成列，
// 不映射到结构体字段。
type Animal struct {
	ID          int32   `gorm:"column:id;primaryKey" json:"id"`
	Name        string  `gorm:"column:name" json:"name"`
	Description *string `gorm:"column:description" json:"description,omitempty"`
}

func (Animal) TableName() string {
	return "animals"
}

// FullTextQuery 动物的全文检索语句。表达式已经规整过, 直接交给to_tsquery。
func (Animal) FullTextQuery() string {
	return `SELECT id, name, description
		FROM animals
		WHERE search_tsv @@ to_tsquery('english', ?)
		ORDER BY name ASC
		LIMIT 50`
}

// Food 食物主数据, 自然键name就是主键
type Food struct {
	Name  string  `gorm:"column:name;primaryKey" json:"name"`
	Color *string `gorm:"column:color" json:"color,omitempty"`
}

func (Food) TableName() string {
	return "foods"
}

func (Food) FullTextQuery() string {
	return `SELECT name, color
		FROM foods
		WHERE search_tsv @@ to_tsquery('english', ?)
		ORDER BY name ASC
		LIMIT 50`
}

// Habitat 栖息地, 整型主键加带唯一约束的名称, 由唯一键解析器按需插入
type Habitat struct {
	ID   int32  `gorm:"column:id;primaryKey" json:"id"`
	Name string `gorm:"column:name" json:"name"`
}

func (Habitat) TableName() string {
	return "habitats"
}

// Sighting 一次完整的观测记录, 构建蓝图的最终产物
type Sighting struct {
	ReportID   string    `gorm:"column:report_id;primaryKey" json:"report_id"`
	AnimalID   int32     `gorm:"column:animal_id" json:"animal_id"`
	AnimalName string    `gorm:"-" json:"animal_name"`
	HabitatID  int32     `gorm:"column:habitat_id" json:"habitat_id"`
	Notes      string    `gorm:"column:notes" json:"notes"`
	SightedAt  time.Time `gorm:"column:sighted_at" json:"sighted_at"`
}

func (Sighting) TableName() string {
	return "sightings"
}
