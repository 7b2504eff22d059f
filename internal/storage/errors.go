package storage

import (
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
// 注意: "键不存在"对调用方从来不算错误，各适配器方法会把它转换成found=false。
var ErrNotFound = redis.Nil

// MissingRowError 表示期望恰好一行结果但查询没有返回任何行。
// 这是一种独立的错误类型，绝不能和"查不到也没关系"的场景混为一谈。
type MissingRowError struct {
	Message string
}

func (e *MissingRowError) Error() string {
	return "missing row: " + e.Message
}

// NewMissingRow 构造一个MissingRowError
func NewMissingRow(message string) error {
	return &MissingRowError{Message: message}
}

// IsMissingRow 判断err是否为MissingRowError
func IsMissingRow(err error) bool {
	var mre *MissingRowError
	return errors.As(err, &mre)
}

// IsDuplicateKey 判断err是否为唯一约束冲突。
// GORM开启TranslateError后会给出gorm.ErrDuplicatedKey；
// 没被翻译到的场景退回到匹配Postgres的报错文本(SQLSTATE 23505)。
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
