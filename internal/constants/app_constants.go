package constants

import "time"

const (
	// DefaultIntermediateTTL 构建器中间值缓存的默认过期时间
	DefaultIntermediateTTL = 2 * time.Hour

	// DefaultDedupMaxMembers 去重集合的默认容量上限。
	// 超过上限后整个集合被清空重建，而不是逐条淘汰。
	DefaultDedupMaxMembers int64 = 1_000_000

	// DefaultAutocompTTL 自动补全缓存结果的默认过期时间
	DefaultAutocompTTL = 6 * time.Hour
)

const (
	// MaxResolveAttempts 唯一键解析在重复键冲突下的最大尝试次数
	MaxResolveAttempts = 5

	// ResolveRetryBaseDelay 首次重试前的基础等待时间，之后每次翻倍并加抖动
	ResolveRetryBaseDelay = 100 * time.Millisecond
)

// 预热用的字符表。
// WarmFirstChars 枚举一级前缀(36个)；WarmExtensionChars 枚举二、三级扩展(43个, 末尾是空格)。
const (
	WarmFirstChars     = "abcdefghijklmnopqrstuvwxyz0123456789"
	WarmExtensionChars = "abcdefghijklmnopqrstuvwxyz_.!?-'0123456789 "
)
