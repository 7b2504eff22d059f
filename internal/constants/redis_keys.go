package constants

import (
	"fmt"
	"strings"
)

// Redis Key 命名空间约定：
//
//	r_{prefix}_{suffix}          构建器的中间值缓存 (STRING, 带TTL)
//	pks_{prefix}                 构建器的去重集合 (SET, 无单条过期, 只做整体清空)
//	autocomp_{dtype}_{phrase}    自动补全结果缓存 (STRING, 带TTL, phrase已小写)
//	{key_prefix}_{p1}_{p2}...    通用cache-aside条目
const (
	// IntermediateKeyPrefix 中间值缓存键前缀
	IntermediateKeyPrefix = "r_"
	// DedupSetKeyPrefix 去重集合键前缀
	DedupSetKeyPrefix = "pks_"
	// AutocompKeyPrefix 自动补全缓存键前缀
	AutocompKeyPrefix = "autocomp_"
)

// IntermediateKey 返回某一构建类型缓存中间值R所用的键
func IntermediateKey(prefix, suffix string) string {
	return IntermediateKeyPrefix + prefix + "_" + suffix
}

// DedupSetKey 返回某一构建类型的去重集合键
func DedupSetKey(prefix string) string {
	return DedupSetKeyPrefix + prefix
}

// AutocompKey 返回自动补全结果的缓存键。
// 底层全文检索不区分大小写，但Redis键区分，所以这里统一转小写。
func AutocompKey(dtype, phrase string) string {
	return AutocompKeyPrefix + dtype + "_" + strings.ToLower(phrase)
}

// ParamsKey 由键前缀和查询参数拼出通用cache-aside条目的键。
// 参数的格式化必须对同一组参数保持稳定，否则同一行会被缓存在多个键下。
func ParamsKey(prefix string, params ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		b.WriteString("_")
		b.WriteString(strings.ReplaceAll(fmt.Sprintf("%v", p), "\"", ""))
	}
	return b.String()
}
