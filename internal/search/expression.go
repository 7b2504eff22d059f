package search

import (
	"regexp"
	"strings"
)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	invalidChars   = regexp.MustCompile(`[^A-Za-z0-9 &|!]+`)
	doubledAnd     = regexp.MustCompile(`&{2,}`)
	doubledOr      = regexp.MustCompile(`\|{2,}`)
	doubledNot     = regexp.MustCompile(`!{2,}`)
)

// Expression 把用户输入的任意短语规整成可以安全交给全文检索谓词的表达式。
// 处理步骤:
//  1. 空白符折叠成单个空格(先折叠, 避免剔除tab/换行时把两个词粘在一起)
//  2. 剔除 [A-Za-z0-9 &|!] 之外的全部字符
//  3. 剩余词用 & (逻辑与)连接
//  4. 连续重复的同种运算符折叠成一个
//  5. 去掉首尾悬挂的运算符
//  6. prefixMatch为真时追加 ":*"，表示末词按前缀匹配
//
// 此函数对一切输入都有定义，不会报错。空输入产出空表达式(或只有":*")，
// 调用方应把它当作"匹配不到有用结果"而不是"匹配一切"。
func Expression(phrase string, prefixMatch bool) string {
	s := whitespaceRuns.ReplaceAllString(phrase, " ")
	s = invalidChars.ReplaceAllString(s, "")

	expr := strings.Join(strings.Fields(s), "&")
	expr = doubledAnd.ReplaceAllString(expr, "&")
	expr = doubledOr.ReplaceAllString(expr, "|")
	expr = doubledNot.ReplaceAllString(expr, "!")
	expr = strings.Trim(expr, "&|!")

	if prefixMatch {
		expr += ":*"
	}
	return expr
}
