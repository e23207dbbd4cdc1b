package remoteobject

import (
	"strings"

	"github.com/emirpasic/gods/utils"
)

const protoPropertyName = "__proto__"

// nodeComparator 子节点的排序规则，最后按照NodeID区分，保证是严格的全序
var nodeComparator utils.Comparator = func(a, b interface{}) int {
	x := a.(*Node)
	y := b.(*Node)
	if x == y {
		return 0
	}
	if c := CompareNodes(x, y); c != 0 {
		return c
	}
	return utils.IntComparator(int(x.id), int(y.id))
}

// CompareNodes 先比较orderIndex，再比较名称
func CompareNodes(a, b *Node) int {
	if a.orderIndex != b.orderIndex {
		if a.orderIndex < b.orderIndex {
			return -1
		}
		return 1
	}
	return CompareNames(a.name, b.name)
}

// CompareNames 按照数字和非数字的分段比较属性名
//
// __proto__ 排在最后；数字段按照数值比较，并且排在非数字段之前。
// 数值相等而长度不同时，值为0则短的在前（file_0 < file_00），否则长的在前（file_015 < file_15）。
func CompareNames(a, b string) int {
	if a == b {
		return 0
	}
	if a == protoPropertyName {
		return 1
	}
	if b == protoPropertyName {
		return -1
	}
	for {
		if a == "" && b == "" {
			return 0
		}
		if a == "" {
			return -1
		}
		if b == "" {
			return 1
		}

		chunkA, numA := nextChunk(a)
		chunkB, numB := nextChunk(b)
		if numA != numB {
			if numA {
				return -1
			}
			return 1
		}
		if numA {
			if c := compareNumbers(chunkA, chunkB); c != 0 {
				return c
			}
		} else if c := strings.Compare(chunkA, chunkB); c != 0 {
			return c
		}

		a = a[len(chunkA):]
		b = b[len(chunkB):]
	}
}

// nextChunk 开头连续的数字或者连续的非数字
func nextChunk(s string) (string, bool) {
	num := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == num {
		i++
	}
	return s[:i], num
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// compareNumbers 比较两个数字串，不受长度限制
func compareNumbers(a, b string) int {
	valueA := strings.TrimLeft(a, "0")
	valueB := strings.TrimLeft(b, "0")
	if len(valueA) != len(valueB) {
		if len(valueA) < len(valueB) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(valueA, valueB); c != 0 {
		return c
	}
	diff := len(a) - len(b)
	if diff == 0 {
		return 0
	}
	if valueA == "" {
		return diff
	}
	return -diff
}
