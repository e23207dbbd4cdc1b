package utils

import (
	"github.com/emirpasic/gods/sets"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/emirpasic/gods/sets/linkedhashset"
)

func List2set[T any](list []T) sets.Set {
	set := hashset.New()
	for _, value := range list {
		set.Add(value)
	}
	return set
}

// OrderedSet 按照插入顺序去重
func OrderedSet[T any](list []T) *linkedhashset.Set {
	set := linkedhashset.New()
	for _, value := range list {
		set.Add(value)
	}
	return set
}

// SetValues 把集合中的元素转换为指定类型，类型不匹配的元素会被跳过
func SetValues[T any](set sets.Set) []T {
	answer := make([]T, 0, set.Size())
	for _, value := range set.Values() {
		if v, ok := value.(T); ok {
			answer = append(answer, v)
		}
	}
	return answer
}
