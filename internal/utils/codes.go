package utils

import (
	"slices"
	"strings"
)

// SortedCodes 去空格、去空值、排序并去重，返回新切片
func SortedCodes(codes []string) []string {
	result := make([]string, 0, len(codes))
	for _, code := range codes {
		if code = strings.TrimSpace(code); code != "" {
			result = append(result, code)
		}
	}
	slices.Sort(result)
	return slices.Compact(result)
}
