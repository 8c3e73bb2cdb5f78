// Package binding 在模板载入时把文本内容里的 ${path.to.value}
// 占位符替换为调用方提供的数据。路径不存在时保留原占位符，
// 也可以用 ${path|默认值} 指定兜底文本。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Apply 对 text 做一轮占位符替换。data 为空时原样返回。
func Apply(text string, data any) string {
	if data == nil {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		expr := strings.TrimSpace(groups[1])
		path, fallback, hasFallback := splitFallback(expr)
		if path == "" {
			return match
		}
		if val, ok := lookup(data, path); ok {
			return fmt.Sprint(val)
		}
		if hasFallback {
			return fallback
		}
		return match
	})
}

func splitFallback(expr string) (path, fallback string, ok bool) {
	if i := strings.IndexByte(expr, '|'); i >= 0 {
		return strings.TrimSpace(expr[:i]), strings.TrimSpace(expr[i+1:]), true
	}
	return expr, "", false
}

// lookup 沿点分路径在 map/slice 结构里下钻，支持 items[0].name 形式的下标。
func lookup(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := splitIndexes(segment)
		if name != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = m[name]; !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

func splitIndexes(segment string) (string, []string) {
	i := strings.IndexByte(segment, '[')
	if i < 0 {
		return segment, nil
	}
	name := segment[:i]
	var indexes []string
	rest := segment[i:]
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		indexes = append(indexes, rest[1:end])
		rest = rest[end+1:]
	}
	return name, indexes
}
