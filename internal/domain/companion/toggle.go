package companion

import "strings"

// Toggle 多选标签切换：不存在则追加，存在则移除。返回新切片。
func Toggle(list []string, item string) []string {
	out := make([]string, 0, len(list)+1)
	found := false
	for _, s := range list {
		if s == item {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, item)
	}
	return out
}

// AddCustom 追加自定义条目；空白或已存在时原样返回 added=false
func AddCustom(list []string, entry string) (out []string, added bool) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return list, false
	}
	for _, s := range list {
		if s == entry {
			return list, false
		}
	}
	out = make([]string, len(list), len(list)+1)
	copy(out, list)
	return append(out, entry), true
}

// Custom 返回不在预置目录中的条目（界面中单独展示）
func Custom(list, catalog []string) []string {
	known := make(map[string]struct{}, len(catalog))
	for _, s := range catalog {
		known[s] = struct{}{}
	}
	var out []string
	for _, s := range list {
		if _, ok := known[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
