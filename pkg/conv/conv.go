// Package conv 提供从 YAML/JSON 解析结果中取值的泛型工具。
package conv

// ConfigGet 从 map[string]any（如 YAML/JSON 解析结果）按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt64 从 config 取 int64。YAML/JSON 常得到 int 或 float64，此处兼容并统一为 int64。
func ConfigGetInt64(m map[string]any, key string, defaultVal int64) int64 {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case int32:
		return int64(val)
	case float64:
		return int64(val)
	case float32:
		return int64(val)
	default:
		return defaultVal
	}
}
