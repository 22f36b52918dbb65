package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GetStringValue safely extracts a string value from a loosely-typed map
func GetStringValue(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case int, int64, float64, float32, bool:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// GetIntValue safely extracts an int value from a loosely-typed map
func GetIntValue(data map[string]interface{}, key string) int {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case float32:
			return int(v)
		case string:
			if i, err := parseInt(v); err == nil {
				return i
			}
		}
	}
	return 0
}

// FirstValue returns the first non-empty value among the given keys
func FirstValue(data map[string]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// parseInt parses a string to int
func parseInt(s string) (int, error) {
	var i int
	err := json.Unmarshal([]byte(s), &i)
	return i, err
}
