package utils

import (
	"encoding/json"

	"k8s.io/klog/v2"
)

func ToJSON(v any) string {
	jsonData, err := json.Marshal(v)
	if err != nil {
		klog.Errorf("JSON序列化失败: %v", err)
		return ""
	}
	return string(jsonData)
}

// FromJSON 反序列化，空字符串返回零值
func FromJSON[T any](content string) (T, error) {
	var v T
	if content == "" {
		return v, nil
	}
	err := json.Unmarshal([]byte(content), &v)
	return v, err
}
