package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration time.Duration 的 JSON 包装
//
// 序列化为人类可读的字符串（"10s"、"2m30s"），兼容数值（纳秒）。
type Duration time.Duration

// Seconds 构造以秒计的 Duration
func Seconds(n int) Duration {
	return Duration(time.Duration(n) * time.Second)
}

// Duration 返回底层 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String 返回可读形式
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON 实现 json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("config: invalid duration value %v", v)
	}
}
