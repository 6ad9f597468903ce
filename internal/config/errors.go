package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration 是所有装配期配置错误的公共哨兵，调用方可通过 errors.Is 判断。
var ErrConfiguration = errors.New("configuration error")

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is 让 FieldError 归类为 ErrConfiguration。
func (e FieldError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewFieldError 创建包含字段路径与原因的 error，便于 CLI 定位。
func NewFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// IndexedField 用于拼接列表字段路径，例如 Routes[2].Method。
func IndexedField(name string, idx int, field string) string {
	if field == "" {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return fmt.Sprintf("%s[%d].%s", name, idx, field)
}
