package pipeline

import "fmt"

// 错误分类：三类错误在产生点都是不可恢复的，调用方必须终止本次运行，
// 不允许自动重试，也不允许在文档记录的取舍之外做静默修正。

// ConfigurationError 配置无效或退化（如零方差列、机场数超过观测数）
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置错误: %s: %s", e.Field, e.Reason)
}

// SchemaError 期望的列缺失，或训练/验证模式无法合理对齐
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("模式错误: 列 %q: %s", e.Column, e.Reason)
}

// DomainError 数值超出要求的定义域（如对非正数取对数）
type DomainError struct {
	Column string
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("定义域错误: 列 %q 的值 %v: %s", e.Column, e.Value, e.Reason)
}
