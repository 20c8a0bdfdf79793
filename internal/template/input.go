package template

import (
	"fmt"
	"slices"
	"strings"
)

// InputType 限定模板输入值的类型。
type InputType string

const (
	InputString  InputType = "string"
	InputNumber  InputType = "number"
	InputBoolean InputType = "boolean"
	InputEnum    InputType = "enum"
)

// Input 描述模板的一个输入参数。
type Input struct {
	Description string    `yaml:"description" json:"description"`
	Type        InputType `yaml:"type" json:"type"`
	Required    bool      `yaml:"required,omitempty" json:"required,omitempty"`
	Default     any       `yaml:"default,omitempty" json:"default,omitempty"`
	Values      []string  `yaml:"values,omitempty" json:"values,omitempty"`
}

// Validate 校验调用方提供的值；value 为 nil 表示未提供，此时仅在必填且无默认值时报错。
func (in Input) Validate(name string, value any) error {
	if value == nil {
		if in.Required && in.Default == nil {
			return fmt.Errorf("required input '%s' is missing", name)
		}
		return nil
	}

	switch in.Type {
	case InputString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("input '%s' must be a string", name)
		}
	case InputNumber:
		if !isNumber(value) {
			return fmt.Errorf("input '%s' must be a number", name)
		}
	case InputBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("input '%s' must be a boolean", name)
		}
	case InputEnum:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("input '%s' must be a string (enum)", name)
		}
		if !slices.Contains(in.Values, s) {
			return fmt.Errorf("input '%s' must be one of: %s", name, strings.Join(in.Values, ", "))
		}
	default:
		return fmt.Errorf("input '%s' has unknown type %q", name, in.Type)
	}
	return nil
}

// EffectiveValue 返回提供值，未提供时回退到默认值。
func (in Input) EffectiveValue(value any) any {
	if value != nil {
		return value
	}
	return in.Default
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
