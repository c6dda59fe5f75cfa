package domain

// VariableType — тип значения переменной шаблона.
type VariableType string

const (
	VariableTypeString  VariableType = "string"
	VariableTypeNumber  VariableType = "number"
	VariableTypeBoolean VariableType = "boolean"
)

// IsValid возвращает true для известных типов (пустой тип означает string).
func (t VariableType) IsValid() bool {
	switch t {
	case "", VariableTypeString, VariableTypeNumber, VariableTypeBoolean:
		return true
	default:
		return false
	}
}

// VariableDefinition — описание переменной, используемой в prompt.
type VariableDefinition struct {
	// Name — имя переменной в шаблоне.
	Name string `json:"name" yaml:"name"`

	// Description — описание для пользователя.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Default — значение по умолчанию (nil — нет значения).
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	// Required — обязательна ли переменная. Nil означает true.
	Required *bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Type — "string", "number" или "boolean".
	Type VariableType `json:"type,omitempty" yaml:"type,omitempty"`

	// Pattern — регулярное выражение для проверки строкового значения.
	Pattern string `json:"validation_regex,omitempty" yaml:"validation_regex,omitempty"`
}

// IsRequired возвращает значение флага required (по умолчанию true).
func (d VariableDefinition) IsRequired() bool {
	return d.Required == nil || *d.Required
}
