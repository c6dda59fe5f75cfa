package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaiso/promptlib/internal/domain"
)

// truthy — строковые значения, считающиеся true для типа boolean.
var truthy = map[string]bool{"true": true, "1": true, "yes": true}

// Resolve формирует полный набор переменных для рендеринга.
//
// templateVars — переменные, найденные ExtractVariables (а не сохранённый
// в prompt список). Для каждой из них:
//  1. значение из provided;
//  2. иначе default из описания;
//  3. иначе "" для явно необязательной переменной;
//  4. иначе ErrMissingVariable.
//
// Затем значение приводится к объявленному типу и проверяется по pattern.
// Остальные ключи provided переносятся без изменений.
func Resolve(templateVars []string, provided map[string]any, defs map[string]domain.VariableDefinition) (map[string]any, error) {
	resolved := make(map[string]any, len(provided)+len(templateVars))
	for k, v := range provided {
		resolved[k] = v
	}

	for _, name := range templateVars {
		def, hasDef := defs[name]

		value, ok := provided[name]
		switch {
		case ok:
		case hasDef && def.Default != nil:
			value = def.Default
		case hasDef && !def.IsRequired():
			resolved[name] = ""
			continue
		default:
			return nil, newVariableError(name, ErrMissingVariable, "")
		}

		if hasDef {
			coerced, err := coerce(def, value)
			if err != nil {
				return nil, err
			}
			value = coerced
		}
		resolved[name] = value
	}

	return resolved, nil
}

// coerce приводит значение к типу из описания.
func coerce(def domain.VariableDefinition, value any) (any, error) {
	switch def.Type {
	case domain.VariableTypeNumber:
		f, err := toFloat(value)
		if err != nil {
			return nil, newVariableError(def.Name, ErrInvalidVariableType, err.Error())
		}
		return f, nil

	case domain.VariableTypeBoolean:
		return toBool(value), nil

	default:
		if def.Pattern == "" {
			return value, nil
		}
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			return nil, newVariableError(def.Name, ErrInvalidDefinition, err.Error())
		}
		if !re.MatchString(s) {
			return nil, newVariableError(def.Name, ErrPatternMismatch, def.Pattern)
		}
		return s, nil
	}
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%T is not a number", value)
	}
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(v))]
	default:
		return truthy[strings.ToLower(fmt.Sprint(v))]
	}
}

// ValidateDefinitions проверяет описания переменных перед сохранением.
func ValidateDefinitions(defs []domain.VariableDefinition) error {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
		}
		if seen[d.Name] {
			return newVariableError(d.Name, ErrInvalidDefinition, "duplicate definition")
		}
		seen[d.Name] = true

		if !d.Type.IsValid() {
			return newVariableError(d.Name, ErrInvalidDefinition, fmt.Sprintf("unknown type %q", d.Type))
		}
		if d.Pattern != "" {
			if _, err := regexp.Compile(d.Pattern); err != nil {
				return newVariableError(d.Name, ErrInvalidDefinition, err.Error())
			}
		}
	}
	return nil
}
