package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"text/template"
)

// arity — допустимое число аргументов функции. max < 0 — без ограничения.
type arity struct {
	min, max int
}

// builtinFuncs — встроенные функции text/template.
// Одноимённые идентификаторы в шаблоне не считаются переменными.
var builtinFuncs = map[string]arity{
	"and": {1, -1}, "or": {1, -1}, "not": {1, 1},
	"len": {1, 1}, "index": {1, -1}, "slice": {1, -1}, "call": {1, -1},
	"print": {0, -1}, "printf": {1, -1}, "println": {0, -1},
	"html": {0, -1}, "js": {0, -1}, "urlquery": {0, -1},
	"eq": {1, -1}, "ne": {2, 2}, "lt": {2, 2}, "le": {2, 2}, "gt": {2, 2}, "ge": {2, 2},
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если второй аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// coalesce — возвращает первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v != nil {
				if s, ok := v.(string); ok && s == "" {
					continue
				}
				return v
			}
		}
		return nil
	},

	// join — объединяет элементы списка через разделитель
	"join": func(sep string, items any) string {
		switch v := items.(type) {
		case []string:
			return strings.Join(v, sep)
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			return strings.Join(parts, sep)
		default:
			return fmt.Sprint(items)
		}
	},

	"split":     func(sep, s string) []string { return strings.Split(s, sep) },
	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,

	// indent — добавляет префикс к каждой строке (удобно для вставки кода)
	"indent": func(prefix, s string) string {
		lines := strings.Split(s, "\n")
		for i, line := range lines {
			if line != "" {
				lines[i] = prefix + line
			}
		}
		return strings.Join(lines, "\n")
	},
}

// isFuncName — имя занято встроенной или дополнительной функцией.
func isFuncName(name string) bool {
	if _, ok := builtinFuncs[name]; ok {
		return true
	}
	_, ok := templateFuncs[name]
	return ok
}

// funcArity возвращает число аргументов функции шаблона.
func funcArity(name string) arity {
	if a, ok := builtinFuncs[name]; ok {
		return a
	}

	fn := reflect.TypeOf(templateFuncs[name])
	if fn.IsVariadic() {
		return arity{min: fn.NumIn() - 1, max: -1}
	}
	return arity{min: fn.NumIn(), max: fn.NumIn()}
}

func (a arity) accepts(n int) bool {
	return n >= a.min && (a.max < 0 || n <= a.max)
}
