package workflow

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/shaiso/promptlib/internal/domain"
)

// Evaluate вычисляет context[cond.Variable] OPERATOR cond.Value.
//
// Отсутствующая переменная равна nil. contains проверяет вхождение
// строкового представления Value в строковое представление переменной.
// Неизвестный оператор даёт false.
func Evaluate(cond *domain.Condition, ctx map[string]any) bool {
	left := ctx[cond.Variable]

	switch cond.Operator {
	case domain.OperatorEq:
		return equal(left, cond.Value)
	case domain.OperatorNeq:
		return !equal(left, cond.Value)
	case domain.OperatorContains:
		return strings.Contains(stringify(left), stringify(cond.Value))
	default:
		return false
	}
}

// equal сравнивает значения; числа разных типов сравниваются как float64.
func equal(a, b any) bool {
	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
