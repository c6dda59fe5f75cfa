package prompt

import (
	"github.com/pmezard/go-difflib/difflib"
)

// diffContextLines — количество строк контекста вокруг изменений.
const diffContextLines = 3

// unifiedDiff строит построчный unified diff между двумя версиями.
// Для одинаковых тел возвращает пустую строку.
func unifiedDiff(fromVersion, fromContent, toVersion, toContent string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(fromContent),
		B:        difflib.SplitLines(toContent),
		FromFile: "v" + fromVersion,
		ToFile:   "v" + toVersion,
		Context:  diffContextLines,
	})
}
