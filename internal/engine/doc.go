// Package engine содержит конвейер рендеринга prompt.
//
// Включает:
//   - template.go — адаптер над text/template: извлечение переменных и строгий рендеринг
//   - funcs.go    — функции, доступные в шаблонах
//   - resolver.go — разрешение переменных (defaults, required, типы, pattern)
//
// Resolver — единственное место, отвечающее за полноту набора переменных.
// Render дополнительно падает на любой неопределённой ссылке, поэтому
// пропуски никогда не превращаются в пустые строки.
package engine
