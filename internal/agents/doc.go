// Package agents реализует исполнителей для agent-шагов workflow.
//
// Registry хранит агентов по ID. Встроенные агенты:
//   - prompt    — рендерит prompt_id с variables
//   - transform — возвращает входы как результат
//
// HTTP агенты регистрируются из конфигурации.
package agents
