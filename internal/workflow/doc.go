// Package workflow выполняет workflows: графы шагов с явными переходами.
//
// Включает:
//   - validate.go     — проверка workflow при загрузке (вариант шага, ссылки)
//   - condition.go    — вычисление условий eq / neq / contains
//   - executor.go     — выполнение одного шага (prompt или agent)
//   - orchestrator.go — конечный автомат обхода графа
//   - state.go        — состояние одного run: контекст и посещённые шаги
//   - loader.go       — чтение определений из YAML
//   - service.go      — хранение и запуск workflows
//
// Run выполняется строго последовательно. Повторное посещение шага
// в рамках одного run — ошибка ErrWorkflowCycle.
package workflow
