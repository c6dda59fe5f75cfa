// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с зависимостями (сервисы, метрики, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (recovery, logging, metrics)
//   - response.go         — JSON-ответы и отображение ошибок в HTTP статусы
//   - dto.go              — Data Transfer Objects (request/response)
//   - prompt_handler.go   — обработчики для /prompts, /search, /stats
//   - workflow_handler.go — обработчики для /workflows
//
// Во всех маршрутах с {ref} допускается как UUID, так и имя.
package api
