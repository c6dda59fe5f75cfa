// Package cli реализует инструмент командной строки promptlib.
//
// # Обзор
//
// CLI — клиентская утилита для promptlib API. Команды prompt, workflow
// и stats работают через HTTP и не импортируют внутренние пакеты сервера.
// Исключение — events tail: он подключается к RabbitMQ через пакет mq.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Разворачивает конверты {"data": ...} и превращает
// {"error": ...} в *APIError.
//
//	client := cli.NewClient("http://localhost:8080")
//	out, err := client.RenderPrompt("greeting", map[string]any{"name": "Ann"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr:
//
//	promptlib prompt list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - prompt: list, search, create, show, update, delete, render, versions, rollback, diff
//   - workflow: list, import, show, run, delete
//   - stats
//   - events: tail
//
// Каждая группа создаётся фабричной функцией (NewPromptCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
