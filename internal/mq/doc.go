// Package mq публикует и читает события жизненного цикла через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — exchange событий и очереди подписчиков
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление событий
//
// Все события идут в topic exchange promptlib.events. Routing key
// совпадает с типом события:
//   - prompt.created, prompt.updated, prompt.deleted, prompt.version_created
//   - workflow.created, workflow.run_completed, workflow.run_failed
//
// Подписчик выбирает события шаблоном: "prompt.*", "workflow.#", "#".
package mq
