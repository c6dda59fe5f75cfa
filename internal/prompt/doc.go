// Package prompt управляет жизненным циклом prompt.
//
// Service отвечает за:
//   - создание prompt с версией 1.0.0 и начальным снимком
//   - обновление: смена содержимого увеличивает последний сегмент версии
//     и добавляет PromptVersion, остальные поля меняются без новой версии
//   - rollback как новую версию (история не переписывается)
//   - unified diff между двумя версиями
//   - рендеринг с разрешением переменных и учётом использования
//
// Атомарность read-modify-write для одного prompt обеспечивает Store.
package prompt
