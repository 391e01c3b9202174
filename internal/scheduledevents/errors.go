package scheduledevents

import "errors"

// ErrTransientFetch — сеть/статус/парсинг при опросе metadata-эндпоинта.
// Не фатальна: монитор пропускает цикл, следующая итерация и есть повтор.
var ErrTransientFetch = errors.New("scheduled events: transient fetch failure")
