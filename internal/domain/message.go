package domain

import "time"

// Message — арендованное сообщение очереди.
// Receipt — непрозрачный токен аренды, без него сообщение не удалить.
type Message struct {
	ID           string
	Body         []byte
	Receipt      string
	DequeueCount int
	InsertedAt   time.Time
}
