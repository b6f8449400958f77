package domain

import "time"

// Draft — входящее сообщение до коммита в стор.
type Draft struct {
	Content        string
	Sender         string
	Receiver       *string
	IdempotencyKey *string
}

// Message — закоммиченное сообщение. ID назначается стором и является
// единственным ключом упорядочивания.
type Message struct {
	ID             int64     `db:"id"`
	Content        string    `db:"content"`
	Sender         string    `db:"sender"`
	Receiver       *string   `db:"receiver"`
	SenderLabel    *string   `db:"sender_label"`
	ReceiverLabel  *string   `db:"receiver_label"`
	IdempotencyKey *string   `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}
