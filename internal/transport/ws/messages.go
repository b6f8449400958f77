package ws

import "github.com/cwrk-planet/chat-service/internal/domain"

// Типы событий, которые ходят по WS
const (
	TypeChat    = "chat"     // от клиента — отправка; от сервера — доставка
	TypeChatAck = "chat_ack" // подтверждение коммита отправителю (НЕ сообщение)
	TypeError   = "error"    // отказ submit: валидация либо storage failure
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// SubmitPayload — входящий chat; sender берётся из параметров соединения.
type SubmitPayload struct {
	Content        string  `json:"content"`
	Receiver       *string `json:"receiver,omitempty"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

type DeliveredPayload struct {
	ID            int64   `json:"id"`
	Content       string  `json:"content"`
	Sender        string  `json:"sender"`
	Receiver      *string `json:"receiver,omitempty"`
	SenderLabel   *string `json:"sender_label,omitempty"`
	ReceiverLabel *string `json:"receiver_label,omitempty"`
	TSUnix        int64   `json:"ts_unix,omitempty"`
}

// для client: снимает pending и дедуплицирует повторную отправку по id
type AckPayload struct {
	ID             int64   `json:"id"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

type ErrorPayload struct {
	Message        string  `json:"message"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

// Delivered — общий конвертер события шины/replay в исходящий WS-frame.
func Delivered(ev domain.Event) Message {
	return Message{
		Type: TypeChat,
		Payload: DeliveredPayload{
			ID:            ev.ID,
			Content:       ev.Content,
			Sender:        ev.Sender,
			Receiver:      ev.Receiver,
			SenderLabel:   ev.SenderLabel,
			ReceiverLabel: ev.ReceiverLabel,
			TSUnix:        ev.TSUnix,
		},
	}
}
