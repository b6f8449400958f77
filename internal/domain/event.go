package domain

// Event — событие «message committed»: payload шины и доставки клиентам.
// Несёт id, назначенный стором; получатели могут дедуплицировать по нему.
type Event struct {
	ID            int64   `json:"id"`
	Content       string  `json:"content"`
	Sender        string  `json:"sender"`
	Receiver      *string `json:"receiver,omitempty"`
	SenderLabel   *string `json:"sender_label,omitempty"`
	ReceiverLabel *string `json:"receiver_label,omitempty"`
	TSUnix        int64   `json:"ts_unix,omitempty"`
}

func EventFromMessage(m Message) Event {
	ev := Event{
		ID:            m.ID,
		Content:       m.Content,
		Sender:        m.Sender,
		Receiver:      m.Receiver,
		SenderLabel:   m.SenderLabel,
		ReceiverLabel: m.ReceiverLabel,
	}
	if !m.CreatedAt.IsZero() {
		ev.TSUnix = m.CreatedAt.Unix()
	}
	return ev
}
