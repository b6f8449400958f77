package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type ChatSvc interface {
	Submit(ctx context.Context, d domain.Draft) (domain.Event, error)
	Replay(ctx context.Context, afterID int64, emit func(domain.Event) error) error
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	chatSvc  ChatSvc

	pingEvery   time.Duration
	submitRate  rate.Limit
	submitBurst int
}

func NewServer(hub *Hub, chat ChatSvc) *Server {
	return &Server{
		hub:     hub,
		chatSvc: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:   15 * time.Second,
		submitRate:  rate.Limit(10),
		submitBurst: 20,
	}
}

func (s *Server) SetSubmitLimit(perSec float64, burst int) {
	if perSec > 0 {
		s.submitRate = rate.Limit(perSec)
	}
	if burst > 0 {
		s.submitBurst = burst
	}
}

// BroadcastEvent — подписчик шины: доставка committed-события всем локальным
// соединениям, включая отправителя.
func (s *Server) BroadcastEvent(ev domain.Event) {
	s.hub.Broadcast(Delivered(ev))
}

// WS endpoint: GET /ws?sender=...&after_id=...&recovered=0|1
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sender := strings.TrimSpace(q.Get("sender"))
	if sender == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}

	// позиция клиента: максимальный виденный id; отсутствие/мусор — 0
	afterID, err := strconv.ParseInt(q.Get("after_id"), 10, 64)
	if err != nil || afterID < 0 {
		afterID = 0
	}
	recovered, _ := strconv.ParseBool(q.Get("recovered"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, sender)
	s.hub.Add(c)

	// Replay только при разрыве сессии. Соединение уже в hub-е: коммит во
	// время replay может прийти и живым push-ем, и в снимке чтения —
	// дубликат по id допустим, пропуск — нет.
	if !recovered {
		if err := s.replay(r.Context(), c, afterID); err != nil {
			// деградация: без истории, но соединение живёт
			slog.Warn("ws replay failed", "sender", sender, "after_id", afterID, "err", err)
		}
	}

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	s.hub.Remove(c)

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "sender", sender, "err", err)
	}
}

func (s *Server) replay(ctx context.Context, c *wsConn, afterID int64) error {
	return s.chatSvc.Replay(ctx, afterID, func(ev domain.Event) error {
		return c.Send(Delivered(ev))
	})
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	limiter := rate.NewLimiter(s.submitRate, s.submitBurst)

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypeChat:
			var p SubmitPayload
			if decode(msg.Payload, &p) != nil {
				continue
			}
			if !limiter.Allow() {
				_ = c.Send(Message{
					Type:    TypeError,
					Payload: ErrorPayload{Message: "rate limit exceeded", IdempotencyKey: p.IdempotencyKey},
				})
				continue
			}

			ev, err := s.chatSvc.Submit(ctx, domain.Draft{
				Content:        p.Content,
				Sender:         c.sender,
				Receiver:       p.Receiver,
				IdempotencyKey: p.IdempotencyKey,
			})
			if err != nil {
				// отправителю — явный отказ; ретрай безопасен благодаря
				// idempotency key
				_ = c.Send(Message{
					Type:    TypeError,
					Payload: ErrorPayload{Message: submitErrorMessage(err), IdempotencyKey: p.IdempotencyKey},
				})
				continue
			}

			// доставка самому отправителю придёт общим broadcast-ом;
			// здесь — только лёгкий ACK с назначенным id
			_ = c.Send(Message{
				Type:    TypeChatAck,
				Payload: AckPayload{ID: ev.ID, IdempotencyKey: p.IdempotencyKey},
			})
		default:
			// ignore
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// submitErrorMessage — клиенту уходит текст доменной валидации; детали
// отказа стора не раскрываем.
func submitErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrEmptySender),
		errors.Is(err, domain.ErrBadIdentityRef),
		errors.Is(err, domain.ErrIdentityNotFound):
		return err.Error()
	default:
		return "failed to persist message"
	}
}

// --- helpers ---

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

type wsConn struct {
	conn   *websocket.Conn
	sender string
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn, sender string) *wsConn {
	return &wsConn{
		conn:   c,
		sender: sender,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) Sender() string { return c.sender }
