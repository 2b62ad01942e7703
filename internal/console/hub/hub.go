// Package hub раздает снимки вью и уведомления подключенным браузерам по WebSocket.
package hub

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/engine"
)

// Типы сообщений в потоке.
const (
	TypeSnapshot     = "snapshot"
	TypeNotification = "notification"
)

// Message - конверт для браузера.
type Message struct {
	Type    string `json:"type"`
	View    string `json:"view,omitempty"`
	Payload any    `json:"payload"`
}

type Options struct {
	// Размер очереди рассылки и буфера каждого клиента
	BroadcastBuffer int
	ClientBuffer    int
	// CheckOrigin для апгрейда; nil - пропускаем всех
	CheckOrigin func(r *http.Request) bool
	Clients     prometheus.Gauge
	Logger      *zap.Logger
}

// Hub - одна горутина владеет списком клиентов и последним снимком каждой вью.
type Hub struct {
	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan Message
	done       chan struct{}

	count   atomic.Int64
	dropped atomic.Int64
}

func New(opts Options) *Hub {
	if opts.BroadcastBuffer <= 0 {
		opts.BroadcastBuffer = 256
	}
	if opts.ClientBuffer <= 0 {
		opts.ClientBuffer = 64
	}
	if opts.CheckOrigin == nil {
		opts.CheckOrigin = func(*http.Request) bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Hub{
		opts:   opts,
		logger: opts.Logger.With(zap.String("mod", "ws-hub")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, opts.BroadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run - цикл хаба. При отмене ctx закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	clients := make(map[*client]struct{})
	latest := make(map[string]Message) // последний снимок по вью

	drop := func(c *client) {
		if _, ok := clients[c]; !ok {
			return
		}
		delete(clients, c)
		close(c.send)
		h.setCount(len(clients))
	}

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				drop(c)
			}
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.setCount(len(clients))
			// Новому клиенту сразу отдаем текущее состояние
			for _, m := range latest {
				select {
				case c.send <- m:
				default:
				}
			}

		case c := <-h.unregister:
			drop(c)

		case m := <-h.broadcast:
			if m.Type == TypeSnapshot && m.View != "" {
				latest[m.View] = m
			}
			for c := range clients {
				select {
				case c.send <- m:
				default:
					// Медленный клиент не должен тормозить остальных
					h.logger.Warn("slow websocket client dropped", zap.String("remote", c.remote))
					drop(c)
				}
			}
		}
	}
}

// Publish ставит снимок вью в очередь рассылки. Не блокирует.
func (h *Hub) Publish(view string, snapshot any) {
	h.enqueue(Message{Type: TypeSnapshot, View: view, Payload: snapshot})
}

// Notify реализует engine.Notifier.
func (h *Hub) Notify(_ context.Context, n engine.Notification) {
	h.enqueue(Message{Type: TypeNotification, View: n.View, Payload: n})
}

func (h *Hub) enqueue(m Message) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- m:
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue full, message dropped", zap.String("type", m.Type), zap.String("view", m.View))
	}
}

// Clients - число подключенных браузеров.
func (h *Hub) Clients() int { return int(h.count.Load()) }

func (h *Hub) setCount(n int) {
	h.count.Store(int64(n))
	if h.opts.Clients != nil {
		h.opts.Clients.Set(float64(n))
	}
}

// ServeWS апгрейдит соединение и регистрирует клиента.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan Message, h.opts.ClientBuffer),
		remote: r.RemoteAddr,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
