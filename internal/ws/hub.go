package ws

import (
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rustaceolibre/marketplace-backend/internal/logger"
)

// Hub управляет всеми WebSocket клиентами и доставляет им события
// жизненного цикла заказов и диспутов. Персистентность уведомлений
// лежит на сервисе уведомлений, хаб отвечает только за доставку онлайн.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	log        *logrus.Entry
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		log:        logger.WithComponent("ws"),
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Push отправляет готовое сообщение всем соединениям пользователя.
// Офлайн-пользователь сообщения не получает: для него остаётся
// сохранённое уведомление.
func (h *Hub) Push(userID uuid.UUID, payload []byte) {
	h.broadcast <- message{userID: userID, payload: payload}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		h.sendToClient(client, payload)
	}
}

// sendToClient пишет в канал клиента. Канал может быть уже закрыт
// насосом, поэтому запись защищена recover.
func (h *Hub) sendToClient(client *Client, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("panic", r).Debug("запись в закрытый канал клиента")
		}
	}()

	select {
	case client.send <- payload:
	default:
		// Медленный клиент: закрываем асинхронно, чтобы не держать lock.
		go func(c *Client) {
			defer func() {
				if r := recover(); r != nil {
					h.log.WithField("panic", r).Errorf("panic при закрытии клиента:\n%s", debug.Stack())
				}
			}()
			c.Close()
		}(client)
	}
}
