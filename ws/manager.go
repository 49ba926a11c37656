package ws

import (
	"context"
	"encoding/json"
	"sync"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/services"

	"gorm.io/gorm"
)

// WebSocketManager хранит подключения по userID. У одного пользователя
// может быть несколько вкладок, поэтому клиентов на ключ много.
type WebSocketManager struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	mu         sync.RWMutex

	chatService services.ChatService
	db          *gorm.DB
}

func NewWebSocketManager(chatService services.ChatService, db *gorm.DB) *WebSocketManager {
	return &WebSocketManager{
		clients:     make(map[string]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		stopped:     make(chan struct{}),
		chatService: chatService,
		db:          db,
	}
}

// Run обслуживает регистрацию клиентов до отмены ctx
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.stopped)

	for {
		select {
		case <-ctx.Done():
			manager.closeAll()
			logger.Info("WebSocket manager stopped")
			return

		case client := <-manager.register:
			manager.mu.Lock()
			set, ok := manager.clients[client.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				manager.clients[client.UserID] = set
			}
			set[client] = struct{}{}
			manager.mu.Unlock()
			logger.Debug("WebSocket client registered", "user_id", client.UserID, "admin", client.IsAdmin)

		case client := <-manager.unregister:
			manager.remove(client)
		}
	}
}

func (manager *WebSocketManager) Register(client *Client) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.stopped:
		return false
	}
}

func (manager *WebSocketManager) Unregister(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.stopped:
	}
}

func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	set, ok := manager.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	close(client.Send)
	delete(set, client)
	if len(set) == 0 {
		delete(manager.clients, client.UserID)
	}
	logger.Debug("WebSocket client unregistered", "user_id", client.UserID)
}

func (manager *WebSocketManager) closeAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	for userID, set := range manager.clients {
		for client := range set {
			close(client.Send)
		}
		delete(manager.clients, userID)
	}
}

// NotifyUser отправляет событие во все соединения пользователя
func (manager *WebSocketManager) NotifyUser(userID string, event interface{}) {
	payload, ok := encodeEvent(event)
	if !ok {
		return
	}

	manager.mu.RLock()
	defer manager.mu.RUnlock()

	for client := range manager.clients[userID] {
		manager.trySend(client, payload)
	}
}

// NotifyAdmins отправляет событие всем подключенным администраторам
func (manager *WebSocketManager) NotifyAdmins(event interface{}) {
	payload, ok := encodeEvent(event)
	if !ok {
		return
	}

	manager.mu.RLock()
	defer manager.mu.RUnlock()

	for _, set := range manager.clients {
		for client := range set {
			if client.IsAdmin {
				manager.trySend(client, payload)
			}
		}
	}
}

// trySend вызывается под RLock: remove не закроет канал параллельно
func (manager *WebSocketManager) trySend(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		// Канал заполнен, клиент отключается
		logger.Warn("WebSocket client is too slow, disconnecting", "user_id", client.UserID)
		go manager.Unregister(client)
	}
}

func encodeEvent(event interface{}) ([]byte, bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Error("failed to encode websocket event")
		return nil, false
	}
	return payload, true
}

// GetClientCount возвращает количество открытых соединений
func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	total := 0
	for _, set := range manager.clients {
		total += len(set)
	}
	return total
}

// IsClientConnected проверяет, есть ли у пользователя открытое соединение
func (manager *WebSocketManager) IsClientConnected(userID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients[userID]) > 0
}

var _ services.Notifier = (*WebSocketManager)(nil)
