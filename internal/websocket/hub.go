package websocket

import (
	"context"
	"log"
)

// notification is a payload addressed to a set of users.
type notification struct {
	userIDs []uint
	payload []byte
}

type presenceQuery struct {
	userID uint
	reply  chan bool
}

// Hub maintains the set of active clients and pushes notifications to them.
type Hub struct {
	// Registered clients, one connection per user ID.
	clients map[uint]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Notifications aimed at specific users.
	direct chan notification

	presence chan presenceQuery
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uint]*Client),
		direct:     make(chan notification, 256),
		presence:   make(chan presenceQuery),
	}
}

// SendToUsers queues payload for every connected user in userIDs.
// 不阻塞调用方 (Kafka consumer)，通道满时丢弃。
func (h *Hub) SendToUsers(userIDs []uint, payload []byte) {
	if len(userIDs) == 0 {
		return
	}
	select {
	case h.direct <- notification{userIDs: userIDs, payload: payload}:
	default:
		notificationsDropped.WithLabelValues("hub_full").Inc()
		log.Printf("警告: Hub direct channel is full. Dropping notification for users %v", userIDs)
	}
}

// IsOnline reports whether userID currently has a registered connection.
func (h *Hub) IsOnline(userID uint) bool {
	q := presenceQuery{userID: userID, reply: make(chan bool, 1)}
	h.presence <- q
	return <-q.reply
}

// Run starts the hub and serves its channels until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	log.Println("WebSocket Hub Run loop started.")
	for {
		select {
		case <-ctx.Done():
			for userID, client := range h.clients {
				close(client.send)
				delete(h.clients, userID)
			}
			connectedClients.Set(0)
			log.Println("WebSocket Hub stopped.")
			return

		case client := <-h.register:
			if existingClient, ok := h.clients[client.UserID]; ok {
				log.Printf("警告: 用户 %d 已有连接，关闭旧连接并注册新连接。", client.UserID)
				close(existingClient.send)
			} else {
				connectedClients.Inc()
			}
			h.clients[client.UserID] = client
			log.Printf("客户端已注册: UserID %d", client.UserID)

		case client := <-h.unregister:
			// 旧连接已被替换时只忽略，避免关闭新连接的 send
			if storedClient, ok := h.clients[client.UserID]; ok && storedClient == client {
				delete(h.clients, client.UserID)
				close(client.send)
				connectedClients.Dec()
				log.Printf("客户端已注销: UserID %d", client.UserID)
			}

		case q := <-h.presence:
			_, ok := h.clients[q.userID]
			q.reply <- ok

		case n := <-h.direct:
			for _, userID := range n.userIDs {
				client, ok := h.clients[userID]
				if !ok {
					continue
				}
				select {
				case client.send <- n.payload:
					notificationsDelivered.Inc()
				default:
					log.Printf("警告: UserID %d 的发送通道已满或关闭，移除客户端。", userID)
					notificationsDropped.WithLabelValues("client_full").Inc()
					close(client.send)
					delete(h.clients, userID)
					connectedClients.Dec()
				}
			}
		}
	}
}
