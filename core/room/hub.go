package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/store"

	"github.com/gorilla/websocket"
)

// MessageType identifies a websocket message.
type MessageType string

const (
	MsgTypePing  MessageType = "ping"
	MsgTypePong  MessageType = "pong"
	MsgTypeError MessageType = "error"

	// MsgTypePlaybackReport is sent by the host to publish player state.
	MsgTypePlaybackReport MessageType = "playback_report"
	// MsgTypePlaybackSync fans the accepted state out to every listener.
	MsgTypePlaybackSync MessageType = "playback_sync"
	// MsgTypePlaylistUpdate tells listeners the playlist changed.
	MsgTypePlaylistUpdate MessageType = "playlist_update"
)

// WSMessage is the wire format for room websocket traffic.
type WSMessage struct {
	Type      MessageType     `json:"type"`
	RoomName  string          `json:"roomName,omitempty"`
	Username  string          `json:"username,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// Client is one websocket subscriber in a room.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	RoomName string
	Username string
	IsHost   bool
}

// Hub routes playback and playlist updates to room subscribers.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	store *store.RoomStore

	mu   sync.RWMutex
	done chan struct{}
}

type broadcastMessage struct {
	roomName string
	message  []byte
	exclude  *Client
}

// NewHub creates a Hub persisting playback state in the given store.
func NewHub(roomStore *store.RoomStore) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		store:      roomStore,
		done:       make(chan struct{}),
	}
}

// Run starts the hub main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastToRoom(msg)
		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop shuts the hub down and closes every connection.
func (h *Hub) Stop() {
	close(h.done)
}

// Subscribe attaches a websocket connection to a room and starts its pumps.
func (h *Hub) Subscribe(conn *websocket.Conn, roomName, username string, isHost bool) *Client {
	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 64),
		RoomName: roomName,
		Username: username,
		IsHost:   isHost,
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
	return client
}

// BroadcastPlaylist tells every subscriber in the room that the playlist
// changed.
func (h *Hub) BroadcastPlaylist(roomName string, tracks []model.Track) {
	data, err := json.Marshal(tracks)
	if err != nil {
		return
	}
	h.send(roomName, nil, WSMessage{
		Type:      MsgTypePlaylistUpdate,
		RoomName:  roomName,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (h *Hub) send(roomName string, exclude *Client, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- &broadcastMessage{roomName: roomName, message: payload, exclude: exclude}:
	default:
		logger.Warn("Hub broadcast queue full, dropping message",
			logger.String("room", roomName),
			logger.String("type", string(msg.Type)))
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.RoomName] == nil {
		h.rooms[client.RoomName] = make(map[*Client]bool)
	}
	h.rooms[client.RoomName][client] = true

	logger.Info("Room subscriber connected",
		logger.String("room", client.RoomName),
		logger.String("username", client.Username))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeClient(client)
}

func (h *Hub) removeClient(client *Client) {
	clients, ok := h.rooms[client.RoomName]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.RoomName)
	}

	logger.Info("Room subscriber disconnected",
		logger.String("room", client.RoomName),
		logger.String("username", client.Username))
}

func (h *Hub) broadcastToRoom(msg *broadcastMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[msg.roomName]))
	for client := range h.rooms[msg.roomName] {
		if client != msg.exclude {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msg.message:
		default:
			// Slow consumer, drop the connection.
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomName, clients := range h.rooms {
		for client := range clients {
			close(client.send)
			client.conn.Close()
		}
		delete(h.rooms, roomName)
	}
}

// handlePlaybackReport validates a host's state report, persists it and
// fans it out. Stale versions are rejected back to the sender only.
func (h *Hub) handlePlaybackReport(client *Client, msg *WSMessage) {
	if !client.IsHost {
		client.sendError("only the host reports playback state")
		return
	}

	var state model.RoomPlaybackState
	if err := json.Unmarshal(msg.Data, &state); err != nil {
		client.sendError("malformed playback state")
		return
	}
	state.UpdatedBy = client.Username
	state.UpdatedAt = time.Now().UnixMilli()

	if err := h.store.SetPlaybackState(context.Background(), client.RoomName, &state); err != nil {
		if errors.Is(err, store.ErrStaleState) {
			client.sendError("stale playback state")
			return
		}
		logger.Error("Failed to persist playback state",
			logger.String("room", client.RoomName),
			logger.ErrorField(err))
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	h.send(client.RoomName, client, WSMessage{
		Type:      MsgTypePlaybackSync,
		RoomName:  client.RoomName,
		Username:  client.Username,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *Client) sendError(reason string) {
	msg := WSMessage{
		Type:      MsgTypeError,
		RoomName:  c.RoomName,
		Data:      json.RawMessage(`"` + reason + `"`),
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Websocket read error",
					logger.String("room", c.RoomName),
					logger.ErrorField(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}

		switch msg.Type {
		case MsgTypePing:
			pong, _ := json.Marshal(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
			select {
			case c.send <- pong:
			default:
			}
		case MsgTypePlaybackReport:
			c.hub.handlePlaybackReport(c, &msg)
		default:
			c.sendError("unknown message type")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
