package websocket

import (
	"context"
	"encoding/json"

	"github.com/isdelr/pinboard-be/internal/events"
	"github.com/rs/zerolog/log"
)

// envelope is an encoded message plus the pin it concerns, if any.
// A non-nil to addresses a single client.
type envelope struct {
	pinID string
	to    *Client
	data  []byte
}

// Hub maintains the set of active clients and broadcasts activity events to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound events.
	broadcast chan envelope

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// A map of pin IDs to the set of clients following that pin.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

var _ events.Publisher = (*Hub)(nil)

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:     make(chan envelope, 64),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			if client.PinID != "" {
				h.addSubscription(client, client.PinID)
			}
			log.Info().Int("total_clients", len(h.clients)).Str("pin_id", client.PinID).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Join attaches a client. It is a no-op once the hub has stopped.
func (h *Hub) Join(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Leave detaches a client. It is a no-op once the hub has stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for delivery. Clients without a pin subscription
// receive every event; pin followers only receive events about their pin.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(Message{Action: e.Type, Payload: e})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- envelope{pinID: e.PinID, data: data}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendTo queues data for one client. It is dropped if the client has left.
func (h *Hub) SendTo(client *Client, data []byte) {
	select {
	case h.broadcast <- envelope{to: client, data: data}:
	case <-h.done:
	}
}

func (h *Hub) deliver(msg envelope) {
	if msg.to != nil {
		if h.clients[msg.to] {
			h.send(msg.to, msg.data)
		}
		return
	}
	for client := range h.clients {
		if client.PinID == "" {
			h.send(client, msg.data)
		}
	}
	if msg.pinID == "" {
		return
	}
	for client := range h.subscriptions[msg.pinID] {
		h.send(client, msg.data)
	}
}

func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		// Slow consumer; cut it loose rather than stall everyone else.
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, pinID string) {
	if h.subscriptions[pinID] == nil {
		h.subscriptions[pinID] = make(map[*Client]bool)
	}
	h.subscriptions[pinID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for pinID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, pinID)
			}
		}
	}
}
