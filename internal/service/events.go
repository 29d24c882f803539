package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/epicstrade/rifas/internal/model"
)

// EventType represents the type of event
type EventType string

const (
	// Raffle events, topic raffle:<id>
	EventRaffleUpdated   EventType = "raffle.updated"
	EventRaffleDrawn     EventType = "raffle.drawn"
	EventRaffleCancelled EventType = "raffle.cancelled"

	// Auction events, topic auction:<id>
	EventBidPlaced     EventType = "auction.bid"
	EventAuctionTick   EventType = "auction.tick"
	EventAuctionClosed EventType = "auction.closed"

	// User events
	EventWalletUpdated EventType = "wallet.updated"
	EventOutbid        EventType = "auction.outbid"
	EventTicketReply   EventType = "support.reply"

	// System events
	EventHeartbeat EventType = "heartbeat"
)

// Event represents a server-sent event
type Event struct {
	Type  EventType   `json:"type"`
	Data  interface{} `json:"data"`
	Topic string      `json:"-"` // Used for routing, not sent to client
}

// Format returns the SSE formatted string
func (e *Event) Format() string {
	data, _ := json.Marshal(e.Data)
	return "event: " + string(e.Type) + "\ndata: " + string(data) + "\n\n"
}

// RaffleTopic is the stream topic of one raffle
func RaffleTopic(id string) string { return "raffle:" + id }

// AuctionTopic is the stream topic of one auction
func AuctionTopic(id string) string { return "auction:" + id }

// Subscriber represents a connected SSE client
type Subscriber struct {
	ID     string
	Topic  string
	Events chan *Event
	Done   chan struct{}
}

// EventHub manages SSE subscriptions and event broadcasting. A nil hub
// accepts publishes and drops them.
type EventHub struct {
	mu              sync.RWMutex
	subscribers     map[string]map[string]*Subscriber // topic -> subscriberID -> subscriber
	userSubscribers map[string]map[string]*Subscriber // userID -> subscriberID -> subscriber
	heartbeat       *time.Ticker
	done            chan struct{}
	closeOnce       sync.Once
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return newEventHub(30 * time.Second)
}

func newEventHub(interval time.Duration) *EventHub {
	hub := &EventHub{
		subscribers:     make(map[string]map[string]*Subscriber),
		userSubscribers: make(map[string]map[string]*Subscriber),
		done:            make(chan struct{}),
	}
	hub.heartbeat = time.NewTicker(interval)
	go hub.sendHeartbeats()
	return hub
}

// Subscribe adds a new subscriber for a topic
func (h *EventHub) Subscribe(topic, subscriberID string) *Subscriber {
	return h.add(h.subscribers, topic, subscriberID)
}

// Unsubscribe removes a topic subscriber
func (h *EventHub) Unsubscribe(topic, subscriberID string) {
	h.remove(h.subscribers, topic, subscriberID)
}

// SubscribeUser adds a new subscriber for user-directed events
func (h *EventHub) SubscribeUser(userID, subscriberID string) *Subscriber {
	return h.add(h.userSubscribers, userID, subscriberID)
}

// UnsubscribeUser removes a user subscriber
func (h *EventHub) UnsubscribeUser(userID, subscriberID string) {
	h.remove(h.userSubscribers, userID, subscriberID)
}

func (h *EventHub) add(set map[string]map[string]*Subscriber, key, subscriberID string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{
		ID:     subscriberID,
		Topic:  key,
		Events: make(chan *Event, 100),
		Done:   make(chan struct{}),
	}
	if set[key] == nil {
		set[key] = make(map[string]*Subscriber)
	}
	set[key][subscriberID] = sub
	return sub
}

func (h *EventHub) remove(set map[string]map[string]*Subscriber, key, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := set[key]
	if !ok {
		return
	}
	if sub, ok := subs[subscriberID]; ok {
		close(sub.Done)
		close(sub.Events)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(set, key)
	}
}

// Publish sends an event to all subscribers of its topic
func (h *EventHub) Publish(event *Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	broadcast(h.subscribers[event.Topic], event)
}

// SendToUser sends an event to all streams of a user
func (h *EventHub) SendToUser(userID string, event *Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	broadcast(h.userSubscribers[userID], event)
}

func broadcast(subs map[string]*Subscriber, event *Event) {
	for _, sub := range subs {
		select {
		case sub.Events <- event:
		default:
			// Buffer full, skip this subscriber
		}
	}
}

// PublishWallet pushes a wallet snapshot to its owner
func (h *EventHub) PublishWallet(w *model.Wallet) {
	if w == nil {
		return
	}
	h.SendToUser(w.UserID, &Event{Type: EventWalletUpdated, Data: w})
}

// sendHeartbeats sends periodic heartbeats carrying the server time so
// clients can correct countdown drift
func (h *EventHub) sendHeartbeats() {
	for {
		select {
		case <-h.heartbeat.C:
			event := &Event{
				Type: EventHeartbeat,
				Data: map[string]string{
					"server_time": time.Now().UTC().Format(time.RFC3339Nano),
				},
			}
			h.mu.RLock()
			for _, subs := range h.subscribers {
				broadcast(subs, event)
			}
			for _, subs := range h.userSubscribers {
				broadcast(subs, event)
			}
			h.mu.RUnlock()
		case <-h.done:
			return
		}
	}
}

// Close stops the event hub and disconnects every subscriber
func (h *EventHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.heartbeat.Stop()

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, set := range []map[string]map[string]*Subscriber{h.subscribers, h.userSubscribers} {
			for key, subs := range set {
				for _, sub := range subs {
					close(sub.Done)
					close(sub.Events)
				}
				delete(set, key)
			}
		}
	})
}

// SubscriberCount returns the number of subscribers for a topic
func (h *EventHub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}
