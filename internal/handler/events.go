package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/service"
)

// EventsHandlerConfig holds the stream dependencies
type EventsHandlerConfig struct {
	Hub      *service.EventHub
	Raffles  RaffleAPI
	Auctions AuctionAPI
	// TickInterval is how often auction streams push a countdown tick.
	// Defaults to one second.
	TickInterval time.Duration
}

// EventsHandler handles SSE event streaming
type EventsHandler struct {
	hub          *service.EventHub
	raffles      RaffleAPI
	auctions     AuctionAPI
	tickInterval time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(cfg EventsHandlerConfig) *EventsHandler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &EventsHandler{
		hub:          cfg.Hub,
		raffles:      cfg.Raffles,
		auctions:     cfg.Auctions,
		tickInterval: cfg.TickInterval,
	}
}

// RaffleStream handles GET /v1/raffles/{raffleId}/stream
func (h *EventsHandler) RaffleStream(w http.ResponseWriter, r *http.Request) {
	raffle, err := h.raffles.Get(r.Context(), r.PathValue("raffleId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "raffle stream"))
		return
	}

	topic := service.RaffleTopic(raffle.ID)
	subID := uuid.New().String()
	sub := h.hub.Subscribe(topic, subID)
	defer h.hub.Unsubscribe(topic, subID)

	h.stream(w, r, sub, &service.Event{Type: service.EventRaffleUpdated, Data: raffle}, nil, nil)
}

// AuctionStream handles GET /v1/auctions/{auctionId}/stream. Besides bid
// events the stream carries an auction.tick every TickInterval until the
// auction leaves the active state.
func (h *EventsHandler) AuctionStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("auctionId")
	tick, err := h.auctions.Tick(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "auction stream"))
		return
	}

	topic := service.AuctionTopic(id)
	subID := uuid.New().String()
	sub := h.hub.Subscribe(topic, subID)
	defer h.hub.Unsubscribe(topic, subID)

	var ticks <-chan time.Time
	if tick.Status == model.AuctionStatusActive {
		ticker := time.NewTicker(h.tickInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}
	next := func(ctx context.Context) (*service.Event, bool) {
		t, err := h.auctions.Tick(ctx, id)
		if err != nil {
			return nil, false
		}
		return &service.Event{Type: service.EventAuctionTick, Data: t}, t.Status == model.AuctionStatusActive
	}
	h.stream(w, r, sub, &service.Event{Type: service.EventAuctionTick, Data: tick}, ticks, next)
}

// UserStream handles GET /v1/me/stream: wallet updates, outbid notices
// and support replies for the caller
func (h *EventsHandler) UserStream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := uuid.New().String()
	sub := h.hub.SubscribeUser(userID, subID)
	defer h.hub.UnsubscribeUser(userID, subID)

	h.stream(w, r, sub, nil, nil, nil)
}

// tickFunc produces a periodic event; false stops further ticks
type tickFunc func(ctx context.Context) (*service.Event, bool)

func (h *EventsHandler) stream(w http.ResponseWriter, r *http.Request, sub *service.Subscriber, initial *service.Event, ticks <-chan time.Time, tick tickFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, model.NewInternalError("streaming not supported"))
		return
	}
	// Streams outlive the server's WriteTimeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: connected\ndata: {\"subscriber_id\":\"%s\"}\n\n", sub.ID)
	if initial != nil {
		fmt.Fprint(w, initial.Format())
	}
	flusher.Flush()

	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			fmt.Fprint(w, event.Format())
			flusher.Flush()

		case <-ticks:
			event, more := tick(r.Context())
			if event != nil {
				fmt.Fprint(w, event.Format())
				flusher.Flush()
			}
			if !more {
				ticks = nil
			}

		case <-sub.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}
