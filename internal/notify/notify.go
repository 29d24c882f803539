// Package notify delivers admin alerts (new reports, support tickets,
// settlements) to a Telegram chat.
//
// Alerts are best effort: Notify never blocks the caller on the network.
// Messages are queued and sent by a single worker; when the queue is full
// the alert is dropped and logged.
package notify

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/epicstrade/rifas/internal/config"
)

const queueSize = 64

// Notifier sends a plain-text alert to the admins
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// sender is the part of tgbotapi.BotAPI the notifier uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram queues alerts and posts them to one chat
type Telegram struct {
	bot    sender
	chatID int64
	logger *slog.Logger
	queue  chan string
	wg     sync.WaitGroup

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
}

// New returns a Telegram notifier when enabled, otherwise a no-op
func New(cfg config.TelegramConfig, logger *slog.Logger) (Notifier, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	logger.Info("telegram alerts enabled", "bot", bot.Self.UserName)
	return newTelegram(bot, cfg.ChatID, logger), nil
}

func newTelegram(bot sender, chatID int64, logger *slog.Logger) *Telegram {
	t := &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: logger,
		queue:  make(chan string, queueSize),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// Notify queues text for delivery. Alerts raised after Close are dropped.
func (t *Telegram) Notify(_ context.Context, text string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.logger.Warn("telegram notifier closed, alert dropped", "text", text)
		return nil
	}
	select {
	case t.queue <- text:
	default:
		t.logger.Warn("telegram queue full, alert dropped", "text", text)
	}
	return nil
}

// Close flushes queued alerts and stops the worker
func (t *Telegram) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Telegram) run() {
	defer t.wg.Done()
	for text := range t.queue {
		msg := tgbotapi.NewMessage(t.chatID, text)
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Error("telegram alert failed", "error", err)
		}
	}
}

// Noop discards alerts
type Noop struct{}

// Notify does nothing
func (Noop) Notify(context.Context, string) error { return nil }
