// Package notify forwards booking lifecycle events to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type TelegramNotifier struct {
	sender domain.TelegramSender
	chatID int64
	queue  chan tgbotapi.MessageConfig
	logger *zerolog.Logger
}

func NewTelegramNotifier(sender domain.TelegramSender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramNotifier{
		sender: sender,
		chatID: chatID,
		queue:  make(chan tgbotapi.MessageConfig, models.NotifyQueueSize),
		logger: logger,
	}
}

// Subscribe registers handlers for every event the notifier reports.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.handleBooking)
	bus.Subscribe(events.EventBookingApproved, n.handleBooking)
	bus.Subscribe(events.EventBookingRejected, n.handleBooking)
	bus.Subscribe(events.EventCommentCreated, n.handleComment)
}

// Start sends queued messages until ctx is done.
func (n *TelegramNotifier) Start(ctx context.Context) {
	n.logger.Info().Int64("chat_id", n.chatID).Msg("telegram notifier started")
	for {
		select {
		case <-ctx.Done():
			n.logger.Info().Int("dropped", len(n.queue)).Msg("telegram notifier stopped")
			return
		case msg := <-n.queue:
			if _, err := n.sender.Send(msg); err != nil {
				n.logger.Error().Err(err).Msg("telegram send failed")
			}
		}
	}
}

func (n *TelegramNotifier) handleBooking(ev *events.Event) error {
	var p events.BookingEventPayload
	if err := ev.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", ev.Type, err)
	}
	n.enqueue(bookingText(ev.Type, p))
	return nil
}

func (n *TelegramNotifier) handleComment(ev *events.Event) error {
	var p events.CommentEventPayload
	if err := ev.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", ev.Type, err)
	}
	n.enqueue(fmt.Sprintf("💬 <b>%s</b> оставил(а) отзыв о вещи #%d:\n%s",
		html.EscapeString(p.AuthorName), p.ItemID, html.EscapeString(p.Text)))
	return nil
}

func (n *TelegramNotifier) enqueue(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	select {
	case n.queue <- msg:
	default:
		n.logger.Warn().Msg("telegram queue full, notification dropped")
	}
}

func bookingText(eventType string, p events.BookingEventPayload) string {
	var head string
	switch eventType {
	case events.EventBookingCreated:
		head = "🆕 Новое бронирование"
	case events.EventBookingApproved:
		head = "✅ Бронирование подтверждено"
	case events.EventBookingRejected:
		head = "❌ Бронирование отклонено"
	default:
		head = eventType
	}

	return fmt.Sprintf("%s #%d\nВещь: <b>%s</b> (#%d)\nАрендатор: %s (#%d)\nПериод: %s - %s\nСтатус: %s",
		head, p.BookingID,
		html.EscapeString(p.ItemName), p.ItemID,
		html.EscapeString(p.BookerName), p.BookerID,
		p.Start.UTC().Format(models.TimeLayout), p.End.UTC().Format(models.TimeLayout),
		p.Status)
}
