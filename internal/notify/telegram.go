package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"salonagent/internal/events"
	"salonagent/internal/metrics"
)

// TelegramSender is the part of the bot API the notifier needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier tells salon managers about bookings made by the agent.
type Notifier struct {
	sender  TelegramSender
	chatIDs []int64
	logger  *zerolog.Logger
}

// NewNotifier creates a notifier for the given manager chats.
func NewNotifier(sender TelegramSender, chatIDs []int64, logger *zerolog.Logger) *Notifier {
	l := logger.With().Str("component", "notify").Logger()
	return &Notifier{sender: sender, chatIDs: chatIDs, logger: &l}
}

// NewBot connects to the Telegram bot API.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

// Subscribe registers the notifier for booking events.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	for _, t := range []string{events.BookingCreated, events.BookingCancelled, events.BookingRescheduled} {
		bus.Subscribe(t, n.Handle)
	}
}

// Handle sends one message per manager chat.
func (n *Notifier) Handle(e events.Event) error {
	var p events.BookingPayload
	if err := e.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	text := FormatBooking(e.Type, p)

	var errs []error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			metrics.IncNotification("error")
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("booking_id", p.BookingID).Msg("notify manager")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		metrics.IncNotification("ok")
	}
	return errors.Join(errs...)
}

// FormatBooking renders a manager message for a booking event.
func FormatBooking(eventType string, p events.BookingPayload) string {
	var b strings.Builder
	switch eventType {
	case events.BookingCreated:
		b.WriteString("🆕 Новая запись\n")
	case events.BookingCancelled:
		b.WriteString("❌ Запись отменена\n")
	case events.BookingRescheduled:
		b.WriteString("🔁 Запись перенесена\n")
	default:
		fmt.Fprintf(&b, "%s\n", eventType)
	}
	fmt.Fprintf(&b, "ID: %s\n", p.BookingID)
	if p.Name != "" || p.Phone != "" {
		fmt.Fprintf(&b, "Клиент: %s\n", strings.TrimSpace(strings.Join([]string{p.Name, p.Phone}, " ")))
	}
	if p.StaffID != "" {
		fmt.Fprintf(&b, "Мастер: %s\n", p.StaffID)
	}
	if p.StartISO != "" {
		fmt.Fprintf(&b, "Время: %s\n", timeRange(p.StartISO, p.EndISO))
	}
	if len(p.Services) > 0 {
		fmt.Fprintf(&b, "Услуги: %s\n", strings.Join(p.Services, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func timeRange(startISO, endISO string) string {
	start, err := time.Parse(time.RFC3339, startISO)
	if err != nil {
		return startISO
	}
	out := start.Format("02.01.2006 15:04")
	if end, err := time.Parse(time.RFC3339, endISO); err == nil {
		out += "-" + end.Format("15:04")
	}
	return out
}
