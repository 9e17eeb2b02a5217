package notify

import (
	"errors"
	"io"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"salonagent/internal/events"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func chatIs(chatID int64) any {
	return mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == chatID
	})
}

func TestNotifier_SendsToEveryManager(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", chatIs(1)).Return(nil).Once()
	sender.On("Send", chatIs(2)).Return(errors.New("blocked by user")).Once()
	sender.On("Send", chatIs(3)).Return(nil).Once()

	logger := zerolog.New(io.Discard)
	n := NewNotifier(sender, []int64{1, 2, 3}, &logger)
	bus := events.NewEventBus(&logger)
	n.Subscribe(bus)

	ev, err := events.New(events.BookingCreated, events.BookingPayload{
		BookingID: "evt-1",
		StaffID:   "ruben",
		Name:      "Carmen",
		Phone:     "+34600111222",
		StartISO:  "2025-10-21T10:00:00+02:00",
		EndISO:    "2025-10-21T10:45:00+02:00",
		Services:  []string{"SVC002"},
	})
	require.NoError(t, err)

	err = bus.Publish(ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat 2")
	sender.AssertExpectations(t)
}

func TestNotifier_IgnoresOtherEvents(t *testing.T) {
	sender := new(mockSender)
	logger := zerolog.New(io.Discard)
	n := NewNotifier(sender, []int64{1}, &logger)
	bus := events.NewEventBus(&logger)
	n.Subscribe(bus)

	require.NoError(t, bus.Publish(events.Event{Type: events.KnowledgeReloaded, Payload: []byte(`{}`)}))
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestFormatBooking(t *testing.T) {
	text := FormatBooking(events.BookingCreated, events.BookingPayload{
		BookingID: "evt-1",
		StaffID:   "ruben",
		Name:      "Carmen",
		Phone:     "+34600111222",
		StartISO:  "2025-10-21T10:00:00+02:00",
		EndISO:    "2025-10-21T10:45:00+02:00",
		Services:  []string{"SVC001", "SVC004"},
	})
	assert.Equal(t, "🆕 Новая запись\n"+
		"ID: evt-1\n"+
		"Клиент: Carmen +34600111222\n"+
		"Мастер: ruben\n"+
		"Время: 21.10.2025 10:00-10:45\n"+
		"Услуги: SVC001, SVC004", text)

	cancelled := FormatBooking(events.BookingCancelled, events.BookingPayload{BookingID: "evt-2", StartISO: "soon"})
	assert.Equal(t, "❌ Запись отменена\nID: evt-2\nВремя: soon", cancelled)
}
