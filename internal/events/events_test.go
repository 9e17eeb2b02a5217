package events

import (
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishFansOut(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bus := NewEventBus(&logger)

	var order []string
	bus.Subscribe(BookingCreated, func(e Event) error {
		order = append(order, "first")
		return errors.New("notifier down")
	})
	bus.Subscribe(BookingCreated, func(e Event) error {
		var p BookingPayload
		require.NoError(t, e.Decode(&p))
		assert.Equal(t, "evt-1", p.BookingID)
		order = append(order, "second")
		return nil
	})
	bus.Subscribe(BookingCancelled, func(e Event) error {
		order = append(order, "other")
		return nil
	})

	ev, err := New(BookingCreated, BookingPayload{BookingID: "evt-1", StaffID: "ana"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())

	err = bus.Publish(ev)
	assert.EqualError(t, err, "notifier down")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEventBus_NoSubscribers(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bus := NewEventBus(&logger)
	assert.NoError(t, bus.Publish(Event{Type: KnowledgeReloaded}))
}

func TestNew_BadPayload(t *testing.T) {
	_, err := New(BookingCreated, make(chan int))
	assert.Error(t, err)
}
