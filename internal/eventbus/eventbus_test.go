package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/railverse/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(64)

	received := make(chan *Envelope, 1)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventTypeBlockSet}}, func(ctx context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err)

	envelope, err := NewEnvelope(EventTypeBlockSet, "test", map[string]int{"x": 1})
	require.NoError(t, err, "Конверт должен собираться")
	require.NotEmpty(t, envelope.ID, "У конверта должен быть UUID")

	require.NoError(t, bus.Publish(context.Background(), envelope))

	select {
	case ev := <-received:
		assert.Equal(t, envelope.ID, ev.ID, "Подписчик должен получить тот же конверт")
		assert.Equal(t, EventTypeBlockSet, ev.EventType)
	case <-time.After(2 * time.Second):
		t.Fatal("Событие не доставлено подписчику")
	}
}

func TestMemoryBus_FilterByType(t *testing.T) {
	bus := NewMemoryBus(64)

	received := make(chan *Envelope, 4)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventTypeRailBreak}}, func(ctx context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err)

	other, _ := NewEnvelope(EventTypeEffect, "test", nil)
	matching, _ := NewEnvelope(EventTypeRailBreak, "test", nil)
	require.NoError(t, bus.Publish(context.Background(), other))
	require.NoError(t, bus.Publish(context.Background(), matching))

	select {
	case ev := <-received:
		assert.Equal(t, EventTypeRailBreak, ev.EventType, "Фильтр должен пропускать только свой тип")
	case <-time.After(2 * time.Second):
		t.Fatal("Событие не доставлено подписчику")
	}

	// Чужих событий быть не должно
	select {
	case ev := <-received:
		t.Fatalf("Пришло лишнее событие: %s", ev.EventType)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(64)

	received := make(chan *Envelope, 4)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	envelope, _ := NewEnvelope(EventTypeBlockSet, "test", nil)
	require.NoError(t, bus.Publish(context.Background(), envelope))

	select {
	case <-received:
		t.Fatal("Отписанный подписчик не должен получать события")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEnvelope_TypedPayloadRoundTrip(t *testing.T) {
	payload := BlockBreakPayload{
		Pos:     vec.Vec3{X: 3, Y: 10, Z: -2},
		BlockID: 100,
		Drops:   1,
	}

	envelope, err := NewEnvelope(EventTypeRailBreak, "test", payload)
	require.NoError(t, err)

	var decoded BlockBreakPayload
	require.NoError(t, envelope.DecodePayload(&decoded), "Нагрузка должна разбираться обратно")
	assert.Equal(t, payload, decoded, "Типизированная нагрузка должна пройти без потерь")
}

func TestMemoryBus_Metrics(t *testing.T) {
	bus := NewMemoryBus(4)

	envelope, _ := NewEnvelope(EventTypeBlockSet, "test", nil)
	require.NoError(t, bus.Publish(context.Background(), envelope))

	// Публикация учитывается сразу, доставка - асинхронно
	stats := bus.Metrics()
	assert.EqualValues(t, 1, stats.Published, "Счётчик публикаций должен расти")
}
