package eventbus

import (
	"context"

	"github.com/annel0/railverse/internal/logging"
)

// StartLoggingListener подписывается на все события шины и пишет их в
// отладочный лог. Неблокирующий.
func StartLoggingListener(bus EventBus) error {
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		logging.LogDebug("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return err
	}
	logging.LogInfo("🪵 Лог событий шины активирован")
	return nil
}
