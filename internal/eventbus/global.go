package eventbus

import "context"

var globalBus EventBus

// Init устанавливает процессную шину, в которую публикует publishWorldEvent
func Init(bus EventBus) { globalBus = bus }

// Publish отправляет событие в процессную шину. До Init - тихий no-op,
// чтобы мир мог работать и без шины (например, в тестах).
func Publish(ctx context.Context, ev *Envelope) error {
	if globalBus == nil {
		return nil
	}
	return globalBus.Publish(ctx, ev)
}
