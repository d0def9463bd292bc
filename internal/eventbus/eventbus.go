package eventbus

import (
	"context"
	"sync"
	"time"
)

// Envelope - контейнер события мира. Полезная нагрузка сериализована в
// JSON; типизированные структуры нагрузок и конструкторы живут в
// envelope.go.
type Envelope struct {
	ID            string            // Глобально уникальный идентификатор (UUID)
	Timestamp     time.Time         // Время создания (UTC)
	Source        string            // Имя сервиса-источника
	EventType     string            // Тип события (block_set, rail_break…)
	Version       int               // Версия схемы нагрузки
	CorrelationID string            // Для связывания цепочек событий
	Priority      int               // 0=Low … 9=Critical, влияет на backpressure
	Payload       []byte            // Сериализованная нагрузка
	Metadata      map[string]string // Произвольные метаданные
}

// Filter ограничивает подписку нужными типами и источниками.
// Пустой срез означает "все".
type Filter struct {
	Types   []string
	Sources []string
}

// Subscription позволяет отписаться
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события
type Handler func(ctx context.Context, ev *Envelope)

// Stats - агрегированные счётчики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus - абстракция шины событий. Реализации: in-memory для
// одиночного процесса и NATS JetStream для кластера.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
}

//================ In-memory реализация =================//

type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]subscriber
	nextID      int
	stats       Stats
	queue       chan *Envelope
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт шину в памяти с очередью указанной ёмкости
func NewMemoryBus(capacity int) EventBus {
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		queue:       make(chan *Envelope, capacity),
	}
	go mb.dispatchLoop()
	return mb
}

// Publish кладёт событие в очередь. При заполненной очереди события с
// приоритетом ниже 5 отбрасываются, остальные ждут места или отмены
// контекста.
func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case mb.queue <- ev:
		mb.countPublished()
		return nil
	default:
	}

	if ev.Priority < 5 {
		mb.mu.Lock()
		mb.stats.Dropped++
		mb.mu.Unlock()
		return nil
	}

	select {
	case mb.queue <- ev:
		mb.countPublished()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *memoryBus) countPublished() {
	mb.mu.Lock()
	mb.stats.Published++
	mb.mu.Unlock()
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	cctx, cancel := context.WithCancel(ctx)

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = subscriber{filter: f, handler: h, ctx: cctx, cancel: cancel}
	mb.mu.Unlock()

	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	s.InFlight = len(mb.queue)
	return s
}

// dispatchLoop раздаёт события из очереди всем подходящим подписчикам
func (mb *memoryBus) dispatchLoop() {
	for ev := range mb.queue {
		mb.mu.RLock()
		subs := make([]subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			if sub.filter.matches(ev) {
				subs = append(subs, sub)
			}
		}
		mb.mu.RUnlock()

		for _, sub := range subs {
			go func(s subscriber, ev *Envelope) {
				select {
				case <-s.ctx.Done():
					return
				default:
					s.handler(s.ctx, ev)
					mb.mu.Lock()
					mb.stats.Consumed++
					mb.mu.Unlock()
				}
			}(sub, ev)
		}
	}
}

// matches проверяет, проходит ли событие фильтр подписчика
func (f Filter) matches(ev *Envelope) bool {
	return contains(f.Types, ev.EventType) && contains(f.Sources, ev.Source)
}

func contains(set []string, val string) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if v == val {
			return true
		}
	}
	return false
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
