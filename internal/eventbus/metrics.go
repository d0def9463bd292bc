package eventbus

import (
	"net/http"
	"time"

	"github.com/annel0/railverse/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsExporter переводит счётчики EventBus в метрики Prometheus и
// отдаёт их по HTTP. Работает через интерфейс шины, конкретная
// реализация ему не важна.
type MetricsExporter struct {
	bus  EventBus
	quit chan struct{}
	done chan struct{}

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики.
// HTTP-сервер запускается отдельно через StartHTTP.
func NewMetricsExporter(bus EventBus) *MetricsExporter {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      name,
			Help:      help,
		})
	}

	me := &MetricsExporter{
		bus:       bus,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		published: counter("messages_published_total", "Опубликованных сообщений всего."),
		consumed:  counter("messages_consumed_total", "Доставленных подписчикам сообщений всего."),
		dropped:   counter("messages_dropped_total", "Сообщений, отброшенных из-за backpressure."),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventbus",
			Name:      "messages_inflight",
			Help:      "Сообщений в очереди, ещё не доставленных.",
		}),
	}

	prometheus.MustRegister(me.published, me.consumed, me.dropped, me.inflight)
	return me
}

// StartHTTP поднимает эндпоинт Prometheus на указанном адресе
// (например, ":2112") и запускает цикл обновления. Неблокирующий.
func (m *MetricsExporter) StartHTTP(addr string) {
	go func() {
		logging.LogInfo("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
			logging.LogError("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	go m.loop()
}

// Stop останавливает обновление метрик. HTTP-сервер живёт до конца
// процесса: он делит порт только с promhttp.
func (m *MetricsExporter) Stop() {
	close(m.quit)
	<-m.done
}

func (m *MetricsExporter) loop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	defer close(m.done)

	// Counter растёт только на дельту, поэтому храним прошлый срез
	var prev Stats

	for {
		select {
		case <-ticker.C:
			stats := m.bus.Metrics()

			if d := stats.Published - prev.Published; d > 0 {
				m.published.Add(float64(d))
			}
			if d := stats.Consumed - prev.Consumed; d > 0 {
				m.consumed.Add(float64(d))
			}
			if d := stats.Dropped - prev.Dropped; d > 0 {
				m.dropped.Add(float64(d))
			}
			m.inflight.Set(float64(stats.InFlight))

			prev = stats
		case <-m.quit:
			return
		}
	}
}
