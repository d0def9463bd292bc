package rail

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Счётчики работы резолвера. Регистрируются при загрузке пакета,
// экспортируются общим HTTP-эндпоинтом метрик сервера.
var (
	reconnectCommits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rail",
		Name:      "reconnect_commits_total",
		Help:      "Число зафиксированных новых связей между сегментами.",
	})
	orientationWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rail",
		Name:      "orientation_writes_total",
		Help:      "Число записей ориентации в сетку.",
	})
	supportRemovals = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rail",
		Name:      "support_removals_total",
		Help:      "Число сегментов, удалённых из-за потери опоры.",
	})
)

func init() {
	prometheus.MustRegister(reconnectCommits, orientationWrites, supportRemovals)
}
