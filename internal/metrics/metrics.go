// Package metrics — счётчики Prometheus для бота: апдейты Telegram,
// операции с балансами, решения по заявкам, фоновые задачи.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "economy_bot"

var (
	// Registry — собственный реестр, без глобального DefaultRegisterer.
	Registry = prometheus.NewRegistry()

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Обработанные апдейты Telegram по типу.",
		},
		[]string{"type"},
	)

	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "update_duration_seconds",
			Help:      "Время обработки апдейта.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~5s
		},
		[]string{"type"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "rate_limited_total",
			Help:      "Команды, отброшенные лимитером.",
		},
	)

	ledgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Операции с балансами по типу транзакции и результату.",
		},
		[]string{"kind", "result"},
	)

	coinsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "coins_total",
			Help:      "Сумма начислений и списаний по типу транзакции.",
		},
		[]string{"kind", "direction"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "approval",
			Name:      "decisions_total",
			Help:      "Решения по заявкам.",
		},
		[]string{"workflow", "decision", "result"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Запуски фоновых задач.",
		},
		[]string{"job", "success"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Длительность фоновых задач.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"job"},
	)
)

func init() {
	Registry.MustRegister(
		updatesTotal,
		updateDuration,
		rateLimited,
		ledgerOps,
		coinsMoved,
		decisions,
		jobRuns,
		jobDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordUpdate учитывает один обработанный апдейт.
func RecordUpdate(kind string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	updatesTotal.WithLabelValues(kind).Inc()
	updateDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRateLimited учитывает отброшенную команду.
func RecordRateLimited() {
	rateLimited.Inc()
}

// RecordLedger учитывает операцию с балансом. amount > 0 — начисление,
// amount < 0 — списание; при ошибке сумма не учитывается.
func RecordLedger(kind string, amount int64, err error) {
	if err != nil {
		ledgerOps.WithLabelValues(kind, "error").Inc()
		return
	}
	ledgerOps.WithLabelValues(kind, "ok").Inc()
	switch {
	case amount > 0:
		coinsMoved.WithLabelValues(kind, "credit").Add(float64(amount))
	case amount < 0:
		coinsMoved.WithLabelValues(kind, "debit").Add(float64(-amount))
	}
}

// RecordDecision учитывает решение по заявке.
func RecordDecision(workflow, decision string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	decisions.WithLabelValues(workflow, decision, result).Inc()
}

// RecordJob учитывает запуск фоновой задачи.
func RecordJob(job string, duration time.Duration, success bool) {
	s := "true"
	if !success {
		s = "false"
	}
	jobRuns.WithLabelValues(job, s).Inc()
	jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}
