package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	DownloadAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "download_attempts_total",
		Help: "Попытки скачивания по платформам, профилям и исходам",
	}, []string{"platform", "profile", "status"})

	DownloadSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "download_seconds",
		Help:    "Длительность успешного скачивания",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120, 180},
	}, []string{"platform"})

	PublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_total",
		Help: "Публикации в канал по платформам и исходам",
	}, []string{"platform", "status"})

	DuplicateRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_rejections_total",
		Help: "Отклонённые повторные ссылки",
	})

	ScheduledDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduled_dropped_total",
		Help: "Отложенные задачи, пропущенные из-за просроченного окна",
	})

	ScheduledPromoted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduled_promoted_total",
		Help: "Отложенные задачи, переданные в очередь публикации",
	})

	TransportConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transport_conflicts_total",
		Help: "Обнаруженные конфликты второго экземпляра бота",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		DownloadAttempts,
		DownloadSeconds,
		PublishTotal,
		DuplicateRejections,
		ScheduledDropped,
		ScheduledPromoted,
		TransportConflicts,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с /metrics и /healthz.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}
