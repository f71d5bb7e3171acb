package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Pinger — проверка готовности (база данных).
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter возвращает роутер с /metrics и /healthz.
func NewRouter(db Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: " + err.Error()))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Server — HTTP-сервер для Prometheus и проверок здоровья.
type Server struct {
	srv *http.Server
}

// NewServer создаёт сервер на addr. Пустой addr отключает сервер.
func NewServer(addr string, db Pinger) *Server {
	if addr == "" {
		return &Server{}
	}
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(db),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start запускает сервер в отдельной горутине.
func (s *Server) Start() {
	if s.srv == nil {
		log.Info("Сервер метрик отключён (METRICS_ADDR пуст)")
		return
	}
	go func() {
		log.WithField("addr", s.srv.Addr).Info("Сервер метрик запущен")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Сервер метрик остановился с ошибкой")
		}
	}()
}

// Shutdown останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
