package rest

import (
	"context"
	"net/http"
	"time"

	"outreach-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	httpServer *http.Server
	logger     port.LoggerPort
}

// NewRouter собирает маршруты /api/v1; вынесен отдельно для тестов
func NewRouter(ingestion *IngestionHandler, tasks *TasksHandler, classify *ClassifyHandler, baseLogger port.LoggerPort) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggerMiddleware(baseLogger), middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingestion/runs", ingestion.RunIngestion)
		r.Post("/matching/runs", ingestion.RunMatching)
		r.Get("/portals/health", ingestion.PortalHealth)

		r.Get("/tasks", tasks.ListTasks)
		r.Post("/tasks/{taskID}/complete", tasks.CompleteTask)

		r.Post("/classify", classify.Classify)
	})
	return r
}

func NewServer(port string, handler http.Handler, baseLogger port.LoggerPort) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: baseLogger,
	}
}

// Start блокирует до остановки; http.ErrServerClosed после Stop не считается ошибкой
func (s *Server) Start() error {
	s.logger.Info("Starting REST server", port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...", nil)
	return s.httpServer.Shutdown(ctx)
}
