package api

import (
	"net/http"

	"tour-routing-service/internal/api/handlers"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/ports"
	"tour-routing-service/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(svc *services.TourService, hosts ports.HostRepository, logger *zap.Logger) http.Handler {
	logger = logging.OrNop(logger)
	r := mux.NewRouter()

	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)

	(&handlers.HostHandler{Repo: hosts, Logger: logger}).RegisterRoutes(r)
	(&handlers.TourHandler{Service: svc, Logger: logger}).RegisterRoutes(r)
	(&handlers.WorkflowHandler{Service: svc, Logger: logger}).RegisterRoutes(r)

	r.Use(requestIDMiddleware, loggingMiddleware(logger))
	return r
}
