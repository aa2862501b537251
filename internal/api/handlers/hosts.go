package handlers

import (
	"net/http"

	"tour-routing-service/internal/api/dto"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/ports"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HostHandler exposes read-only host pool endpoints.
type HostHandler struct {
	Repo   ports.HostRepository
	Logger *zap.Logger
}

func (h *HostHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/hosts", h.List).Methods(http.MethodGet)
}

func (h *HostHandler) List(w http.ResponseWriter, r *http.Request) {
	hosts, err := h.Repo.ListHosts(r.Context())
	if err != nil {
		writeServiceError(w, r, logging.OrNop(h.Logger), "list hosts", err)
		return
	}

	res := dto.ListHostsResponse{
		Hosts: make([]dto.HostResponse, 0, len(hosts)),
	}
	for _, host := range hosts {
		res.Hosts = append(res.Hosts, dto.FromHost(host))
	}

	writeJSON(w, r, http.StatusOK, res)
}
