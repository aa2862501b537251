package handlers

import (
	"net/http"
	"strings"

	"tour-routing-service/internal/api/dto"
	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TourHandler exposes the tour lifecycle: creation, planning, the host
// workflows and status changes.
type TourHandler struct {
	Service *services.TourService
	Logger  *zap.Logger
}

func (h *TourHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tours", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/tours/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/tours/{id}/plan", h.Plan).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}/plan", h.GetPlan).Methods(http.MethodGet)
	r.HandleFunc("/tours/{id}/plan/check", h.CheckPlan).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}/replan", h.Replan).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}/status", h.Transition).Methods(http.MethodPost)
}

func (h *TourHandler) log() *zap.Logger { return logging.OrNop(h.Logger) }

func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body dto.TourRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := body.ToDomain()
	if err != nil {
		writeServiceError(w, r, h.log(), "create tour", err)
		return
	}

	tour, err := h.Service.CreateTour(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log(), "create tour", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromTour(tour))
}

func (h *TourHandler) Get(w http.ResponseWriter, r *http.Request) {
	tour, err := h.Service.GetTour(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log(), "get tour", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromTour(tour))
}

func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body dto.TourRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := body.ToDomain()
	if err != nil {
		writeServiceError(w, r, h.log(), "update tour", err)
		return
	}

	tour, err := h.Service.UpdateRequest(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, r, h.log(), "update tour", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromTour(tour))
}

// Plan runs eligibility filtering and the optimizer. An infeasible plan is
// still a 200; the verdict and violations are in the body.
func (h *TourHandler) Plan(w http.ResponseWriter, r *http.Request) {
	plan, filtered, err := h.Service.PlanTour(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log(), "plan tour", err)
		return
	}

	res := dto.FromPlan(plan)
	res.Exclusions = make([]dto.ExclusionResponse, 0, len(filtered.Exclusions))
	for _, ex := range filtered.Exclusions {
		res.Exclusions = append(res.Exclusions, dto.ExclusionResponse{HostID: ex.HostID, Reason: string(ex.Reason)})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *TourHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Service.ActivePlan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log(), "get plan", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromPlan(plan))
}

// CheckPlan re-validates a submitted plan, or the active plan when the body
// is empty, against the tour named in the path.
func (h *TourHandler) CheckPlan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var plan *domain.TourPlan
	if r.ContentLength == 0 {
		active, err := h.Service.ActivePlan(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, h.log(), "check plan", err)
			return
		}
		plan = active
	} else {
		var body dto.PlanResponse
		if !decodeJSON(w, r, &body) {
			return
		}
		submitted, err := body.ToDomain()
		if err != nil {
			writeServiceError(w, r, h.log(), "check plan", err)
			return
		}
		plan = submitted
	}

	ok, violations, err := h.Service.CheckPlanForTour(r.Context(), id, plan)
	if err != nil {
		writeServiceError(w, r, h.log(), "check plan", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.CheckPlanResponse{Feasible: ok, Violations: dto.FromViolations(violations)})
}

func (h *TourHandler) Replan(w http.ResponseWriter, r *http.Request) {
	var body dto.ReplanRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &body) {
		return
	}

	var req *domain.TourRequest
	if body.Request != nil {
		parsed, err := body.Request.ToDomain()
		if err != nil {
			writeServiceError(w, r, h.log(), "replan tour", err)
			return
		}
		req = &parsed
	}

	tour, err := h.Service.Replan(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, r, h.log(), "replan tour", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromTour(tour))
}

func (h *TourHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var body dto.StatusRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	to := domain.TourStatus(strings.ToLower(strings.TrimSpace(body.Status)))
	tour, err := h.Service.TransitionTour(r.Context(), mux.Vars(r)["id"], to)
	if err != nil {
		writeServiceError(w, r, h.log(), "transition tour", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromTour(tour))
}
