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

// WorkflowHandler exposes invitations, host replies, confirmations and
// application decisions.
type WorkflowHandler struct {
	Service *services.TourService
	Logger  *zap.Logger
}

func (h *WorkflowHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tours/{id}/invitations", h.Invite).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}/invitations/{hostID}/response", h.Reply).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}/confirmations", h.Confirm).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}/reminders", h.Remind).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}/applications", h.ListApplications).Methods(http.MethodGet)
	r.HandleFunc("/applications/{id}", h.GetApplication).Methods(http.MethodGet)
	r.HandleFunc("/applications/{id}/status", h.TransitionApplication).Methods(http.MethodPost)
}

func (h *WorkflowHandler) log() *zap.Logger { return logging.OrNop(h.Logger) }

// Invite reports per-host outcomes. Partial failure is still a 200.
func (h *WorkflowHandler) Invite(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.InviteHosts(r.Context(), mux.Vars(r)["id"])
	if err != nil && res.SentCount == 0 && len(res.SkippedHostIDs) == 0 && len(res.FailedHostIDs) == 0 {
		writeServiceError(w, r, h.log(), "invite hosts", err)
		return
	}

	body := dto.InvitationResultResponse{
		SentCount:      res.SentCount,
		FailedHostIDs:  dto.NonNil(res.FailedHostIDs),
		SkippedHostIDs: dto.NonNil(res.SkippedHostIDs),
		Errors:         dto.ErrorStrings(res.Errors),
	}
	if err != nil {
		// The tour was cancelled or refused its transition mid-run.
		body.Errors = append(body.Errors, err.Error())
		writeJSON(w, r, http.StatusConflict, body)
		return
	}
	writeJSON(w, r, http.StatusOK, body)
}

func (h *WorkflowHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var body dto.InvitationReplyRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	resp := services.HostResponse{
		Interested:       body.Interested,
		Message:          strings.TrimSpace(body.Message),
		ProposedCapacity: body.ProposedCapacity,
	}
	if body.ProposedDate != "" {
		d, err := dto.ParseDate("proposed_date", body.ProposedDate)
		if err != nil {
			writeServiceError(w, r, h.log(), "record reply", err)
			return
		}
		resp.ProposedDate = d
	}

	vars := mux.Vars(r)
	app, err := h.Service.RespondToInvitation(r.Context(), vars["id"], vars["hostID"], resp)
	if err != nil {
		writeServiceError(w, r, h.log(), "record reply", err)
		return
	}

	out := dto.InvitationReplyResponse{}
	if app != nil {
		a := dto.FromApplication(app)
		out.Application = &a
	}
	writeJSON(w, r, http.StatusOK, out)
}

func confirmationBody(res services.ConfirmationBatchResult) dto.ConfirmationResultResponse {
	return dto.ConfirmationResultResponse{
		ConfirmedCount:        res.ConfirmedCount,
		FailedApplicationIDs:  dto.NonNil(res.FailedApplicationIDs),
		SkippedApplicationIDs: dto.NonNil(res.SkippedApplicationIDs),
		Errors:                dto.ErrorStrings(res.Errors),
	}
}

func (h *WorkflowHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Confirm(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log(), "confirm applications", err)
		return
	}
	writeJSON(w, r, http.StatusOK, confirmationBody(res))
}

func (h *WorkflowHandler) Remind(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.SendReminders(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log(), "send reminders", err)
		return
	}
	body := confirmationBody(res.ConfirmationBatchResult)
	body.RemindedCount = &res.RemindedCount
	writeJSON(w, r, http.StatusOK, body)
}

// ListApplications accepts repeated or comma separated status filters.
func (h *WorkflowHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	var statuses []domain.ApplicationStatus
	for _, raw := range r.URL.Query()["status"] {
		for _, s := range strings.Split(raw, ",") {
			st := domain.ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
			if !st.Valid() {
				writeError(w, r, http.StatusBadRequest, "unknown application status "+s)
				return
			}
			statuses = append(statuses, st)
		}
	}

	apps, err := h.Service.ListApplications(r.Context(), mux.Vars(r)["id"], statuses...)
	if err != nil {
		writeServiceError(w, r, h.log(), "list applications", err)
		return
	}

	res := dto.ListApplicationsResponse{Applications: make([]dto.ApplicationResponse, 0, len(apps))}
	for i := range apps {
		res.Applications = append(res.Applications, dto.FromApplication(&apps[i]))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *WorkflowHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.Service.GetApplication(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.log(), "get application", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromApplication(app))
}

func (h *WorkflowHandler) TransitionApplication(w http.ResponseWriter, r *http.Request) {
	var body dto.StatusRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	to := domain.ApplicationStatus(strings.ToLower(strings.TrimSpace(body.Status)))
	app, err := h.Service.TransitionApplication(r.Context(), mux.Vars(r)["id"], to, strings.TrimSpace(body.Note))
	if err != nil {
		writeServiceError(w, r, h.log(), "transition application", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromApplication(app))
}
