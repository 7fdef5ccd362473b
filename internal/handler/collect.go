package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/evandyer/cleanloop/internal/auth"
	"github.com/evandyer/cleanloop/internal/lifecycle"
	"github.com/evandyer/cleanloop/internal/model"
	"github.com/evandyer/cleanloop/internal/oracle"
	"github.com/evandyer/cleanloop/internal/store"
	"github.com/evandyer/cleanloop/internal/websocket"
)

type CollectHandler struct {
	reports   *store.ReportStore
	lifecycle *lifecycle.Service
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewCollectHandler(rs *store.ReportStore, lc *lifecycle.Service, hub *websocket.Hub, logger *slog.Logger) *CollectHandler {
	return &CollectHandler{reports: rs, lifecycle: lc, hub: hub, logger: logger}
}

// Tasks lists reports for the collection board.
func (h *CollectHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.reports.ListCollectionTasks(parseLimit(r, 20))
	if err != nil {
		h.logger.Error("list collection tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Report{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Claim takes exclusive hold of a pending report for the caller.
func (h *CollectHandler) Claim(w http.ResponseWriter, r *http.Request) {
	reportID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	userID := auth.UserID(r.Context())

	report, err := h.lifecycle.Claim(reportID, userID)
	switch {
	case errors.Is(err, lifecycle.ErrReportNotFound):
		writeError(w, http.StatusNotFound, "report not found")
		return
	case errors.Is(err, lifecycle.ErrSelfCollection):
		writeError(w, http.StatusForbidden, "you cannot collect your own report")
		return
	case errors.Is(err, lifecycle.ErrNotClaimable):
		writeError(w, http.StatusConflict, "report is not available to claim")
		return
	case err != nil:
		h.logger.Error("claim report", "report_id", reportID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to claim report")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("report", "claimed", report.ID, nil))
	writeJSON(w, http.StatusOK, report)
}

// Verify submits the collected-waste photo for AI comparison against the
// original report. Only the current collector may call this.
func (h *CollectHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reportID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	userID := auth.UserID(r.Context())

	img, err := readImageForm(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a valid image is required")
		return
	}

	result, err := h.lifecycle.Verify(r.Context(), reportID, userID, img)
	switch {
	case errors.Is(err, lifecycle.ErrReportNotFound):
		writeError(w, http.StatusNotFound, "report not found")
		return
	case errors.Is(err, lifecycle.ErrNotCollector):
		writeError(w, http.StatusForbidden, "only the current collector may verify")
		return
	case errors.Is(err, lifecycle.ErrNotInProgress), errors.Is(err, lifecycle.ErrClaimLost):
		writeError(w, http.StatusConflict, "report is not awaiting your verification")
		return
	case errors.Is(err, oracle.ErrMalformed):
		writeError(w, http.StatusBadGateway, "verification failed, please try again")
		return
	case err != nil:
		// Oracle unreachable or storage failure: surfaced as a retryable
		// failure, never as a silent success.
		h.logger.Error("verify report", "report_id", reportID, "error", err)
		writeError(w, http.StatusBadGateway, "verification failed, please try again")
		return
	}

	if result.Accepted {
		h.hub.Broadcast(websocket.NewMessage("report", "verified", reportID, map[string]any{
			"tokens": result.Tokens,
		}))
		h.hub.NotifyUser(userID, websocket.NewMessage("notification", "created", 0, nil))
	}
	writeJSON(w, http.StatusOK, result)
}
