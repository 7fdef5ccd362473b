package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evandyer/cleanloop/internal/auth"
	"github.com/evandyer/cleanloop/internal/lifecycle"
	"github.com/evandyer/cleanloop/internal/model"
	"github.com/evandyer/cleanloop/internal/oracle"
	"github.com/evandyer/cleanloop/internal/store"
	"github.com/evandyer/cleanloop/internal/websocket"
)

// imagePutter is the slice of the image store report creation needs.
type imagePutter interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

type ReportHandler struct {
	reports    *store.ReportStore
	lifecycle  *lifecycle.Service
	classifier oracle.Classifier
	images     imagePutter
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewReportHandler(rs *store.ReportStore, lc *lifecycle.Service, classifier oracle.Classifier, images imagePutter, hub *websocket.Hub, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports:    rs,
		lifecycle:  lc,
		classifier: classifier,
		images:     images,
		hub:        hub,
		logger:     logger,
	}
}

// Analyze classifies a waste photo so the client can pre-fill the report
// form. The suggestion stays human-editable; nothing is persisted here.
func (h *ReportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	img, err := readImageForm(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a valid image is required")
		return
	}

	result, err := h.classifier.Classify(r.Context(), img)
	if err != nil {
		h.logger.Warn("classify image", "error", err)
		writeError(w, http.StatusBadGateway, "could not analyze image")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Create submits a new report. Multipart form: location, waste_type, amount,
// optional analysis JSON from a prior Analyze call, and the photo.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	img, err := readImageForm(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a valid image is required")
		return
	}

	location := strings.TrimSpace(r.FormValue("location"))
	wasteType := strings.TrimSpace(r.FormValue("waste_type"))
	amount := strings.TrimSpace(r.FormValue("amount"))
	if location == "" || wasteType == "" || amount == "" {
		writeError(w, http.StatusBadRequest, "location, waste_type, and amount are required")
		return
	}

	imageKey, err := h.images.Put(r.Context(), img.Data, img.MimeType)
	if err != nil {
		h.logger.Error("store report image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	report, err := h.lifecycle.CreateReport(store.CreateParams{
		ReporterID: userID,
		Location:   location,
		WasteType:  wasteType,
		Amount:     amount,
		ImageKey:   imageKey,
		Analysis:   strings.TrimSpace(r.FormValue("analysis")),
	})
	if err != nil {
		h.logger.Error("create report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create report")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("report", "created", report.ID, nil))
	h.hub.NotifyUser(userID, websocket.NewMessage("notification", "created", 0, nil))

	writeJSON(w, http.StatusCreated, report)
}

// List returns recent reports, newest first.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.ListRecent(parseLimit(r, 10))
	if err != nil {
		h.logger.Error("list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []model.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}
