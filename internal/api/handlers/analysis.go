package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/apperrors"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/service"
)

// maxUploadBytes caps the uploaded CSV size. Exchange exports for a busy
// account run a few megabytes; 32 MiB leaves generous headroom.
const maxUploadBytes = 32 << 20

// AnalysisHandler handles analysis run HTTP requests: upload, status
// polling and result retrieval.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// UploadResponse represents the response to a successful ledger upload.
type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Upload handles POST requests with a multipart CSV ledger export.
// It validates the file, registers an analysis run and returns its ID;
// the analysis itself runs in the background and is polled via Status.
func (h *AnalysisHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart request", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, apperrors.ErrNoFileProvided.Error(), "")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		respondError(w, http.StatusBadRequest, apperrors.ErrInvalidFileType.Error(), "")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded file", err.Error())
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, apperrors.ErrNoFileProvided.Error(), "")
		return
	}

	id := h.analysisService.Submit(data)

	respondJSON(w, http.StatusAccepted, UploadResponse{
		ID:     id,
		Status: string(service.RunPending),
	})
}

// Status handles GET requests for an analysis run's lifecycle state,
// progress percentage and current pipeline step.
func (h *AnalysisHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	run, err := h.analysisService.Registry().Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "analysis run not found", "")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// Result handles GET requests for a completed run's analysis result.
// Returns 409 Conflict while the run is still pending or running.
func (h *AnalysisHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	result, err := h.analysisService.Registry().Result(id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRunNotFound):
			respondError(w, http.StatusNotFound, "analysis run not found", "")
		case errors.Is(err, apperrors.ErrRunNotCompleted):
			respondError(w, http.StatusConflict, "analysis run not completed", "")
		default:
			respondError(w, http.StatusInternalServerError, "failed to load result", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}
