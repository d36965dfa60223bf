package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type SpreadsheetHandler struct {
	spreadsheets *service.SpreadsheetService
	maxUploadMB  int64
	logger       *zap.Logger
}

func NewSpreadsheetHandler(spreadsheets *service.SpreadsheetService, maxUploadMB int64, logger *zap.Logger) *SpreadsheetHandler {
	return &SpreadsheetHandler{
		spreadsheets: spreadsheets,
		maxUploadMB:  maxUploadMB,
		logger:       logger,
	}
}

// Import reads leads from the .xlsx sent in the "file" form field.
// Row level problems are reported in the result, not as an error status.
func (h *SpreadsheetHandler) Import(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	h.logger.Debug("importing leads", zap.String("filename", header.Filename), zap.Int64("size", header.Size))

	result, err := h.spreadsheets.Import(r.Context(), file)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to import leads")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Export streams the caller's visible leads as a workbook
func (h *SpreadsheetHandler) Export(w http.ResponseWriter, r *http.Request) {
	buf, err := h.spreadsheets.Export(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to export leads")
		return
	}

	filename := "leads-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("Content-Type", service.XLSXContentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// PipelineReport renders the dashboard workbook and stores it
func (h *SpreadsheetHandler) PipelineReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.spreadsheets.GeneratePipelineReport(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to generate pipeline report")
		return
	}
	respondJSON(w, http.StatusCreated, report)
}
