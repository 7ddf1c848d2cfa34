// backend/src/handlers/import_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/username/tradefolio/backend/src/config"
	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/security/validation"
	"github.com/username/tradefolio/backend/src/services"
	"github.com/username/tradefolio/backend/src/utils"
)

// ImportHandler exposes the trade-file import pipeline over HTTP.
type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(importService services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// HandleImport accepts one multipart upload under the "file" field, runs it
// through the pipeline and renders either the import summary or the
// mapping-required payload. An optional "mapping_override" form value carries
// a caller-supplied mapping as JSON.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes)
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("HandleImport: failed to parse multipart form", "userID", userID, "error", err)
		utils.SendJSONError(w, "Uploaded file is too large or the form is malformed", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "Missing 'file' field in upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		utils.SendJSONError(w, "Uploaded file exceeds the size limit", http.StatusRequestEntityTooLarge)
		return
	}

	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		logger.L.Error("HandleImport: failed to read uploaded file", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to read uploaded file", http.StatusInternalServerError)
		return
	}

	input := services.ImportInput{
		Content:         content,
		Filename:        fileHeader.Filename,
		UserID:          userID,
		MappingOverride: []byte(r.FormValue("mapping_override")),
	}

	outcome, err := h.importService.ProcessImport(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrParsingFailed):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrInvalidMapping):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrStorageFailed):
			logger.L.Error("HandleImport: storage failure", "userID", userID, "error", err)
			utils.SendJSONError(w, "Failed to persist imported trades", http.StatusInternalServerError)
		default:
			logger.L.Error("HandleImport: unexpected pipeline failure", "userID", userID, "error", err)
			utils.SendJSONError(w, "Import failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if outcome.MappingRequired != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		writeJSON(w, outcome.MappingRequired, userID)
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, outcome.Summary, userID)
}

// HandleGetLatestImport returns the cached summary of the user's most recent
// import with an ETag so polling clients can short-circuit on 304.
func (h *ImportHandler) HandleGetLatestImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	summary, found := h.importService.GetLatestImportSummary(userID)
	if !found {
		utils.SendJSONError(w, "No recent import found", http.StatusNotFound)
		return
	}

	etag, err := utils.GenerateETag(summary)
	if err != nil {
		logger.L.Error("HandleGetLatestImport: failed to generate ETag", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to prepare response", http.StatusInternalServerError)
		return
	}

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, summary, userID)
}

func writeJSON(w http.ResponseWriter, payload any, userID string) {
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Failed to encode JSON response", "userID", userID, "error", err)
	}
}
