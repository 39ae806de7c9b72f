package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tresorerie/backend/internal/services"
)

// multipart overhead allowed on top of the file size limit
const multipartSlack = 1 << 20

type DocumentHandler struct {
	documents *services.DocumentService
	maxBytes  int64
	logger    *slog.Logger
}

func NewDocumentHandler(documents *services.DocumentService, maxBytes int64, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, maxBytes: maxBytes, logger: logger}
}

// Upload attaches a file to a transaction
// @Summary Upload document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Transaction ID"
// @Param file formData file true "Document"
// @Success 201 {object} models.Document
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id}/documents [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartSlack)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		services.SendErrorResponse(w, errNoFile.Error(), http.StatusBadRequest, nil)
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(r.Context(), chi.URLParam(r, "id"), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// Download streams a document
// @Summary Download document
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} services.ErrorResponse
// @Router /documents/{id} [get]
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	doc, f, err := h.documents.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	http.ServeContent(w, r, doc.FileName, doc.UploadedAt, f)
}

// Delete removes a document
// @Summary Delete document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
