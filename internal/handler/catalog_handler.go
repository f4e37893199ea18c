package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examdeck/examdeck-backend/internal/response"
	"github.com/examdeck/examdeck-backend/internal/service"
)

// CatalogHandler exposes the exam list and the catalog import flow
// (upload, sample install, discard).
type CatalogHandler struct {
	catalogService *service.CatalogService
	sessionService *service.SessionService
	maxImportBytes int64
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService, sessionService *service.SessionService, maxImportBytes int64) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		sessionService: sessionService,
		maxImportBytes: maxImportBytes,
	}
}

// ListExams godoc
// GET /api/v1/exams
// Returns the exam list with question counts and completed badges.
func (h *CatalogHandler) ListExams(c *gin.Context) {
	exams, err := h.catalogService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exams":  exams,
		"source": h.catalogService.Source(),
	})
}

// ImportExams godoc
// POST /api/v1/exams/import
// Accepts a raw exams.json body, validates it and makes it the active
// catalog. Session records are kept; in-memory sessions reload against
// the new definitions.
func (h *CatalogHandler) ImportExams(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxImportBytes+1))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if int64(len(raw)) > h.maxImportBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}

	count, err := h.catalogService.Import(c.Request.Context(), raw)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrCatalogInvalid,
			map[string]string{"detail": err.Error()})
		return
	}

	h.sessionService.DropActive()
	response.Success(c, http.StatusOK, gin.H{"exams_loaded": count})
}

// InstallSample godoc
// POST /api/v1/exams/sample
// Installs the bundled sample deck, persisted like an uploaded file.
func (h *CatalogHandler) InstallSample(c *gin.Context) {
	count, err := h.catalogService.InstallSample(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.sessionService.DropActive()
	response.Success(c, http.StatusOK, gin.H{"exams_loaded": count})
}

// DiscardImported godoc
// DELETE /api/v1/exams/import
// Removes the imported catalog copy and clears every stored session
// record, then falls back to the on-disk exams file when present.
func (h *CatalogHandler) DiscardImported(c *gin.Context) {
	if err := h.catalogService.Discard(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.sessionService.DropActive()
	response.Success(c, http.StatusOK, gin.H{"source": h.catalogService.Source()})
}
