package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"

	"github.com/yungbote/studydesk-backend/internal/documents"
	"github.com/yungbote/studydesk-backend/internal/domain/notes"
	"github.com/yungbote/studydesk-backend/internal/http/response"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"github.com/yungbote/studydesk-backend/internal/services"
)

// maxFilesPerUpload bounds one multipart request.
const maxFilesPerUpload = 10

type DocumentHandler struct {
	log  *logger.Logger
	docs services.DocumentService
}

func NewDocumentHandler(log *logger.Logger, docs services.DocumentService) *DocumentHandler {
	return &DocumentHandler{log: log.With("handler", "DocumentHandler"), docs: docs}
}

// POST /api/documents (multipart, field "files")
//
// Responds 201 with every document created; per-file failures that kept a
// document from being created are listed under "errors".
func (h *DocumentHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		fileHeaders = form.File["file"]
	}
	if len(fileHeaders) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_files", errors.New("no files uploaded"))
		return
	}
	if len(fileHeaders) > maxFilesPerUpload {
		response.RespondError(c, http.StatusBadRequest, "too_many_files", fmt.Errorf("at most %d files per upload", maxFilesPerUpload))
		return
	}

	files := make([]documents.File, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := readUpload(fh)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
			return
		}
		files = append(files, f)
	}

	created, err := h.docs.UploadMany(c.Request.Context(), files)
	out := make([]*notes.Document, 0, len(created))
	for _, d := range created {
		if d != nil {
			out = append(out, d)
		}
	}
	if err != nil && len(out) == 0 {
		response.RespondErr(c, err)
		return
	}
	payload := gin.H{"documents": out}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		msgs := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			msgs = append(msgs, e.Error())
		}
		payload["errors"] = msgs
		h.log.Warn("some uploads failed", "failed", len(msgs), "created", len(out))
	}
	response.RespondCreated(c, payload)
}

// readUpload reads at most one byte past the size limit so oversize files
// are rejected by the service rather than silently truncated.
func readUpload(fh *multipart.FileHeader) (documents.File, error) {
	r, err := fh.Open()
	if err != nil {
		return documents.File{}, fmt.Errorf("%s: %w", fh.Filename, err)
	}
	defer r.Close()
	data, err := io.ReadAll(io.LimitReader(r, documents.MaxUploadBytes+1))
	if err != nil {
		return documents.File{}, fmt.Errorf("%s: %w", fh.Filename, err)
	}
	return documents.File{
		Name:     fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
