package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/internal/app"
	"docqa/internal/model"
	"docqa/internal/transport/http/response"
)

type DocumentService interface {
	Ingest(ctx context.Context, files []app.UploadFile) ([]app.IngestOutcome, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListEvents(ctx context.Context, documentID string) ([]model.IngestionEvent, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Upload accepts multipart files under "files" or "file".
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "expected multipart form with files")
		return
	}

	var headers []*multipart.FileHeader
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files uploaded")
		return
	}

	files := make([]app.UploadFile, len(headers))
	for i, fh := range headers {
		files[i] = uploadFromHeader(fh)
	}

	outcomes, err := h.svc.Ingest(c.Request.Context(), files)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, gin.H{"files": outcomes})
}

func uploadFromHeader(fh *multipart.FileHeader) app.UploadFile {
	return app.UploadFile{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.svc.ListDocuments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.svc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Events(c *gin.Context) {
	events, err := h.svc.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, gin.H{"events": events})
}
