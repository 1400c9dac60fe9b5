package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/internal/app"
	"docqa/internal/index"
	"docqa/internal/pkg/extract"
	"docqa/internal/transport/http/response"
)

// writeError maps service errors onto the response envelope. Client errors
// carry their message; upstream and storage failures are logged and answered
// with a fixed message.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	case errors.Is(err, extract.ErrUnsupportedFormat):
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
		return
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		return
	}

	slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	switch {
	case errors.Is(err, app.ErrGenerationFailure):
		response.Error(c, http.StatusBadGateway, response.CodeGenerationFailure, "answer generation failed")
	case errors.Is(err, index.ErrEmbeddingFailure):
		response.Error(c, http.StatusBadGateway, response.CodeEmbeddingFailure, "embedding service failed")
	case errors.Is(err, index.ErrIndexUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeIndexUnavailable, "vector index unavailable")
	case errors.Is(err, app.ErrStorageFailure):
		response.Error(c, http.StatusInternalServerError, response.CodeStorageFailure, "storage failure")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "internal server error")
	}
}
