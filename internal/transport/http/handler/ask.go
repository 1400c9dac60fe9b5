package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/internal/app"
	"docqa/internal/transport/http/response"
)

type AskService interface {
	Ask(ctx context.Context, input app.AskInput) (*app.AskResult, error)
}

type AskHandler struct {
	svc AskService
}

// AskRequest binds from JSON or from a form post.
type AskRequest struct {
	Question string `json:"question" form:"question"`
	TopK     int    `json:"top_k" form:"top_k" binding:"min=0"`
}

func NewAskHandler(svc AskService) *AskHandler {
	return &AskHandler{svc: svc}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.svc.Ask(c.Request.Context(), app.AskInput{
		Question: req.Question,
		TopK:     req.TopK,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}
