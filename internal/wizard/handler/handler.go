// Package handler exposes the wizard module's HTTP endpoints.
package handler

import (
	"net/http"

	"quotebuilder_backend/internal/wizard/service"
	"quotebuilder_backend/internal/wizard/transport"
	"quotebuilder_backend/platform/httpkit"
	"quotebuilder_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the wizard.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new wizard handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the wizard routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.CreateSession)
	rg.GET("/sessions/:id", h.GetSession)
	rg.DELETE("/sessions/:id", h.DeleteSession)
	rg.POST("/sessions/:id/messages", h.PostMessage)
	rg.POST("/sessions/:id/selections", h.PostSelections)
	rg.POST("/sessions/:id/commit", h.Commit)
}

func (h *Handler) CreateSession(c *gin.Context) {
	ownerID, ok := mustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.svc.CreateSession(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToSessionResponse(session))
}

func (h *Handler) GetSession(c *gin.Context) {
	ownerID, sessionID, ok := mustGetIDs(c)
	if !ok {
		return
	}

	session, err := h.svc.GetSession(c.Request.Context(), ownerID, sessionID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToSessionResponse(session))
}

func (h *Handler) DeleteSession(c *gin.Context) {
	ownerID, sessionID, ok := mustGetIDs(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteSession(c.Request.Context(), ownerID, sessionID); httpkit.HandleError(c, err) {
		return
	}

	httpkit.NoContent(c)
}

func (h *Handler) PostMessage(c *gin.Context) {
	ownerID, sessionID, ok := mustGetIDs(c)
	if !ok {
		return
	}

	var req transport.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.RunMessage(c.Request.Context(), ownerID, sessionID, req.Text)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToTurnResultResponse(result))
}

func (h *Handler) PostSelections(c *gin.Context) {
	ownerID, sessionID, ok := mustGetIDs(c)
	if !ok {
		return
	}

	var req transport.SelectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	selections := make([]service.Selection, 0, len(req.Selections))
	for _, sel := range req.Selections {
		selections = append(selections, service.Selection{ProductID: sel.ProductID, Qty: sel.Qty})
	}

	result, err := h.svc.RunSelections(c.Request.Context(), ownerID, sessionID, selections)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToTurnResultResponse(result))
}

func (h *Handler) Commit(c *gin.Context) {
	ownerID, sessionID, ok := mustGetIDs(c)
	if !ok {
		return
	}

	quote, err := h.svc.Commit(c.Request.Context(), ownerID, sessionID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.CommitResponse{QuoteID: quote.ID})
}

func mustGetIDs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	ownerID, ok := mustGetUserID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid session id", nil)
		return uuid.Nil, uuid.Nil, false
	}

	return ownerID, sessionID, true
}

func mustGetUserID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing identity", nil)
		return uuid.Nil, false
	}
	return id, true
}
